package ai

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
)

// StubClient заглушка, которая не делает реальных запросов и отдаёт тёмный кадр 3:4.
type StubClient struct{}

func NewStubClient() *StubClient { return &StubClient{} }

var _ ImageClient = (*StubClient)(nil)

func (c *StubClient) GenerateImage(ctx context.Context, _ ImageRequest) ([]Part, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, 300, 400))
	for y := range 400 {
		// вертикальный градиент от холодного серого к золотому
		px := color.RGBA{R: uint8(40 + y*140/400), G: uint8(40 + y*100/400), B: uint8(50 + y*20/400), A: 255}
		for x := range 300 {
			img.Set(x, y, px)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return []Part{
		{Text: "запрос получен"},
		{InlineData: &Blob{MIMEType: "image/png", Data: buf.Bytes()}},
	}, nil
}
