package image

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidDataURL = errors.New("invalid data url")

// EncodeDataURL упаковывает байты изображения в data URL.
func EncodeDataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// StripDataURLPrefix отрезает ровно один префикс вида "data:image/png;base64,".
// Всё до первой запятой считается префиксом; без запятой (или с пустым хвостом) строка возвращается как есть.
func StripDataURLPrefix(s string) string {
	if _, payload, ok := strings.Cut(s, ","); ok && payload != "" {
		return payload
	}
	return s
}

// DecodeDataURL разбирает data URL на MIME-тип и байты. Сырой base64 без префикса тоже принимается,
// тогда MIME-тип пустой.
func DecodeDataURL(s string) (string, []byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil, ErrInvalidDataURL
	}
	mimeType := ""
	if strings.HasPrefix(s, "data:") {
		head, _, ok := strings.Cut(s, ",")
		if !ok {
			return "", nil, ErrInvalidDataURL
		}
		mimeType = strings.TrimSuffix(strings.TrimPrefix(head, "data:"), ";base64")
	}
	data, err := base64.StdEncoding.DecodeString(StripDataURLPrefix(s))
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return mimeType, data, nil
}
