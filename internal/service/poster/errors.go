package poster

import "errors"

var (
	// ErrNoImageInResponse модель ответила, но ни одна часть не содержит картинку.
	ErrNoImageInResponse = errors.New("no image found in response")
	ErrEmptySource       = errors.New("empty source image")
	ErrEmptyPrompt       = errors.New("empty prompt")
	ErrInvalidSource     = errors.New("source image is not valid base64")
)

// TransportError ошибка сети или API. Текст и цепочка исходной ошибки сохраняются как есть.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }
