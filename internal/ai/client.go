package ai

import "context"

// ImageRequest одна попытка генерации: фото пользователя + инструкция.
type ImageRequest struct {
	Model       string
	Image       []byte // сырые байты фото, без base64
	MimeType    string // объявленный MIME-тип фото
	Prompt      string
	AspectRatio string // например "3:4"
}

// Blob бинарные данные, пришедшие прямо в ответе.
type Blob struct {
	MIMEType string
	Data     []byte
}

// Part элемент ответа модели. Заполнено либо Text, либо InlineData.
type Part struct {
	Text       string
	InlineData *Blob
}

// ImageClient интерфейс генератора изображений. Все реализации должны быть взаимозаменяемыми.
// Возвращает части ответа в исходном порядке, пустой список не считается ошибкой.
type ImageClient interface {
	GenerateImage(ctx context.Context, req ImageRequest) ([]Part, error)
}
