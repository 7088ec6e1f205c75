package storage

import (
	tele "gopkg.in/telebot.v3"

	"github.com/teleta/archivebot/internal/model"
)

// Media — вложение входящего сообщения: ровно один из Document или Photo.
type Media interface {
	Kind() model.MediaKind
	TelegramFile() *tele.File
	isMedia()
}

// DocumentAttribute — атрибут документа: FilenameAttribute или MIMEAttribute.
type DocumentAttribute interface {
	isDocumentAttribute()
}

type FilenameAttribute struct{ Name string }

type MIMEAttribute struct{ Type string }

func (FilenameAttribute) isDocumentAttribute() {}
func (MIMEAttribute) isDocumentAttribute()     {}

// Document — файл, отправленный "как файл", может нести имя.
type Document struct {
	File       tele.File
	Attributes []DocumentAttribute
}

// Photo — сжатое изображение, имени у него нет.
type Photo struct {
	File tele.File
}

func (Document) Kind() model.MediaKind { return model.MediaDocument }
func (Photo) Kind() model.MediaKind    { return model.MediaPhoto }

func (d Document) TelegramFile() *tele.File { return &d.File }
func (p Photo) TelegramFile() *tele.File    { return &p.File }

func (Document) isMedia() {}
func (Photo) isMedia()    {}

// FileName возвращает первый атрибут с именем файла.
func (d Document) FileName() (string, bool) {
	for _, a := range d.Attributes {
		if f, ok := a.(FilenameAttribute); ok {
			return f.Name, true
		}
	}
	return "", false
}

// MIME возвращает первый MIME-атрибут.
func (d Document) MIME() (string, bool) {
	for _, a := range d.Attributes {
		if m, ok := a.(MIMEAttribute); ok {
			return m.Type, true
		}
	}
	return "", false
}

// FromMessage извлекает вложение из сообщения. ok == false, если вложения
// поддерживаемого типа нет.
func FromMessage(m *tele.Message) (Media, bool) {
	if m == nil {
		return nil, false
	}
	switch {
	case m.Document != nil:
		d := Document{File: m.Document.File}
		if m.Document.FileName != "" {
			d.Attributes = append(d.Attributes, FilenameAttribute{Name: m.Document.FileName})
		}
		if m.Document.MIME != "" {
			d.Attributes = append(d.Attributes, MIMEAttribute{Type: m.Document.MIME})
		}
		return d, true
	case m.Photo != nil:
		return Photo{File: m.Photo.File}, true
	}
	return nil, false
}
