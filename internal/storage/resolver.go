// Package storage раскладывает вложения по каталогам чатов внутри TARGET_DIR.
package storage

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/teleta/archivebot/internal/model"
)

var (
	ErrFilesystem   = errors.New("filesystem error")
	ErrExists       = errors.New("file already exists")
	ErrUnknownMedia = errors.New("unknown media")

	segmentReplacer = strings.NewReplacer("/", "_", "\\", "_", "\x00", "")
)

const dirPerm = 0o755

// maxSegment — предел длины одного имени в большинстве файловых систем.
const maxSegment = 255

// ResolvedPath — результат разрешения пути. Если FileName пустой, Path
// совпадает с Dir и имя файла выбирает вызывающий.
type ResolvedPath struct {
	Dir      string
	Path     string
	FileName string
}

func (p ResolvedPath) HasName() bool { return p.FileName != "" }

// Resolver строит пути внутри корня архива.
type Resolver struct {
	Root string
}

func NewResolver(root string) *Resolver {
	return &Resolver{Root: root}
}

// ChannelDir — каталог чата без учёта сортировки по пользователям.
func (r *Resolver) ChannelDir(channelName string) string {
	return filepath.Join(r.Root, channelName)
}

// Resolve вычисляет каталог (создавая его) и, для документов с именем, путь к файлу.
func (r *Resolver) Resolve(sub *model.Subscriber, sender string, media Media) (ResolvedPath, error) {
	dir := r.ChannelDir(sub.ChannelName)
	if sub.SortByUser {
		dir = filepath.Join(dir, userSegment(sender))
	}

	// MkdirAll не считает существующий каталог ошибкой, в том числе при гонке.
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return ResolvedPath{}, fmt.Errorf("%w: create %s: %v", ErrFilesystem, dir, err)
	}

	switch m := media.(type) {
	case Document:
		if name, ok := m.FileName(); ok {
			if name = safeFileName(name); name != "" {
				return ResolvedPath{Dir: dir, Path: filepath.Join(dir, name), FileName: name}, nil
			}
		}
		return ResolvedPath{Dir: dir, Path: dir}, nil
	case Photo:
		return ResolvedPath{Dir: dir, Path: dir}, nil
	}
	return ResolvedPath{}, fmt.Errorf("%w: %T", ErrUnknownMedia, media)
}

// GenerateName выбирает имя для вложения без имени.
func GenerateName(media Media, now time.Time) string {
	stamp := now.UTC().Format("2006-01-02_15-04-05")
	id := uuid.NewString()[:8]
	if d, ok := media.(Document); ok {
		ext := ""
		if mt, ok := d.MIME(); ok {
			if exts, _ := mime.ExtensionsByType(mt); len(exts) > 0 {
				ext = exts[0]
			}
		}
		return fmt.Sprintf("document_%s_%s%s", stamp, id, ext)
	}
	return fmt.Sprintf("photo_%s_%s.jpg", stamp, id)
}

func userSegment(sender string) string {
	s := truncateSegment(segmentReplacer.Replace(strings.ToLower(sender)))
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}

func safeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return name
}

// truncateSegment обрезает имя до maxSegment байт, не разрывая руны.
func truncateSegment(s string) string {
	for len(s) > maxSegment {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	return s
}
