package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	filePerm = 0o644
	// Имя временного файла не зависит от итогового, чтобы не упереться в
	// лимит длины имени.
	tempPattern = ".archivebot-*.tmp"
)

// Exists сообщает, занят ли путь.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Save атомарно записывает содержимое r в path: сначала во временный файл
// в том же каталоге, затем жёсткой ссылкой на итоговое имя. Существующий файл
// не перезаписывается (ErrExists).
func Save(path string, r io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return 0, fmt.Errorf("%w: create temp for %s: %v", ErrFilesystem, path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		return n, fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return n, fmt.Errorf("%w: sync temp for %s: %v", ErrFilesystem, path, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		return n, fmt.Errorf("%w: chmod temp for %s: %v", ErrFilesystem, path, err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("%w: close temp for %s: %v", ErrFilesystem, path, err)
	}
	if err := os.Link(tmpPath, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return 0, fmt.Errorf("%w: %s", ErrExists, path)
		}
		return n, fmt.Errorf("%w: link %s: %v", ErrFilesystem, path, err)
	}
	return n, nil
}
