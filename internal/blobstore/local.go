package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Загруженные фото складываются в эту поддиректорию, как upload_to в исходной форме.
const photoPrefix = "place_photos"

// Local хранит файлы на диске. Ссылка на файл - относительный путь вида
// "place_photos/<uuid>.jpg"; содержимое файлов не читается и не перекодируется.
type Local struct {
	root    string
	baseURL string
}

// NewLocal создает хранилище в директории root, создавая ее при необходимости.
func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(filepath.Join(root, photoPrefix), 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &Local{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root - корневая директория (для раздачи файлов по HTTP).
func (l *Local) Root() string { return l.root }

// Put сохраняет поток под новым именем с расширением исходного файла.
func (l *Local) Put(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := path.Join(photoPrefix, uuid.NewString()+strings.ToLower(filepath.Ext(filename)))
	full := filepath.Join(l.root, filepath.FromSlash(ref))

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("close blob: %w", err)
	}
	return ref, nil
}

// Delete удаляет файл. Отсутствующий файл - не ошибка.
func (l *Local) Delete(_ context.Context, ref string) error {
	full, err := l.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob %s: %w", ref, err)
	}
	return nil
}

// URL - публичный адрес файла.
func (l *Local) URL(ref string) string {
	return l.baseURL + "/" + ref
}

// resolve не выпускает ссылку за пределы корня хранилища.
func (l *Local) resolve(ref string) (string, error) {
	clean := path.Clean("/" + ref)
	if !strings.HasPrefix(clean, "/"+photoPrefix+"/") {
		return "", fmt.Errorf("invalid blob ref %q", ref)
	}
	return filepath.Join(l.root, filepath.FromSlash(clean[1:])), nil
}
