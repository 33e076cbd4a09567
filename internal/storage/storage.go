// Package storage persists uploaded files and returns their public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Uploader interface {
	Upload(ctx context.Context, folder, filename string, r io.Reader) (string, error)
}

// LocalUploader writes files under dir and serves them from baseURL.
type LocalUploader struct {
	dir     string
	baseURL string
}

func NewLocalUploader(dir, baseURL string) (*LocalUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalUploader{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir is the root directory files are written to.
func (u *LocalUploader) Dir() string {
	return u.dir
}

// Upload stores r under folder with a fresh random name that keeps the
// original extension. The caller's filename is never used as a path.
func (u *LocalUploader) Upload(ctx context.Context, folder, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	folder = sanitizeFolder(folder)
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 10 {
		ext = ""
	}
	name := uuid.NewString() + ext

	target := filepath.Join(u.dir, folder)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}

	f, err := os.Create(filepath.Join(target, name))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}

	return u.baseURL + "/" + path.Join(folder, name), nil
}

func sanitizeFolder(folder string) string {
	var b strings.Builder
	for _, r := range folder {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "misc"
	}
	return b.String()
}
