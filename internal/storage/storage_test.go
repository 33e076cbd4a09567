package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalUploaderWritesFile(t *testing.T) {
	dir := t.TempDir()
	u, err := NewLocalUploader(dir, "http://localhost:8080/uploads/")
	if err != nil {
		t.Fatalf("NewLocalUploader: %v", err)
	}

	url, err := u.Upload(context.Background(), "payments", "proof.PNG", strings.NewReader("image-bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if !strings.HasPrefix(url, "http://localhost:8080/uploads/payments/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("Unexpected URL %s", url)
	}

	name := filepath.Base(url)
	data, err := os.ReadFile(filepath.Join(dir, "payments", name))
	if err != nil {
		t.Fatalf("Read stored file: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Errorf("Unexpected content %q", data)
	}
}

func TestUploadIgnoresTraversal(t *testing.T) {
	dir := t.TempDir()
	u, err := NewLocalUploader(dir, "/uploads")
	if err != nil {
		t.Fatalf("NewLocalUploader: %v", err)
	}

	url, err := u.Upload(context.Background(), "../../etc", "../../passwd", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/etc/") {
		t.Errorf("Folder should be sanitized, got %s", url)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "etc"))
	if err != nil || len(entries) != 1 {
		t.Errorf("Expected the file inside the upload dir, got %v %v", entries, err)
	}
}

func TestUploadHonoursCancelledContext(t *testing.T) {
	u, err := NewLocalUploader(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("NewLocalUploader: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := u.Upload(ctx, "x", "a.png", strings.NewReader("x")); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
