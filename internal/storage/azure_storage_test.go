package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

type fakeUploader struct {
	container string
	blobName  string
	content   string
	err       error
}

func (f *fakeUploader) UploadFile(ctx context.Context, containerName string, blobName string, file *os.File, o *azblob.UploadFileOptions) (azblob.UploadFileResponse, error) {
	f.container = containerName
	f.blobName = blobName
	data, _ := io.ReadAll(file)
	f.content = string(data)
	return azblob.UploadFileResponse{}, f.err
}

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job42.png")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func TestAzureStorage_Mirror(t *testing.T) {
	uploader := &fakeUploader{}
	mirror := NewAzureStorageWithClient(uploader, "artifacts", "comfy")

	path := writeArtifact(t, "pixels")
	if err := mirror.Mirror(context.Background(), "renders/job42.png", path); err != nil {
		t.Fatalf("Mirror: %v", err)
	}

	if uploader.container != "artifacts" {
		t.Errorf("Expected container 'artifacts', got %q", uploader.container)
	}
	if uploader.blobName != "comfy/renders/job42.png" {
		t.Errorf("Expected prefixed blob name, got %q", uploader.blobName)
	}
	if uploader.content != "pixels" {
		t.Errorf("Expected file content to be uploaded, got %q", uploader.content)
	}
	if mirror.Name() != "azure" {
		t.Errorf("Expected name azure, got %q", mirror.Name())
	}
}

func TestAzureStorage_MirrorErrors(t *testing.T) {
	uploader := &fakeUploader{err: errors.New("403 forbidden")}
	mirror := NewAzureStorageWithClient(uploader, "artifacts", "")

	err := mirror.Mirror(context.Background(), "renders/job42.png", writeArtifact(t, "x"))
	if err == nil || !strings.Contains(err.Error(), "403 forbidden") {
		t.Fatalf("Expected upload error to surface, got %v", err)
	}

	err = mirror.Mirror(context.Background(), "renders/missing.png", filepath.Join(t.TempDir(), "missing.png"))
	if err == nil || !strings.Contains(err.Error(), "open artifact") {
		t.Fatalf("Expected open error, got %v", err)
	}
}

func TestNopMirror(t *testing.T) {
	mirror := NewNopMirror()
	if err := mirror.Mirror(context.Background(), "a/b.png", "/does/not/exist"); err != nil {
		t.Errorf("Expected nop mirror to ignore everything, got %v", err)
	}
	if mirror.Name() != "none" {
		t.Errorf("Expected name none, got %q", mirror.Name())
	}
}
