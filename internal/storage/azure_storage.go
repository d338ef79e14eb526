package storage

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// BlobUploader is the subset of *azblob.Client the mirror needs.
type BlobUploader interface {
	UploadFile(ctx context.Context, containerName string, blobName string, file *os.File, o *azblob.UploadFileOptions) (azblob.UploadFileResponse, error)
}

type azureStorage struct {
	client    BlobUploader
	container string
	prefix    string
}

// NewAzureStorage creates a mirror that uploads artifacts into a blob
// container using shared-key authentication.
func NewAzureStorage(accountName, accountKey, container string) (ArtifactMirror, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}

	return NewAzureStorageWithClient(client, container, ""), nil
}

// NewAzureStorageWithClient wraps an existing uploader. prefix, when set,
// is prepended to every blob name.
func NewAzureStorageWithClient(client BlobUploader, container, prefix string) ArtifactMirror {
	return &azureStorage{client: client, container: container, prefix: prefix}
}

func (s *azureStorage) Mirror(ctx context.Context, key, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	blobName := key
	if s.prefix != "" {
		blobName = path.Join(s.prefix, key)
	}

	if _, err := s.client.UploadFile(ctx, s.container, blobName, file, nil); err != nil {
		return fmt.Errorf("upload %s/%s failed: %w", s.container, blobName, err)
	}
	return nil
}

func (s *azureStorage) Name() string {
	return "azure"
}
