package factory

import (
	"fmt"

	"fill-nodes-go/internal/config"
	"fill-nodes-go/internal/storage"
)

// MirrorType represents the secondary store artifacts are copied to
type MirrorType string

const (
	// NoMirror keeps artifacts on local disk only
	NoMirror MirrorType = config.MirrorNone
	// AzureMirror copies artifacts to Azure Blob Storage
	AzureMirror MirrorType = config.MirrorAzure
)

// MirrorFactory creates artifact mirrors
type MirrorFactory interface {
	CreateMirror(mirrorType MirrorType) (storage.ArtifactMirror, error)
}

// mirrorFactory implements MirrorFactory from configuration
type mirrorFactory struct {
	cfg *config.Config
}

// NewMirrorFactory creates a new mirror factory
func NewMirrorFactory(cfg *config.Config) MirrorFactory {
	return &mirrorFactory{cfg: cfg}
}

// CreateMirror creates a mirror based on the specified type
func (f *mirrorFactory) CreateMirror(mirrorType MirrorType) (storage.ArtifactMirror, error) {
	switch mirrorType {
	case NoMirror, "":
		return storage.NewNopMirror(), nil
	case AzureMirror:
		if f.cfg.AzureAccount == "" || f.cfg.AzureKey == "" {
			return nil, fmt.Errorf("azure mirror requires account name and key")
		}
		return storage.NewAzureStorage(f.cfg.AzureAccount, f.cfg.AzureKey, f.cfg.AzureContainer)
	default:
		return nil, fmt.Errorf("unsupported mirror type: %s", mirrorType)
	}
}
