package storage

import "context"

// ArtifactMirror copies a file that was already written locally to a
// secondary store. key is the slash-separated object name.
type ArtifactMirror interface {
	Mirror(ctx context.Context, key, localPath string) error
	Name() string
}

type nopMirror struct{}

// NewNopMirror returns a mirror that does nothing
func NewNopMirror() ArtifactMirror {
	return nopMirror{}
}

func (nopMirror) Mirror(context.Context, string, string) error { return nil }

func (nopMirror) Name() string { return "none" }
