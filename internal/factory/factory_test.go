package factory

import (
	"testing"

	"fill-nodes-go/internal/config"
)

func TestCreateMirror(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *config.Config
		mirrorType  MirrorType
		wantName    string
		expectError bool
	}{
		{"none", &config.Config{}, NoMirror, "none", false},
		{"empty defaults to none", &config.Config{}, "", "none", false},
		{"azure without credentials", &config.Config{}, AzureMirror, "", true},
		{"azure", &config.Config{AzureAccount: "acct", AzureKey: "a2V5", AzureContainer: "artifacts"}, AzureMirror, "azure", false},
		{"unknown", &config.Config{}, MirrorType("s3"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mirror, err := NewMirrorFactory(tt.cfg).CreateMirror(tt.mirrorType)
			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if mirror.Name() != tt.wantName {
				t.Errorf("Expected mirror %q, got %q", tt.wantName, mirror.Name())
			}
		})
	}
}
