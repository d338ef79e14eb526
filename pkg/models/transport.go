package models

import "fill-nodes-go/internal/imagebuf"

// SaveArtifactRequest is the body of POST /artifacts. The output base
// directory is server configuration and is not accepted from clients.
type SaveArtifactRequest struct {
	JobID    string           `json:"job_id" binding:"required"`
	Category string           `json:"category" binding:"required"`
	Format   string           `json:"format,omitempty"`
	Quality  int              `json:"quality,omitempty"`
	Image    *imagebuf.Buffer `json:"image" binding:"required"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Time    string                 `json:"time"`
	Metrics map[string]interface{} `json:"metrics,omitempty"`
}
