// Package artifact writes generated images to a categorized directory
// layout: {base}/{category}/{job_id}.{format}.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "fill-nodes-go/internal/errors"
	"fill-nodes-go/internal/imagebuf"
	"fill-nodes-go/internal/logger"
	"fill-nodes-go/internal/observer"
	"fill-nodes-go/internal/storage"
	"fill-nodes-go/pkg/validation"
)

// DefaultQuality is applied when a request leaves Quality at zero.
const DefaultQuality = 100

// SaveRequest describes one image to write.
type SaveRequest struct {
	Image         *imagebuf.Buffer
	JobID         string
	Category      string
	BaseOutputDir string
	Format        string
	Quality       int
}

// SaveResult echoes the identifying fields next to the written path.
type SaveResult struct {
	SavedPath string `json:"saved_path"`
	JobID     string `json:"job_id"`
	Category  string `json:"category"`
}

// Writer saves image buffers to disk. It holds no per-call state and may
// be shared between goroutines; concurrent saves to the same destination
// race and the last one wins.
type Writer struct {
	encoders  map[Format]Encoder
	validator *validation.PathValidator
	mirror    storage.ArtifactMirror
	events    observer.Subject
	dirMode   os.FileMode
}

// Option configures a Writer.
type Option func(*Writer)

// WithEncoder replaces the encoder used for one format.
func WithEncoder(format Format, encoder Encoder) Option {
	return func(w *Writer) { w.encoders[format] = encoder }
}

// WithMirror copies every saved file to a secondary store.
func WithMirror(mirror storage.ArtifactMirror) Option {
	return func(w *Writer) {
		if mirror != nil {
			w.mirror = mirror
		}
	}
}

// WithEvents publishes save outcomes to subject.
func WithEvents(subject observer.Subject) Option {
	return func(w *Writer) {
		if subject != nil {
			w.events = subject
		}
	}
}

// NewWriter creates a writer with the default encoders, no mirror and no
// event subscribers.
func NewWriter(opts ...Option) *Writer {
	w := &Writer{
		encoders:  DefaultEncoders(),
		validator: validation.NewPathValidator(),
		mirror:    storage.NewNopMirror(),
		events:    observer.Nop{},
		dirMode:   0o755,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AlwaysStale reports that a previous result must never stand in for a
// new invocation, even with identical inputs.
func (w *Writer) AlwaysStale() bool {
	return true
}

// Save validates req, creates {base}/{category} when missing and writes
// {job_id}.{format}, overwriting any existing file. Validation problems
// return a validation error before anything touches the filesystem; every
// later failure is reported as a single save error. Directories created
// before a failure are left in place.
func (w *Writer) Save(ctx context.Context, req SaveRequest) (*SaveResult, error) {
	start := time.Now()

	format, quality, err := w.validate(req)
	if err != nil {
		return nil, err
	}

	savedPath, err := w.write(req, format, quality)
	if err != nil {
		saveErr := apperrors.NewSaveError(err)
		w.events.NotifyObservers(ctx, observer.Event{
			EventType:    observer.ArtifactSaveFailed,
			Timestamp:    time.Now(),
			JobID:        req.JobID,
			Category:     req.Category,
			Path:         savedPath,
			Duration:     time.Since(start),
			ErrorMessage: err.Error(),
		})
		return nil, saveErr
	}

	logger.WithFields(logrus.Fields{
		"path":    savedPath,
		"format":  format,
		"quality": quality,
	}).Info("Image saved successfully")

	w.events.NotifyObservers(ctx, observer.Event{
		EventType: observer.ArtifactSaved,
		Timestamp: time.Now(),
		JobID:     req.JobID,
		Category:  req.Category,
		Path:      savedPath,
		Duration:  time.Since(start),
		Success:   true,
	})

	w.mirrorArtifact(ctx, req, savedPath, format)

	return &SaveResult{
		SavedPath: savedPath,
		JobID:     req.JobID,
		Category:  req.Category,
	}, nil
}

func (w *Writer) validate(req SaveRequest) (Format, int, error) {
	format, err := ParseFormat(req.Format)
	if err != nil {
		return "", 0, err
	}

	quality := req.Quality
	if quality == 0 {
		quality = DefaultQuality
	}
	if err := validation.ValidateQuality(quality); err != nil {
		return "", 0, err
	}

	if err := w.validator.ValidateSegment("job_id", req.JobID); err != nil {
		return "", 0, err
	}
	if err := w.validator.ValidateSegment("category", req.Category); err != nil {
		return "", 0, err
	}
	if req.BaseOutputDir == "" {
		return "", 0, apperrors.NewValidationError("base_output_dir cannot be empty", nil)
	}
	if _, ok := w.encoders[format]; !ok {
		return "", 0, apperrors.NewValidationError(fmt.Sprintf("no encoder registered for %q", format), nil)
	}
	return format, quality, nil
}

// write returns the destination path even on failure so callers can
// report where the write was attempted.
func (w *Writer) write(req SaveRequest, format Format, quality int) (string, error) {
	categoryDir := filepath.Join(req.BaseOutputDir, req.Category)
	destination := filepath.Join(categoryDir, req.JobID+"."+string(format))

	if err := os.MkdirAll(categoryDir, w.dirMode); err != nil {
		return destination, fmt.Errorf("create output directory: %w", err)
	}

	img, err := req.Image.ToImage()
	if err != nil {
		return destination, fmt.Errorf("convert image buffer: %w", err)
	}

	file, err := os.Create(destination)
	if err != nil {
		return destination, fmt.Errorf("create %s: %w", destination, err)
	}
	if err := w.encoders[format].Encode(file, img, quality); err != nil {
		file.Close()
		return destination, fmt.Errorf("encode %s: %w", format, err)
	}
	if err := file.Close(); err != nil {
		return destination, fmt.Errorf("close %s: %w", destination, err)
	}
	return destination, nil
}

func (w *Writer) mirrorArtifact(ctx context.Context, req SaveRequest, savedPath string, format Format) {
	if w.mirror.Name() == "none" {
		return
	}

	start := time.Now()
	key := path.Join(req.Category, req.JobID+"."+string(format))
	event := observer.Event{
		EventType: observer.ArtifactMirrored,
		JobID:     req.JobID,
		Category:  req.Category,
		Path:      key,
		Success:   true,
		Metadata:  map[string]interface{}{"mirror": w.mirror.Name()},
	}

	if err := w.mirror.Mirror(ctx, key, savedPath); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"path":   savedPath,
			"mirror": w.mirror.Name(),
		}).Warn("Artifact mirror failed; local file kept")
		event.EventType = observer.ArtifactMirrorFailed
		event.Success = false
		event.ErrorMessage = err.Error()
	}

	event.Timestamp = time.Now()
	event.Duration = time.Since(start)
	w.events.NotifyObservers(ctx, event)
}
