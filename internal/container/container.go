package container

import (
	"fmt"
	"net/http"
	"path/filepath"

	"fill-nodes-go/internal/artifact"
	"fill-nodes-go/internal/config"
	"fill-nodes-go/internal/diagnostics"
	"fill-nodes-go/internal/factory"
	"fill-nodes-go/internal/logger"
	"fill-nodes-go/internal/node"
	"fill-nodes-go/internal/observer"
	"fill-nodes-go/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config   *config.Config
	events   *observer.EventPublisher
	metrics  *observer.MetricsObserver
	writer   *artifact.Writer
	gatherer *diagnostics.Gatherer
	nodes    []node.Descriptor
	handler  http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	outputDir, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}
	cfg.OutputDir = outputDir

	// Build dependency graph
	events := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	mirror, err := factory.NewMirrorFactory(cfg).CreateMirror(factory.MirrorType(cfg.MirrorBackend))
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact mirror: %w", err)
	}

	writer := artifact.NewWriter(artifact.WithMirror(mirror), artifact.WithEvents(events))
	gatherer := NewGatherer(cfg, events)
	nodes := node.Registry(writer)

	handler := transport.NewHandler(transport.Dependencies{
		Saver:    writer,
		Gatherer: gatherer,
		Metrics:  metrics,
		Nodes:    nodes,
	}, cfg)

	return &Container{
		config:   cfg,
		events:   events,
		metrics:  metrics,
		writer:   writer,
		gatherer: gatherer,
		nodes:    nodes,
		handler:  handler,
	}, nil
}

// NewGatherer builds a diagnostics gatherer from configuration. events
// may be nil.
func NewGatherer(cfg *config.Config, events observer.Subject) *diagnostics.Gatherer {
	var libraries []diagnostics.Library
	if cfg.Libraries != nil {
		libraries = make([]diagnostics.Library, len(cfg.Libraries))
		for i, spec := range cfg.Libraries {
			libraries[i] = diagnostics.Library{
				Name:    spec.Name,
				Module:  spec.Module,
				Package: spec.Package,
				Import:  spec.Import,
				Native:  spec.Native,
			}
		}
	}

	return diagnostics.NewGatherer(diagnostics.Options{
		Python:    cfg.Python,
		Libraries: libraries,
		EnvVars:   cfg.EnvVars,
		Events:    events,
	})
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Writer returns the artifact writer
func (c *Container) Writer() *artifact.Writer {
	return c.writer
}

// Gatherer returns the diagnostics gatherer
func (c *Container) Gatherer() *diagnostics.Gatherer {
	return c.gatherer
}

// Metrics returns the event metrics observer
func (c *Container) Metrics() *observer.MetricsObserver {
	return c.metrics
}
