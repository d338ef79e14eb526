// Package diagnostics reports facts about the host machine and runtime:
// OS, CPU, memory, GPU, library versions and selected environment
// variables. Every fact is looked up independently; a failed lookup
// yields a sentinel string for that key and never aborts the report.
package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"fill-nodes-go/internal/logger"
	"fill-nodes-go/internal/observer"
	"fill-nodes-go/internal/strategy"
)

// Sentinel values reported in place of a fact.
const (
	NotInstalled        = "Not installed"
	NotSet              = "Not set"
	UnableToDetermine   = "Unable to determine"
	NoGPUFound          = "No GPU found (AMD or NVIDIA)"
	envKeyPrefix        = "Env: "
	defaultPythonBinary = "python3"
)

// DefaultEnvVars lists the environment variables reported by default.
func DefaultEnvVars() []string {
	return []string{"PYTHONPATH", "CUDA_HOME", "LD_LIBRARY_PATH"}
}

// Fact is one report entry and the lookups that can fill it.
type Fact struct {
	Key         string
	Chain       *strategy.Chain
	Unavailable string
	// OnError renders a failed chain. Nil means report Unavailable.
	OnError func(err error) string
}

func (f Fact) resolve(ctx context.Context) string {
	value, err := f.Chain.Resolve(ctx)
	if err == nil {
		return value
	}
	if errors.Is(err, strategy.ErrNotFound) {
		return f.Unavailable
	}

	logger.WithError(err).WithField("fact", f.Key).Debug("Diagnostics lookup failed")
	if f.OnError == nil {
		return f.Unavailable
	}
	return f.OnError(err)
}

// Options configures a Gatherer. Zero values select production defaults.
type Options struct {
	Python         string
	Libraries      []Library
	EnvVars        []string
	Runner         CommandRunner
	Host           HostProbe
	SysRoot        string
	ProcRoot       string
	LookupEnv      func(string) (string, bool)
	ReadBuildInfo  func() (*debug.BuildInfo, bool)
	NativeVersions map[string]func() string
	Events         observer.Subject
}

// Gatherer builds diagnostics reports. The fact list is fixed at
// construction; values are looked up fresh on every Gather.
type Gatherer struct {
	facts  []Fact
	events observer.Subject
}

// NewGatherer creates a gatherer for the given options
func NewGatherer(opts Options) *Gatherer {
	if opts.Python == "" {
		opts.Python = defaultPythonBinary
	}
	if opts.Libraries == nil {
		opts.Libraries = DefaultLibraries()
	}
	if opts.EnvVars == nil {
		opts.EnvVars = DefaultEnvVars()
	}
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if opts.Host == nil {
		opts.Host = NewHostProbe()
	}
	if opts.SysRoot == "" {
		opts.SysRoot = "/sys"
	}
	if opts.ProcRoot == "" {
		opts.ProcRoot = "/proc"
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	if opts.ReadBuildInfo == nil {
		opts.ReadBuildInfo = debug.ReadBuildInfo
	}
	if opts.NativeVersions == nil {
		opts.NativeVersions = DefaultNativeVersions()
	}
	if opts.Events == nil {
		opts.Events = observer.Nop{}
	}

	return &Gatherer{facts: buildFacts(opts), events: opts.Events}
}

func buildFacts(opts Options) []Fact {
	libs := &libraryLookups{
		runner:         opts.Runner,
		python:         opts.Python,
		readBuildInfo:  opts.ReadBuildInfo,
		nativeVersions: opts.NativeVersions,
	}
	errorf := func(prefix string) func(error) string {
		return func(err error) string { return fmt.Sprintf("%s: %v", prefix, err) }
	}
	fixed := func(s string) func(error) string {
		return func(error) string { return s }
	}

	facts := []Fact{
		{
			Key:         "Go version",
			Chain:       strategy.NewChain(strategy.Static("runtime", strings.TrimPrefix(runtime.Version(), "go"))),
			Unavailable: UnableToDetermine,
		},
		{
			Key:         "Python version",
			Chain:       strategy.NewChain(libs.pythonVersion()),
			Unavailable: NotInstalled,
		},
		{
			Key:         "Operating System",
			Chain:       strategy.NewChain(osStrategies(opts.Host)...),
			Unavailable: UnableToDetermine,
			OnError:     fixed("OS info error"),
		},
		{
			Key:         "CPU",
			Chain:       strategy.NewChain(cpuStrategies(opts.Host, opts.ProcRoot)...),
			Unavailable: UnableToDetermine,
			OnError:     fixed("CPU info error"),
		},
		{
			Key:         "RAM",
			Chain:       strategy.NewChain(memoryStrategies(opts.Host)...),
			Unavailable: UnableToDetermine,
			OnError:     fixed("RAM info error"),
		},
		{
			Key:         "GPU",
			Chain:       strategy.NewChain(cudaStrategy(opts.Runner), drmStrategy(opts.SysRoot)),
			Unavailable: NoGPUFound,
			OnError:     errorf("GPU detection error"),
		},
	}

	for _, lib := range opts.Libraries {
		facts = append(facts, Fact{
			Key:         lib.Name,
			Chain:       strategy.NewChain(libs.strategies(lib)...),
			Unavailable: NotInstalled,
			OnError:     errorf("Version lookup error"),
		})
	}

	for _, name := range opts.EnvVars {
		name := name
		facts = append(facts, Fact{
			Key: envKeyPrefix + name,
			Chain: strategy.NewChain(strategy.New("environment", func(context.Context) (string, error) {
				if value, ok := opts.LookupEnv(name); ok {
					return value, nil
				}
				return "", strategy.ErrNotFound
			})),
			Unavailable: NotSet,
		})
	}

	return facts
}

// Keys returns the declared fact names in report order.
func (g *Gatherer) Keys() []string {
	keys := make([]string, len(g.facts))
	for i, f := range g.facts {
		keys[i] = f.Key
	}
	return keys
}

// Gather looks up every fact once, in declaration order. It fails only
// when ctx is done before the report is complete.
func (g *Gatherer) Gather(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := NewReport()

	for _, fact := range g.facts {
		if err := ctx.Err(); err != nil {
			g.events.NotifyObservers(ctx, observer.Event{
				EventType:    observer.DiagnosticsFailed,
				Timestamp:    time.Now(),
				Duration:     time.Since(start),
				ErrorMessage: err.Error(),
			})
			return nil, fmt.Errorf("gather diagnostics: %w", err)
		}
		report.Set(fact.Key, fact.resolve(ctx))
	}

	logger.WithFields(logrus.Fields{
		"facts":       report.Len(),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Diagnostics gathered")

	g.events.NotifyObservers(ctx, observer.Event{
		EventType: observer.DiagnosticsGathered,
		Timestamp: time.Now(),
		Duration:  time.Since(start),
		Success:   true,
		Metadata:  map[string]interface{}{"facts": report.Len()},
	})
	return report, nil
}
