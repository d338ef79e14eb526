package diagnostics

import (
	"context"
	"runtime/debug"

	"github.com/otiai10/gosseract/v2"

	"fill-nodes-go/internal/strategy"
)

// Library identifies one dependency whose version goes into the report.
// Lookups run in this order, each only when its key is set:
//   - Module: Go module path in this binary's build info
//   - Package: Python distribution name, via importlib.metadata
//   - Import: Python module name, via its __version__ attribute
//   - Native: a linked C library that reports its own version
//
// When Package is empty but Import is set, the import name is also tried
// as the distribution name.
type Library struct {
	Name    string
	Module  string
	Package string
	Import  string
	Native  string
}

// DefaultLibraries is the version list reported when no profile overrides it.
func DefaultLibraries() []Library {
	return []Library{
		{Name: "PyTorch", Import: "torch"},
		{Name: "torchvision", Import: "torchvision"},
		{Name: "torchaudio", Import: "torchaudio"},
		{Name: "xformers", Import: "xformers"},
		{Name: "sageattention", Import: "sageattention", Package: "sageattention"},
		{Name: "Triton", Import: "triton"},
		{Name: "OpenCV", Import: "cv2", Package: "opencv-python"},
		{Name: "Pillow", Import: "PIL", Package: "pillow"},
		{Name: "numpy", Import: "numpy"},
		{Name: "transformers", Import: "transformers"},
		{Name: "diffusers", Import: "diffusers"},
		{Name: "Tesseract", Native: "tesseract"},
		{Name: "gin", Module: "github.com/gin-gonic/gin"},
		{Name: "libwebp", Module: "github.com/chai2010/webp"},
	}
}

// DefaultNativeVersions maps Library.Native keys to version reporters of
// C libraries linked into this binary.
func DefaultNativeVersions() map[string]func() string {
	return map[string]func() string{
		"tesseract": gosseract.Version,
	}
}

const (
	pythonMetadataScript = "import sys, importlib.metadata as m; print(m.version(sys.argv[1]))"
	pythonImportScript   = "import sys, importlib; mod = importlib.import_module(sys.argv[1]); print(getattr(mod, '__version__', 'No version attribute'))"
	pythonVersionScript  = "import platform; print(platform.python_version())"
)

type libraryLookups struct {
	runner         CommandRunner
	python         string
	readBuildInfo  func() (*debug.BuildInfo, bool)
	nativeVersions map[string]func() string
}

func (l *libraryLookups) strategies(lib Library) []strategy.LookupStrategy {
	var chain []strategy.LookupStrategy
	if lib.Module != "" {
		chain = append(chain, l.buildInfo(lib.Module))
	}
	pkg := lib.Package
	if pkg == "" {
		pkg = lib.Import
	}
	if pkg != "" && l.python != "" {
		chain = append(chain, l.pythonScript("python metadata", pythonMetadataScript, pkg))
	}
	if lib.Import != "" && l.python != "" {
		chain = append(chain, l.pythonScript("python import", pythonImportScript, lib.Import))
	}
	if lib.Native != "" {
		chain = append(chain, l.native(lib.Native))
	}
	return chain
}

func (l *libraryLookups) buildInfo(module string) strategy.LookupStrategy {
	return strategy.New("build info", func(context.Context) (string, error) {
		info, ok := l.readBuildInfo()
		if !ok {
			return "", strategy.ErrNotFound
		}
		if info.Main.Path == module {
			return info.Main.Version, nil
		}
		for _, dep := range info.Deps {
			if dep.Path != module {
				continue
			}
			if dep.Replace != nil && dep.Replace.Version != "" {
				return dep.Replace.Version, nil
			}
			return dep.Version, nil
		}
		return "", strategy.ErrNotFound
	})
}

func (l *libraryLookups) pythonScript(name, script, arg string) strategy.LookupStrategy {
	return strategy.New(name, func(ctx context.Context) (string, error) {
		return runForValue(ctx, l.runner, l.python, "-c", script, arg)
	})
}

func (l *libraryLookups) native(key string) strategy.LookupStrategy {
	return strategy.New("native "+key, func(context.Context) (string, error) {
		version, ok := l.nativeVersions[key]
		if !ok {
			return "", strategy.ErrNotFound
		}
		return version(), nil
	})
}

func (l *libraryLookups) pythonVersion() strategy.LookupStrategy {
	return strategy.New("python", func(ctx context.Context) (string, error) {
		if l.python == "" {
			return "", strategy.ErrNotFound
		}
		return runForValue(ctx, l.runner, l.python, "-c", pythonVersionScript)
	})
}
