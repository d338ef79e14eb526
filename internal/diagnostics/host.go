package diagnostics

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"fill-nodes-go/internal/strategy"
)

// HostProbe is the subset of gopsutil the reporter reads.
type HostProbe interface {
	HostInfo(ctx context.Context) (*host.InfoStat, error)
	CPUInfo(ctx context.Context) ([]cpu.InfoStat, error)
	VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

type gopsutilProbe struct{}

// NewHostProbe returns a probe backed by gopsutil.
func NewHostProbe() HostProbe {
	return gopsutilProbe{}
}

func (gopsutilProbe) HostInfo(ctx context.Context) (*host.InfoStat, error) {
	return host.InfoWithContext(ctx)
}

func (gopsutilProbe) CPUInfo(ctx context.Context) ([]cpu.InfoStat, error) {
	return cpu.InfoWithContext(ctx)
}

func (gopsutilProbe) VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error) {
	return mem.VirtualMemoryWithContext(ctx)
}

const gib = 1024 * 1024 * 1024

// systemName turns a GOOS-style identifier into "Linux", "Darwin", ...
func systemName(goos string) string {
	return cases.Title(language.English).String(strings.TrimSpace(goos))
}

// formatOS renders "<System> <release>" with the distribution appended
// in parentheses when known, e.g. "Linux 6.8.0-45-generic (ubuntu 24.04)".
func formatOS(info *host.InfoStat) string {
	name := systemName(info.OS)
	if name == "" {
		name = systemName(runtime.GOOS)
	}
	if info.KernelVersion != "" {
		name += " " + info.KernelVersion
	}
	detail := strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
	if detail != "" {
		name += " (" + detail + ")"
	}
	return name
}

func osStrategies(probe HostProbe) []strategy.LookupStrategy {
	return []strategy.LookupStrategy{
		strategy.New("gopsutil host", func(ctx context.Context) (string, error) {
			info, err := probe.HostInfo(ctx)
			if err != nil {
				return "", err
			}
			return formatOS(info), nil
		}),
		strategy.New("runtime", func(context.Context) (string, error) {
			return systemName(runtime.GOOS), nil
		}),
	}
}

func cpuStrategies(probe HostProbe, procRoot string) []strategy.LookupStrategy {
	return []strategy.LookupStrategy{
		strategy.New("gopsutil cpu", func(ctx context.Context) (string, error) {
			infos, err := probe.CPUInfo(ctx)
			if err != nil {
				return "", err
			}
			for _, info := range infos {
				if model := strings.TrimSpace(info.ModelName); model != "" {
					return model, nil
				}
			}
			return "", strategy.ErrNotFound
		}),
		strategy.New("cpuinfo", func(context.Context) (string, error) {
			return readCPUModel(filepath.Join(procRoot, "cpuinfo"))
		}),
	}
}

// readCPUModel extracts the first "model name" line from /proc/cpuinfo.
func readCPUModel(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", strategy.ErrNotFound
		}
		return "", err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "model name") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				return strings.TrimSpace(parts[1]), nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", strategy.ErrNotFound
}

func memoryStrategies(probe HostProbe) []strategy.LookupStrategy {
	return []strategy.LookupStrategy{
		strategy.New("gopsutil mem", func(ctx context.Context) (string, error) {
			vm, err := probe.VirtualMemory(ctx)
			if err != nil {
				return "", err
			}
			if vm.Total == 0 {
				return "", strategy.ErrNotFound
			}
			return fmt.Sprintf("%.2f GB", float64(vm.Total)/gib), nil
		}),
	}
}
