package diagnostics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fill-nodes-go/internal/strategy"
)

// cudaStrategy asks the NVIDIA driver for the first device's name, total
// memory and compute capability, e.g. "NVIDIA GeForce RTX 4090 24 GB (SM 89)".
func cudaStrategy(runner CommandRunner) strategy.LookupStrategy {
	return strategy.New("nvidia-smi", func(ctx context.Context) (string, error) {
		line, err := runForValue(ctx, runner, "nvidia-smi",
			"--query-gpu=name,memory.total,compute_cap",
			"--format=csv,noheader,nounits")
		if err != nil {
			return "", err
		}
		if line == "" {
			return "", strategy.ErrNotFound
		}
		return parseNvidiaSMI(line)
	})
}

func parseNvidiaSMI(line string) (string, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		return "", fmt.Errorf("unexpected nvidia-smi output %q", line)
	}
	name := strings.TrimSpace(fields[0])
	memoryMiB, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return "", fmt.Errorf("parse memory.total %q: %w", fields[1], err)
	}
	major, minor, ok := strings.Cut(strings.TrimSpace(fields[2]), ".")
	if !ok {
		return "", fmt.Errorf("parse compute_cap %q", fields[2])
	}
	return fmt.Sprintf("%s %.0f GB (SM %s%s)", name, memoryMiB/1024, major, minor), nil
}

// drmStrategy enumerates /sys/class/drm/card* and reports the card with
// the most dedicated memory, e.g. "AMD Radeon RX 9070 XT 16 GB (Arch gfx1201)".
// It works for any vendor whose kernel driver registers with DRM.
func drmStrategy(sysRoot string) strategy.LookupStrategy {
	return strategy.New("drm sysfs", func(context.Context) (string, error) {
		drmBase := filepath.Join(sysRoot, "class/drm")
		entries, err := os.ReadDir(drmBase)
		if err != nil {
			if os.IsNotExist(err) {
				return "", strategy.ErrNotFound
			}
			return "", err
		}

		var best *drmCard
		for _, entry := range entries {
			if !isCardDevice(entry.Name()) {
				continue
			}
			card := readDRMCard(filepath.Join(drmBase, entry.Name(), "device"))
			if card.vendor == "" {
				continue
			}
			if best == nil || card.vramBytes > best.vramBytes {
				c := card
				best = &c
			}
		}
		if best == nil {
			return "", strategy.ErrNotFound
		}
		return fmt.Sprintf("%s %.0f GB (Arch %s)", best.name, float64(best.vramBytes)/gib, best.arch), nil
	})
}

type drmCard struct {
	name      string
	vendor    string
	vramBytes int64
	arch      string
}

func readDRMCard(devicePath string) drmCard {
	vendor, deviceID := parsePCIUevent(devicePath)
	card := drmCard{
		vendor:    vendor,
		vramBytes: readSysfsInt64(filepath.Join(devicePath, "mem_info_vram_total")),
	}

	card.name = readSysfsString(filepath.Join(devicePath, "product_name"))
	if card.name == "" {
		card.name = strings.TrimSpace(vendor + " " + deviceID)
	}

	card.arch = readGFXVersion(devicePath)
	if card.arch == "" {
		card.arch = deviceID
	}
	return card
}

// readGFXVersion builds the LLVM target name (gfx1100, gfx90a, ...) from
// the graphics IP block version amdgpu publishes under ip_discovery.
func readGFXVersion(devicePath string) string {
	gc := filepath.Join(devicePath, "ip_discovery/die/0/GC/0")
	major := readSysfsString(filepath.Join(gc, "major"))
	minor := readSysfsString(filepath.Join(gc, "minor"))
	revision := readSysfsString(filepath.Join(gc, "revision"))
	if major == "" || minor == "" || revision == "" {
		return ""
	}
	rev, err := strconv.Atoi(revision)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("gfx%s%s%x", major, minor, rev)
}

// isCardDevice returns true for DRM card device names (card0, card1, ...)
// but not connectors (card0-DP-1) or render nodes (renderD128).
func isCardDevice(name string) bool {
	suffix, ok := strings.CutPrefix(name, "card")
	if !ok || suffix == "" {
		return false
	}
	for _, character := range suffix {
		if character < '0' || character > '9' {
			return false
		}
	}
	return true
}

// parsePCIUevent extracts the vendor name and device ID from lines like
//
//	PCI_ID=1002:744A
func parsePCIUevent(devicePath string) (vendor, deviceID string) {
	data, err := os.ReadFile(filepath.Join(devicePath, "uevent"))
	if err != nil {
		return "", ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		value, ok := strings.CutPrefix(line, "PCI_ID=")
		if !ok {
			continue
		}
		ids := strings.SplitN(strings.TrimSpace(value), ":", 2)
		if len(ids) == 2 {
			return pciVendorName(strings.ToLower(ids[0])), "0x" + strings.ToLower(ids[1])
		}
	}
	return "", ""
}

func pciVendorName(vendorID string) string {
	switch vendorID {
	case "1002":
		return "AMD"
	case "10de":
		return "NVIDIA"
	case "8086":
		return "Intel"
	case "":
		return ""
	default:
		return "0x" + vendorID
	}
}

func readSysfsString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func readSysfsInt64(path string) int64 {
	value, err := strconv.ParseInt(readSysfsString(path), 10, 64)
	if err != nil {
		return 0
	}
	return value
}
