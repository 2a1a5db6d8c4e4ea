// Package hardware probes the GPU, RAM, CPU, and hosting platform, and maps
// the result to a launch profile: the VRAM-appropriate argument set for each
// WebUI family.
package hardware

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// Platform identifies the hosting environment.
type Platform string

const (
	PlatformColab      Platform = "colab"
	PlatformKaggle     Platform = "kaggle"
	PlatformPaperspace Platform = "paperspace"
	PlatformLightning  Platform = "lightning"
	PlatformLocal      Platform = "local"
)

// Cloud reports whether the platform is a hosted notebook that needs a
// public share URL to be reachable.
func (p Platform) Cloud() bool {
	return p != PlatformLocal && p != ""
}

// GPU describes the first visible NVIDIA device.
type GPU struct {
	Name    string `json:"name"`
	VRAMMiB int    `json:"vram_mib"`
}

// Info is one hardware probe result.
type Info struct {
	GPU      *GPU     `json:"gpu,omitempty"`
	RAMMiB   int      `json:"ram_mib"`
	CPUs     int      `json:"cpus"`
	Platform Platform `json:"platform"`
	Warnings []string `json:"warnings,omitempty"`
}

// Detect probes the machine. It never fails: anything it cannot read is left
// zero and noted in Warnings.
func Detect(ctx context.Context) Info {
	info := Info{
		CPUs:     runtime.NumCPU(),
		Platform: detectPlatform(os.Getenv),
	}

	gpu, err := detectGPU(ctx)
	if err != nil {
		info.Warnings = append(info.Warnings, fmt.Sprintf("GPU detection: %v", err))
	} else {
		info.GPU = gpu
	}

	ram, err := readMemTotalMiB()
	if err != nil {
		info.Warnings = append(info.Warnings, fmt.Sprintf("RAM detection: %v", err))
	} else {
		info.RAMMiB = ram
	}

	return info
}

func detectPlatform(getenv func(string) string) Platform {
	switch {
	case getenv("COLAB_GPU") != "" || getenv("COLAB_RELEASE_TAG") != "":
		return PlatformColab
	case getenv("KAGGLE_KERNEL_RUN_TYPE") != "":
		return PlatformKaggle
	case getenv("PAPERSPACE_NOTEBOOK_ID") != "" || getenv("PAPERSPACE_CLUSTER_ID") != "":
		return PlatformPaperspace
	case getenv("LIGHTNING_CLOUD_PROJECT_ID") != "":
		return PlatformLightning
	}
	return PlatformLocal
}

func detectGPU(ctx context.Context) (*GPU, error) {
	if _, err := exec.LookPath("nvidia-smi"); err != nil {
		return nil, fmt.Errorf("nvidia-smi not on PATH")
	}
	cmd := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=name,memory.total", "--format=csv,noheader,nounits")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("nvidia-smi: %w", err)
	}
	return parseNvidiaSMI(string(out))
}

// parseNvidiaSMI reads the first line of
// "NVIDIA GeForce RTX 3060, 12288" style output.
func parseNvidiaSMI(out string) (*GPU, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	name, mem, ok := strings.Cut(line, ",")
	if !ok {
		return nil, fmt.Errorf("unexpected nvidia-smi output %q", line)
	}
	vram, err := strconv.ParseFloat(strings.TrimSpace(mem), 64)
	if err != nil {
		return nil, fmt.Errorf("unexpected VRAM value %q", strings.TrimSpace(mem))
	}
	return &GPU{Name: strings.TrimSpace(name), VRAMMiB: int(vram)}, nil
}

func readMemTotalMiB() (int, error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return parseMemTotal(f)
}

// parseMemTotal extracts MemTotal (reported in KiB) from /proc/meminfo.
func parseMemTotal(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kib, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0, fmt.Errorf("unexpected MemTotal %q", line)
		}
		return kib / 1024, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("no MemTotal in /proc/meminfo")
}

// Summary renders the probe as aligned key/value pairs.
func (i Info) Summary() [][2]string {
	pairs := [][2]string{}
	if i.GPU != nil {
		pairs = append(pairs,
			[2]string{"GPU", i.GPU.Name},
			[2]string{"VRAM", fmt.Sprintf("%.1f GiB", float64(i.GPU.VRAMMiB)/1024)},
		)
	} else {
		pairs = append(pairs, [2]string{"GPU", "none detected"})
	}
	pairs = append(pairs,
		[2]string{"RAM", fmt.Sprintf("%.1f GiB", float64(i.RAMMiB)/1024)},
		[2]string{"CPUs", strconv.Itoa(i.CPUs)},
		[2]string{"Platform", string(i.Platform)},
	)
	return pairs
}
