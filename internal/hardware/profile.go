package hardware

// Tier buckets the machine by usable VRAM.
type Tier string

const (
	TierCPU    Tier = "cpu"
	TierLow    Tier = "low-vram"
	TierMedium Tier = "medium-vram"
	TierHigh   Tier = "high-vram"
)

// VRAM cutoffs in MiB. Cards at or below lowVRAMMiB need aggressive
// offloading; above mediumVRAMMiB everything fits.
const (
	lowVRAMMiB    = 4096
	mediumVRAMMiB = 8192
)

// ArgStyle names a WebUI's flag dialect. Forge and A1111 share one.
type ArgStyle string

const (
	StyleA1111   ArgStyle = "a1111"
	StyleComfy   ArgStyle = "comfy"
	StyleFooocus ArgStyle = "fooocus"
)

// Profile is the launch tuning derived from a hardware probe.
type Profile struct {
	Tier      Tier `json:"tier"`
	BatchSize int  `json:"batch_size"`
}

// ProfileFor maps a probe to a tier. A missing GPU means CPU rendering; a
// probe that saw a GPU but no VRAM figure gets the medium tier as a safe
// middle ground.
func ProfileFor(info Info) Profile {
	if info.GPU == nil {
		return Profile{Tier: TierCPU, BatchSize: 1}
	}
	switch vram := info.GPU.VRAMMiB; {
	case vram <= 0:
		return Profile{Tier: TierMedium, BatchSize: 2}
	case vram <= lowVRAMMiB:
		return Profile{Tier: TierLow, BatchSize: 1}
	case vram <= mediumVRAMMiB:
		return Profile{Tier: TierMedium, BatchSize: 2}
	default:
		return Profile{Tier: TierHigh, BatchSize: 4}
	}
}

var tierArgs = map[ArgStyle]map[Tier][]string{
	StyleA1111: {
		TierCPU:    {"--use-cpu", "all", "--no-half", "--skip-torch-cuda-test"},
		TierLow:    {"--medvram", "--lowvram"},
		TierMedium: {"--medvram"},
		TierHigh:   {"--xformers"},
	},
	StyleComfy: {
		TierCPU:    {"--cpu"},
		TierLow:    {"--lowvram"},
		TierMedium: {"--normalvram"},
		TierHigh:   {"--highvram"},
	},
	StyleFooocus: {
		TierCPU:    {"--always-cpu"},
		TierLow:    {"--always-low-vram"},
		TierMedium: {},
		TierHigh:   {"--always-high-vram"},
	},
}

// Args returns the tuning flags for the tier in the given dialect. The
// returned slice is a copy.
func (p Profile) Args(style ArgStyle) []string {
	styles, ok := tierArgs[style]
	if !ok {
		return nil
	}
	args, ok := styles[p.Tier]
	if !ok {
		return nil
	}
	out := make([]string, len(args))
	copy(out, args)
	return out
}
