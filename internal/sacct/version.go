package sacct

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"
)

// MinimumVersion is the oldest Slurm release whose sacct reports TotalCPU
// and CPUTimeRAW for every step.
const MinimumVersion = "17.11"

// Version runs `sacct --version` and parses output like "slurm 23.02.7".
func Version(ctx context.Context, r Runner, program string) (*version.Version, error) {
	if program == "" {
		program = DefaultProgram
	}
	stdout, _, err := r.Run(ctx, program, "--version")
	if err != nil {
		return nil, fmt.Errorf("failed to run %s --version: %w", program, err)
	}
	return ParseVersion(string(stdout))
}

// ParseVersion extracts the release from sacct's version banner.
func ParseVersion(banner string) (*version.Version, error) {
	fields := strings.Fields(banner)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty version banner")
	}
	// "slurm 23.02.7" or "slurm-wlm 21.08.5"
	raw := fields[len(fields)-1]
	v, err := version.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid sacct version %q: %w", raw, err)
	}
	return v, nil
}

// CheckVersion reports whether v is at least MinimumVersion.
func CheckVersion(v *version.Version) bool {
	minimum := version.Must(version.NewVersion(MinimumVersion))
	return v.GreaterThanOrEqual(minimum)
}
