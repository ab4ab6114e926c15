package outwriter

import (
	"os"

	"github.com/huangsam/geoseries/internal/contract"
	"golang.org/x/term"
)

// GetMaxTablePathWidth calculates the maximum width for output paths in job
// tables based on terminal width.
func GetMaxTablePathWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Name + Format + Status columns with borders/padding
	baseWidth := 60

	available := termWidth - baseWidth
	if available < 15 {
		return 15
	}
	if available > 70 {
		return 70
	}
	return available
}
