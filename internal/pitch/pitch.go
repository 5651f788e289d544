// Package pitch drives the external ultrastar_pitch tool, which rewrites
// a finished chart's default-pitched notes with detected pitches.
package pitch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Generate runs ultrastar_pitch against the chart inside songFolder and
// swaps the pitched result in for the original. The chart written before
// the call stays on disk if pitching fails.
func Generate(ctx context.Context, songFolder string) error {
	tool, err := exec.LookPath("ultrastar_pitch")
	if err != nil {
		return fmt.Errorf("ultrastar_pitch not found in PATH: %w", err)
	}

	chartPath := filepath.Join(songFolder, filepath.Base(songFolder)+".txt")
	pitchedPath := filepath.Join(songFolder, "pitched.txt")

	cmd := exec.CommandContext(ctx, tool, chartPath, "-o", pitchedPath)
	cmd.Dir = songFolder
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ultrastar_pitch failed: %w\n%s", err, output)
	}

	if err := os.Remove(chartPath); err != nil {
		return fmt.Errorf("failed to replace chart with pitched version: %w", err)
	}
	if err := os.Rename(pitchedPath, chartPath); err != nil {
		return fmt.Errorf("failed to move pitched chart into place: %w", err)
	}
	return nil
}
