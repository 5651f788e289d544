package ffmpeg

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// FFmpegPath resolves the ffmpeg binary to use: an explicit override
// first, then a bundled copy in a tools directory beside the executable,
// finally whatever is on PATH.
func FFmpegPath(override string) (string, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", fmt.Errorf("configured ffmpeg path not usable: %w", err)
		}
		return override, nil
	}

	if bundled := bundledPath(); bundled != "" {
		return bundled, nil
	}

	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found in tools directory or PATH: %w", err)
	}
	return path, nil
}

func bundledPath() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}

	name := "ffmpeg"
	if runtime.GOOS == "windows" {
		name = "ffmpeg.exe"
	}

	candidate := filepath.Join(filepath.Dir(exe), "tools", name)
	if _, err := os.Stat(candidate); err != nil {
		return ""
	}
	return candidate
}
