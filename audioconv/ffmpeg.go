package audioconv

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// FindFFmpeg locates the ffmpeg binary: an explicitly configured path wins,
// then PATH, then the usual install locations per platform.
func FindFFmpeg(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured, nil
		}
		return "", fmt.Errorf("configured ffmpeg path not found: %s", configured)
	}

	if path, err := exec.LookPath("ffmpeg"); err == nil {
		return path, nil
	}

	for _, loc := range commonLocations() {
		if _, err := os.Stat(loc); err == nil {
			return loc, nil
		}
	}
	return "", fmt.Errorf("ffmpeg not found in PATH or common install locations")
}

func commonLocations() []string {
	if runtime.GOOS == "windows" {
		var locs []string
		roots := []string{
			os.Getenv("ProgramFiles"),
			os.Getenv("ProgramFiles(x86)"),
			os.Getenv("LOCALAPPDATA"),
		}
		home, _ := os.UserHomeDir()
		if home != "" {
			roots = append(roots, home)
		}
		for _, root := range roots {
			if root == "" {
				continue
			}
			locs = append(locs,
				filepath.Join(root, "ffmpeg", "bin", "ffmpeg.exe"),
				filepath.Join(root, "FFmpeg", "bin", "ffmpeg.exe"),
				filepath.Join(root, "Programs", "ffmpeg", "bin", "ffmpeg.exe"),
			)
		}
		return locs
	}

	home, _ := os.UserHomeDir()
	locs := []string{
		"/usr/bin/ffmpeg",
		"/usr/local/bin/ffmpeg",
		"/opt/local/bin/ffmpeg",
		"/opt/homebrew/bin/ffmpeg",
	}
	if home != "" {
		locs = append(locs, filepath.Join(home, "bin", "ffmpeg"))
	}
	return locs
}
