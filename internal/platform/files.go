package platform

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// Operating system constants
const (
	OSDarwin  = "darwin"
	OSWindows = "windows"
	OSLinux   = "linux"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// Command constants
const (
	OpenCommand     = "open"
	ExplorerCommand = "explorer"
	XDGOpenCommand  = "xdg-open"
)

// Command parameters
const (
	MacOSSelectFlag    = "-R"
	WindowsSelectParam = "/select,"
)

// File manager names
var (
	LinuxFileManagers = []string{"nautilus", "dolphin", "thunar", "nemo", "pcmanfm"}
)

// Container extensions yt-dlp may pick when merging streams, in preference order
var (
	MediaExtensions = []string{".mp4", ".mkv", ".webm", ".mov", ".m4a", ".mp3", ".opus", ".ogg"}
)

// File extensions to skip
var (
	SkippedExtensions = []string{".part", ".ytdl"}
)

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// FileExists reports whether path exists and is a regular file
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// FileSize returns the size of path in bytes, or 0 if it cannot be read
func FileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// FindMediaFile returns filePath if it exists, otherwise a sibling with the
// same base name and a known media extension. yt-dlp may write "video.mkv"
// when asked for "video.mp4" if the streams cannot be merged into mp4.
func FindMediaFile(filePath string) (string, error) {
	if filePath == "" {
		return "", fmt.Errorf("file path is empty")
	}

	if FileExists(filePath) {
		return filePath, nil
	}

	dir := filepath.Dir(filePath)
	baseName := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if isSkippedExtension(ext) || strings.TrimSuffix(name, filepath.Ext(name)) != baseName {
			continue
		}
		if mediaRank(ext) < 0 {
			continue
		}
		candidates = append(candidates, filepath.Join(dir, name))
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("file not found: %s", filePath)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return mediaRank(strings.ToLower(filepath.Ext(candidates[i]))) < mediaRank(strings.ToLower(filepath.Ext(candidates[j])))
	})
	return candidates[0], nil
}

// mediaRank returns the preference index of ext, or -1 if it is not media
func mediaRank(ext string) int {
	for i, candidate := range MediaExtensions {
		if candidate == ext {
			return i
		}
	}
	return -1
}

func isSkippedExtension(ext string) bool {
	for _, skipped := range SkippedExtensions {
		if ext == skipped {
			return true
		}
	}
	return false
}

// OpenFileInManager opens the file in the system file manager and highlights it
func OpenFileInManager(filePath string) error {
	if !FileExists(filePath) {
		return fmt.Errorf("file does not exist: %s", filePath)
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	switch runtime.GOOS {
	case OSDarwin: // macOS
		return exec.Command(OpenCommand, MacOSSelectFlag, absPath).Run()
	case OSWindows:
		return exec.Command(ExplorerCommand, WindowsSelectParam, absPath).Run()
	case OSLinux:
		return openFileInManagerLinux(absPath)
	default:
		return fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// openFileInManagerLinux opens directory containing file on Linux
// Note: File selection is not standardized on Linux, so we open the parent directory
func openFileInManagerLinux(filePath string) error {
	dir := filepath.Dir(filePath)

	// Try xdg-open first (most common)
	if err := exec.Command(XDGOpenCommand, dir).Run(); err == nil {
		return nil
	}

	// Fallback to common file managers
	for _, fm := range LinuxFileManagers {
		if _, err := exec.LookPath(fm); err == nil {
			return exec.Command(fm, dir).Run()
		}
	}

	return fmt.Errorf("no suitable file manager found")
}
