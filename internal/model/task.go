package model

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DownloadTask represents a single download of a URL to a local path
type DownloadTask struct {
	ID          string
	URL         string
	ContentType ContentType
	Status      TaskStatus
	Progress    float64   // 0.0 to 1.0
	Percent     int       // 0 to 100
	Speed       string    // human readable speed (e.g., "1.2MB/s")
	ETASec      int       // ETA in seconds, -1 if unknown
	LastError   string    // last error message if any
	OutputPath  string    // path to downloaded file
	StartedAt   time.Time // when download started
	FinishedAt  time.Time // when download finished
	Title       string    // media title reported by yt-dlp
	FileSize    int64     // bytes written
}

// WatermarkTask represents inpainting of one video file
type WatermarkTask struct {
	ID          string
	InputPath   string
	OutputPath  string
	Status      TaskStatus
	Progress    float64 // 0.0 to 1.0
	Percent     int     // 0 to 100
	Frames      int     // frames written so far
	TotalFrames int     // frame count reported by the container, 0 if unknown
	LastError   string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// RemuxTask represents muxing the source audio back into an inpainted video
type RemuxTask struct {
	ID         string
	VideoPath  string // inpainted, silent video
	AudioPath  string // original download carrying the audio track
	OutputPath string
	Status     TaskStatus
	Progress   float64 // 0.0 to 1.0
	Percent    int     // 0 to 100
	LastError  string  // last error message if any
	StartedAt  time.Time
	FinishedAt time.Time
}

// SetFrameProgress records frames written against the expected total
func (wt *WatermarkTask) SetFrameProgress(frames, total int) {
	wt.Frames = frames
	wt.TotalFrames = total
	if total <= 0 {
		return
	}
	progress := float64(frames) / float64(total)
	if progress > 1.0 {
		progress = 1.0
	}
	wt.Progress = progress
	wt.Percent = int(progress * 100)
}

// GetETAString returns ETA formatted as hh:mm:ss, or "—" if unknown
func (dt *DownloadTask) GetETAString() string {
	if dt.ETASec <= 0 {
		return "—"
	}

	hours := dt.ETASec / 3600
	minutes := (dt.ETASec % 3600) / 60
	seconds := dt.ETASec % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// GetDisplayTitle returns title, filename, or URL in order of preference
func (dt *DownloadTask) GetDisplayTitle() string {
	if dt.Title != "" && !strings.HasPrefix(dt.Title, "http") {
		return dt.Title
	}

	if dt.OutputPath != "" {
		filename := filepath.Base(dt.OutputPath)
		if idx := strings.LastIndex(filename, "."); idx > 0 {
			filename = filename[:idx]
		}
		return filename
	}

	return dt.URL
}
