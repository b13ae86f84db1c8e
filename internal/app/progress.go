package app

import (
	"fmt"
	"io"
	"sync"

	"github.com/ytget/media-downloader/internal/model"
)

// ProgressPrinter renders task updates as console lines. A line is written
// only when the integer percent of a task changes.
type ProgressPrinter struct {
	out  io.Writer
	mu   sync.Mutex
	last map[string]int
}

// NewProgressPrinter creates a printer writing to out
func NewProgressPrinter(out io.Writer) *ProgressPrinter {
	return &ProgressPrinter{out: out, last: make(map[string]int)}
}

// Download prints a download task update
func (p *ProgressPrinter) Download(task *model.DownloadTask) {
	if !reportable(task.Status) || !p.changed(task.ID, task.Percent) {
		return
	}
	line := fmt.Sprintf("%s: %d%%", task.GetDisplayTitle(), task.Percent)
	if task.Speed != "" {
		line += " " + task.Speed
	}
	if task.ETASec > 0 {
		line += " ETA " + task.GetETAString()
	}
	p.println(line)
}

// Watermark prints an inpainting task update
func (p *ProgressPrinter) Watermark(task *model.WatermarkTask) {
	if task.Status != model.TaskStatusProcessing || task.TotalFrames <= 0 {
		return
	}
	if p.changed(task.ID, task.Percent) {
		p.println(fmt.Sprintf("Inpainting: %d%% (%d/%d frames)", task.Percent, task.Frames, task.TotalFrames))
	}
}

// Remux prints an audio restoration task update
func (p *ProgressPrinter) Remux(task *model.RemuxTask) {
	if !reportable(task.Status) {
		return
	}
	if p.changed(task.ID, task.Percent) {
		p.println(fmt.Sprintf("Restoring audio: %d%%", task.Percent))
	}
}

// reportable is true while a task makes progress and once it completes, so
// the final 100% line is printed
func reportable(status model.TaskStatus) bool {
	return status == model.TaskStatusDownloading || status == model.TaskStatusProcessing || status == model.TaskStatusCompleted
}

func (p *ProgressPrinter) changed(id string, percent int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if last, ok := p.last[id]; ok && last == percent {
		return false
	}
	p.last[id] = percent
	return true
}

func (p *ProgressPrinter) println(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line)
}
