// Package notify shows short user-facing notices.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Default display durations.
const (
	Short = 4 * time.Second
	Long  = 10 * time.Second
)

// Notifier displays a transient message. d is a hint for how long the
// message stays relevant.
type Notifier interface {
	Notify(message string, d time.Duration)
}

// Writer prints notices to w. A message repeated while its previous
// copy is still within its duration is dropped.
type Writer struct {
	mu    sync.Mutex
	w     io.Writer
	style lipgloss.Style
	now   func() time.Time
	shown map[string]time.Time
}

// NewWriter returns a Writer printing to w, typically os.Stderr.
func NewWriter(w io.Writer) *Writer {
	r := lipgloss.NewRenderer(w)
	return &Writer{
		w: w,
		style: r.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("63")).
			Padding(0, 1),
		now:   time.Now,
		shown: make(map[string]time.Time),
	}
}

// Notify implements Notifier.
func (n *Writer) Notify(message string, d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	if until, ok := n.shown[message]; ok && now.Before(until) {
		return
	}
	n.shown[message] = now.Add(d)
	for k, until := range n.shown {
		if !now.Before(until) && k != message {
			delete(n.shown, k)
		}
	}
	fmt.Fprintln(n.w, n.style.Render("wakabox: "+message))
}

// Notice is one recorded notification.
type Notice struct {
	Message  string
	Duration time.Duration
}

// Recorder keeps every notice in memory.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify implements Notifier.
func (r *Recorder) Notify(message string, d time.Duration) {
	r.mu.Lock()
	r.notices = append(r.notices, Notice{Message: message, Duration: d})
	r.mu.Unlock()
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Messages returns only the recorded texts.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.notices))
	for i, n := range r.notices {
		out[i] = n.Message
	}
	return out
}
