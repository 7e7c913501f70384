package ui

import (
	"io"
	"sync"

	"github.com/FriedrichWeinmann/sendping/internal/domain"
)

// RawFormatter streams announcements as plain lines and prints a summary
// block per finished run.
type RawFormatter struct {
	out io.Writer
	mu  sync.Mutex
}

func NewRawFormatter(out io.Writer) *RawFormatter {
	return &RawFormatter{out: out}
}

func (f *RawFormatter) AnnounceWriter(target string) io.Writer {
	return &lockedWriter{mu: &f.mu, w: f.out}
}

func (f *RawFormatter) OnStart(target string, seq int) {
	// Raw output only reports finished attempts
}

func (f *RawFormatter) OnComplete(target string, attempt domain.Attempt) {
	// Announcements are written by the executor through AnnounceWriter
}

func (f *RawFormatter) OnReport(report domain.RunReport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	WriteSummary(f.out, report)
}

func (f *RawFormatter) OnFinish() {
	// No-op
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
