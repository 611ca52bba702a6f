package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/go-hclog"

	"captionburn/internal/logging"
	"captionburn/models"
	"captionburn/pipeline"
)

// newProgressSink redraws a single status line on a terminal and falls
// back to sampled log lines everywhere else.
func newProgressSink(w io.Writer, logger hclog.Logger) pipeline.Sink {
	if w != nil && logging.IsTerminal(w) {
		return &lineProgress{w: w}
	}
	return logging.NewProgressSampler(logger, 10)
}

type lineProgress struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineProgress) Progress(p models.ExportProgress) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.w, "\r\033[K%s", p.FormatSummary())
	if p.Phase.IsTerminal() {
		fmt.Fprintln(l.w)
	}
}
