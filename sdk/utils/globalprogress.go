// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/docker/go-units"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/engine"
)

/* ------------ tiny UI helpers for single-line progress ------------ */

// LineRenderer prints batch progress on a single carriage-returned line.
// It is used when stderr is not a terminal the bar can own.
type LineRenderer struct {
	out      io.Writer
	label    string
	spinIdx  int
	lastTick time.Time
	interval time.Duration
}

var spinner = []rune{'|', '/', '-', '\\'}

var _ engine.Renderer = (*LineRenderer)(nil)

func NewLineRenderer(out io.Writer, label string) *LineRenderer {
	if out == nil {
		out = os.Stderr
	}
	return &LineRenderer{out: out, label: label, interval: 100 * time.Millisecond}
}

func (lr *LineRenderer) Update(s engine.Snapshot) {
	// throttling: update ~10 times each seconds to avoid “spamming”
	if time.Since(lr.lastTick) < lr.interval {
		return
	}
	lr.render(s)
}

func (lr *LineRenderer) Finish(s engine.Snapshot) {
	lr.render(s)
	fmt.Fprintln(lr.out)
}

func (lr *LineRenderer) render(s engine.Snapshot) {
	lr.lastTick = time.Now()

	files := fmt.Sprintf("%d done, %d active", s.Completed, s.Active)
	if s.Failed > 0 {
		files += fmt.Sprintf(", %d failed", s.Failed)
	}

	if s.TotalBytes > 0 {
		done := min(s.DoneBytes, s.TotalBytes)
		pct := float64(done) / float64(s.TotalBytes) * 100
		fmt.Fprintf(lr.out, "\r%s: %6.2f%% (%s / %s) [%s]   ",
			lr.label, pct, units.BytesSize(float64(done)), units.BytesSize(float64(s.TotalBytes)), files)
		return
	}
	ch := spinner[lr.spinIdx%len(spinner)]
	lr.spinIdx++
	fmt.Fprintf(lr.out, "\r%s: [%c] %s [%s]   ", lr.label, ch, units.BytesSize(float64(s.DoneBytes)), files)
}
