// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/engine"
)

// BarRenderer draws the batch as one progress bar sized to the known total.
type BarRenderer struct {
	bar       *progressbar.ProgressBar
	operation string
	max       int64
	files     int
}

var _ engine.Renderer = (*BarRenderer)(nil)

func NewBarRenderer(out io.Writer, operation string, totalBytes int64, files int) *BarRenderer {
	if out == nil {
		out = os.Stderr
	}
	if totalBytes <= 0 {
		totalBytes = -1
	}
	bar := progressbar.NewOptions64(totalBytes,
		progressbar.OptionSetDescription(operation),
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(out) }),
	)
	return &BarRenderer{bar: bar, operation: operation, max: totalBytes, files: files}
}

func (b *BarRenderer) Update(s engine.Snapshot) {
	// failed files shrink the total
	if s.TotalBytes > 0 && s.TotalBytes != b.max {
		b.max = s.TotalBytes
		b.bar.ChangeMax64(s.TotalBytes)
	}
	b.bar.Describe(b.describe(s))
	_ = b.bar.Set64(s.DoneBytes)
}

func (b *BarRenderer) Finish(s engine.Snapshot) {
	b.Update(s)
	_ = b.bar.Finish()
}

func (b *BarRenderer) describe(s engine.Snapshot) string {
	d := fmt.Sprintf("%s (%d/%d files)", b.operation, s.Completed+s.Failed, b.files)
	if s.Failed > 0 {
		d += fmt.Sprintf(" %d failed", s.Failed)
	}
	return d
}
