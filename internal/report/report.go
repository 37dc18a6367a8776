// Package report sorts outcomes and writes the results CSV.
package report

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/j-veylop/mass-rtp-search/internal/logger"
	"github.com/j-veylop/mass-rtp-search/internal/models"
)

// Header is the first CSV row.
var Header = []string{"Game", "Min RTP %", "Max RTP %"}

// Report is an ordered result set: highest reported minimum first, ties in
// input order.
type Report struct {
	outcomes []models.Outcome
}

// New sorts a copy of outcomes.
func New(outcomes []models.Outcome) *Report {
	sorted := slices.Clone(outcomes)
	slices.SortFunc(sorted, func(a, b models.Outcome) int {
		if c := cmp.Compare(b.Reported().Min, a.Reported().Min); c != 0 {
			return c
		}
		return cmp.Compare(a.Game.Index, b.Game.Index)
	})
	return &Report{outcomes: sorted}
}

// Outcomes returns the sorted outcomes.
func (r *Report) Outcomes() []models.Outcome {
	return r.outcomes
}

// Len returns the number of rows, excluding the header.
func (r *Report) Len() int {
	return len(r.outcomes)
}

// Render writes the CSV to w. Failed lookups are written as 0.00,0.00.
func (r *Report) Render(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, o := range r.outcomes {
		rng := o.Reported()
		if err := cw.Write([]string{o.Game.Title, rng.Min.StringFixed(2), rng.Max.StringFixed(2)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile renders the report to path, replacing any existing file
// atomically.
func (r *Report) WriteFile(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove temp file", "path", tmpPath, "error", err)
		}
	}()

	if err := r.Render(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set report permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close report: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move report into place: %w", err)
	}

	return nil
}
