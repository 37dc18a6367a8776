package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/mass-rtp-search/internal/models"
	"github.com/j-veylop/mass-rtp-search/internal/ui/components"
	"github.com/j-veylop/mass-rtp-search/internal/ui/styles"
)

// Counts tallies outcomes by status.
type Counts struct {
	Cached  int
	Fetched int
	NoMatch int
	Failed  int
}

// Total returns the number of outcomes counted.
func (c Counts) Total() int {
	return c.Cached + c.Fetched + c.NoMatch + c.Failed
}

// HitRatio returns the share of games answered from the cache.
func (c Counts) HitRatio() float64 {
	if c.Total() == 0 {
		return 0
	}
	return float64(c.Cached) / float64(c.Total())
}

// Counts returns per-status totals.
func (r *Report) Counts() Counts {
	var c Counts
	for _, o := range r.outcomes {
		switch o.Status {
		case models.StatusCached:
			c.Cached++
		case models.StatusFetched:
			c.Fetched++
		case models.StatusNoMatch:
			c.NoMatch++
		default:
			c.Failed++
		}
	}
	return c
}

// maxFailureLines caps the failed calls listed in the summary.
const maxFailureLines = 5

// SummaryOptions carries run details that are not part of the outcomes.
type SummaryOptions struct {
	Calls      *models.TotalStats
	Cache      *models.CacheStats
	Failures   []models.APICall
	OutputPath string
	RunID      string
	Elapsed    time.Duration
	OutputSize int64
	Width      int
}

// Summary renders a terminal summary of the run.
func (r *Report) Summary(opts SummaryOptions) string {
	width := opts.Width
	if width <= 0 {
		width = 60
	}
	c := r.Counts()

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("RTP search complete"))
	b.WriteString("\n")

	line := func(label, value string) {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, styles.LabelStyle.Render(label), styles.ValueStyle.Render(value)))
		b.WriteString("\n")
	}

	line("Games", humanize.Comma(int64(c.Total())))
	statuses := []string{
		styles.GetStatusStyle(models.StatusCached).Render(fmt.Sprintf("%s cached", humanize.Comma(int64(c.Cached)))),
		styles.GetStatusStyle(models.StatusFetched).Render(fmt.Sprintf("%s fetched", humanize.Comma(int64(c.Fetched)))),
		styles.GetStatusStyle(models.StatusNoMatch).Render(fmt.Sprintf("%s no match", humanize.Comma(int64(c.NoMatch)))),
		styles.GetStatusStyle(models.StatusQueryFailed).Render(fmt.Sprintf("%s failed", humanize.Comma(int64(c.Failed)))),
	}
	line("Outcomes", strings.Join(statuses, "  "))
	line("Cache hits", fmt.Sprintf("%.0f%%", c.HitRatio()*100))
	if opts.Calls != nil {
		line("API calls", fmt.Sprintf("%s (%s errors, %s tokens)",
			humanize.Comma(int64(opts.Calls.TotalCalls)),
			humanize.Comma(int64(opts.Calls.ErrorCount)),
			humanize.Comma(opts.Calls.TotalPromptTokens+opts.Calls.TotalOutTokens)))
	}
	if opts.Cache != nil {
		line("Cache size", fmt.Sprintf("%s entries, %s games",
			humanize.Comma(int64(opts.Cache.Entries)),
			humanize.Comma(int64(opts.Cache.UniqueGames))))
	}
	if opts.Elapsed > 0 {
		line("Elapsed", opts.Elapsed.Round(time.Millisecond).String())
	}
	if opts.OutputPath != "" {
		out := opts.OutputPath
		if opts.OutputSize > 0 {
			out += " (" + humanize.Bytes(uint64(opts.OutputSize)) + ")"
		}
		line("Output", out)
	}
	if opts.RunID != "" {
		line("Run", styles.HelpStyle.Render(opts.RunID))
	}

	if len(opts.Failures) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.SubTitleStyle.Render("Failed calls"))
		b.WriteString("\n")
		for i, call := range opts.Failures {
			if i == maxFailureLines {
				b.WriteString(styles.HelpStyle.Render(fmt.Sprintf("  ... and %d more", len(opts.Failures)-i)))
				b.WriteString("\n")
				break
			}
			b.WriteString(styles.ErrorTextStyle.Render(fmt.Sprintf("  %s: %s", call.GameTitle, failureReason(call))))
			b.WriteString("\n")
		}
	}

	mins := r.reportedMins()
	if len(mins) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.SubTitleStyle.Render("Min RTP distribution"))
		b.WriteString("\n")
		counts, labels := components.Histogram(mins, 88, 2, 6)
		b.WriteString(components.RenderBarChart(counts, labels, width))
		b.WriteString("\n")
	}
	if len(mins) > 1 {
		b.WriteString("\n")
		b.WriteString(components.RenderLineChart(mins, width-10, 8, "min RTP % by rank"))
		b.WriteString("\n")
	}

	return b.String()
}

func failureReason(call models.APICall) string {
	if call.StatusCode > 0 {
		return fmt.Sprintf("HTTP %d", call.StatusCode)
	}
	if call.Error != "" {
		return call.Error
	}
	return "unknown error"
}

// reportedMins returns the minimums of resolved games in report order.
func (r *Report) reportedMins() []float64 {
	var mins []float64
	for _, o := range r.outcomes {
		if o.Status.OK() {
			mins = append(mins, o.Range.Min.Float64())
		}
	}
	return mins
}
