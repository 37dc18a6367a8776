// Package components provides reusable rendering helpers for terminal output.
package components

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/mass-rtp-search/internal/ui/styles"
)

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	// Ensure minimum dimensions
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.Green),
	)
}

// RenderBarChart creates a simple horizontal bar chart.
func RenderBarChart(values []float64, labels []string, width int) string {
	if len(values) == 0 {
		return ""
	}

	maxVal := 0.0
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	maxLabelLen := 0
	for _, l := range labels {
		if len(l) > maxLabelLen {
			maxLabelLen = len(l)
		}
	}

	barWidth := width - maxLabelLen - 10 // Leave room for label and value
	if barWidth < 10 {
		barWidth = 10
	}

	lines := make([]string, 0, len(values))
	for i, v := range values {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}

		barLen := int((v / maxVal) * float64(barWidth))
		if barLen < 0 {
			barLen = 0
		}

		lines = append(lines, fmt.Sprintf("%*s │%s %g", maxLabelLen, label, strings.Repeat("█", barLen), v))
	}

	return strings.Join(lines, "\n")
}

// Histogram counts values into buckets of the given width starting at lo.
// Values below lo land in the first bucket, values at or above the last
// bucket's upper edge land in the last one.
func Histogram(values []float64, lo, step float64, buckets int) ([]float64, []string) {
	if buckets <= 0 || step <= 0 {
		return nil, nil
	}

	counts := make([]float64, buckets)
	labels := make([]string, buckets)
	for i := range labels {
		from := lo + float64(i)*step
		labels[i] = fmt.Sprintf("%g-%g", from, from+step)
	}
	labels[0] = fmt.Sprintf("<%g", lo+step)
	labels[buckets-1] = fmt.Sprintf("≥%g", lo+float64(buckets-1)*step)

	for _, v := range values {
		i := int((v - lo) / step)
		if i < 0 {
			i = 0
		}
		if i >= buckets {
			i = buckets - 1
		}
		counts[i]++
	}
	return counts, labels
}
