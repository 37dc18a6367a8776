package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/mass-rtp-search/internal/models"
	"github.com/j-veylop/mass-rtp-search/internal/ui/styles"
)

// View renders the progress view.
func (m Model) View() string {
	if m.finished || m.quitting {
		return ""
	}

	st := m.state
	var b strings.Builder

	header := m.spinner.View() + " " + styles.SubTitleStyle.Render("RTP search")
	if st.RunID() != "" {
		header += styles.HelpStyle.Render("  run " + shortID(st.RunID()))
	}
	if m.watch {
		header += styles.InfoTextStyle.Render(fmt.Sprintf("  watching, run #%d", st.Runs()))
	}
	b.WriteString(header + "\n\n")

	b.WriteString(m.bar.ViewAs(st.Percent()))
	b.WriteString(fmt.Sprintf("  %d/%d  %3.0f%%\n", st.Done(), st.Total(), st.Percent()*100))

	counts := []string{
		styles.GetStatusStyle(models.StatusCached).Render(fmt.Sprintf("cached %d", st.Count(models.StatusCached))),
		styles.GetStatusStyle(models.StatusFetched).Render(fmt.Sprintf("fetched %d", st.Count(models.StatusFetched))),
		styles.GetStatusStyle(models.StatusNoMatch).Render(fmt.Sprintf("no match %d", st.Count(models.StatusNoMatch))),
		styles.GetStatusStyle(models.StatusQueryFailed).Render(fmt.Sprintf("failed %d", st.Count(models.StatusQueryFailed))),
	}
	b.WriteString(strings.Join(counts, "  ") + "\n")

	titleWidth := max(10, m.width-24)

	if active := st.Active(); len(active) > 0 {
		b.WriteString("\n" + styles.LabelStyle.Render("In flight") + "\n")
		for _, g := range active {
			b.WriteString("  " + ansi.Truncate(g.Title, titleWidth, "…") + "\n")
		}
	}

	if recent := st.Recent(); len(recent) > 0 {
		b.WriteString("\n" + styles.LabelStyle.Render("Recent") + "\n")
		for _, o := range recent {
			b.WriteString(renderOutcome(o, titleWidth) + "\n")
		}
	}

	if st.Result() != nil && m.watch {
		b.WriteString("\n" + styles.SuccessTextStyle.Render("Report written to "+st.Result().OutputPath) + "\n")
	}
	if err := st.Err(); err != nil {
		b.WriteString("\n" + styles.ErrorTextStyle.Render("Error: "+err.Error()) + "\n")
	}

	help := m.keys.ShortHelp()[0].Help()
	b.WriteString("\n" + styles.HelpKeyStyle.Render(help.Key) + " " + styles.HelpStyle.Render(help.Desc) + "\n")

	return b.String()
}

func renderOutcome(o models.Outcome, width int) string {
	title := fmt.Sprintf("%-*s", width, ansi.Truncate(o.Game.Title, width, "…"))
	style := styles.GetStatusStyle(o.Status)

	var detail string
	switch o.Status {
	case models.StatusCached, models.StatusFetched:
		detail = styles.GetRTPStyle(o.Range.Min.Float64()).Render(formatRange(o.Range))
	default:
		detail = style.Render(o.Status.String())
	}
	return "  " + style.Render(statusIcon(o.Status)) + " " + title + " " + detail
}

func formatRange(r models.RTPRange) string {
	if r.IsFixed() {
		return r.Min.StringFixed(2) + "%"
	}
	return r.Min.StringFixed(2) + "-" + r.Max.StringFixed(2) + "%"
}

func statusIcon(s models.Status) string {
	switch s {
	case models.StatusCached:
		return "●"
	case models.StatusFetched:
		return "✓"
	case models.StatusNoMatch:
		return "?"
	default:
		return "✗"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
