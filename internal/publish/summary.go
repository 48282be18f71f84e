package publish

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/maltedev/dispensary-scraper/internal/models"
)

// WriteSummary renders one row per category followed by the catalog total.
func WriteSummary(w io.Writer, run *models.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Category", "Status", "Cards", "Added", "Unusable", "Scrolls", "Duration", "Error"})

	added := 0
	for _, c := range run.Categories {
		added += c.Extracted
		t.AppendRow(table.Row{
			c.Label,
			c.Status,
			c.Found,
			c.Extracted,
			c.Unusable,
			c.Scrolls,
			c.Duration.Round(time.Millisecond).String(),
			c.Error,
		})
	}

	t.AppendFooter(table.Row{"Total", "", "", added, "", "", run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String(), ""})
	t.AppendFooter(table.Row{"Catalog", "", "", run.Products, "", "", "", ""})

	t.SetStyle(table.StyleRounded)
	t.Render()
}
