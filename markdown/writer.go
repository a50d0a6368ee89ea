// Package markdown renders pagesignal reports as Markdown documents.
package markdown

import (
	"io"
	"strconv"
	"strings"

	"github.com/fwojciec/pagesignal"
	"github.com/nao1215/markdown"
)

// ReportWriter writes reports in Markdown format.
type ReportWriter struct {
	output io.Writer
}

// NewReportWriter creates a ReportWriter that outputs to w.
func NewReportWriter(w io.Writer) *ReportWriter {
	return &ReportWriter{output: w}
}

// Write outputs report as a summary table followed by one section per
// successful URL.
func (w *ReportWriter) Write(report pagesignal.Report) error {
	md := markdown.NewMarkdown(w.output)

	md.H1("Page Signals")
	md.PlainText("")

	if len(report) == 0 {
		md.Note("No URLs were admitted.")
		return md.Build()
	}

	rows := make([][]string, 0, len(report))
	for i, o := range report {
		status, title, heading := "✅ ok", "", ""
		if o.OK {
			title, heading = o.Signal.TitleTag, o.Signal.Heading
		} else {
			status = "❌ " + o.Error
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), cell(o.URL), cell(status), cell(title), cell(heading)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "URL", "Status", "Title", "Heading"},
		Rows:   rows,
	})
	md.PlainText("")

	if failed := report.Failures(); failed > 0 {
		md.Cautionf("%d of %d URLs failed.", failed, len(report))
		md.PlainText("")
	}

	for _, o := range report {
		if !o.OK {
			continue
		}
		heading := o.Signal.TitleTag
		if heading == "" {
			heading = o.URL
		}
		md.H2(heading)
		md.PlainText("")
		md.BulletList(
			"URL: "+o.URL,
			"Final URL: "+o.FinalURL,
			"Heading: "+o.Signal.Heading,
		)
		md.PlainText("")
		if o.Signal.Snippet != "" {
			md.Details("Snippet", o.Signal.Snippet)
			md.PlainText("")
		}
	}

	return md.Build()
}

// cell makes s safe for a single table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
