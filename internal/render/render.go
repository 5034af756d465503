// Package render prints reports for humans and scripts.
package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/civicwatch/incident-reports/internal/api"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// MsgNoReports is printed instead of an empty table.
const MsgNoReports = "No reports yet."

// Options configures rendering.
type Options struct {
	// One of Format* constants, table if empty.
	Format string

	// Display unit symbol appended to rewards in tables.
	Symbol string

	// Disables ANSI colors.
	NoColor bool

	// Prints reporter addresses in full.
	Wide bool
}

// CheckFormat returns an error if the format is not supported.
func CheckFormat(f string) error {
	switch f {
	case "", FormatTable, FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q", f)
	}
}

// Reports prints the report list.
func Reports(w io.Writer, reports []api.Report, opt Options) error {
	if reports == nil {
		reports = []api.Report{}
	}

	switch opt.Format {
	case FormatJSON:
		return writeJSON(w, reports)
	case FormatYAML:
		return writeYAML(w, reports)
	case "", FormatTable:
	default:
		return CheckFormat(opt.Format)
	}

	if len(reports) == 0 {
		_, err := fmt.Fprintln(w, MsgNoReports)
		return err
	}

	_, err := fmt.Fprintf(w, "%s\n%s\n", reportTable(reports, opt).Render(), Summary(reports))
	return err
}

// Sync prints the diagnostic synchronization result.
func Sync(w io.Writer, res api.SyncResult, opt Options) error {
	switch opt.Format {
	case FormatJSON:
		return writeJSON(w, res)
	case FormatYAML:
		return writeYAML(w, res)
	case "", FormatTable:
	default:
		return CheckFormat(opt.Format)
	}

	if err := Reports(w, res.Reports, opt); err != nil {
		return err
	}

	if len(res.Failures) == 0 {
		return nil
	}

	warn := newColor(opt, color.FgYellow)

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle("Read failures (%s)", res.Policy)
	tbl.AppendHeader(table.Row{"ID", "Kind", "Error"})

	for _, f := range res.Failures {
		tbl.AppendRow(table.Row{f.ID, warn.Sprint(f.Kind), f.Error})
	}

	if _, err := fmt.Fprintln(w, tbl.Render()); err != nil {
		return err
	}

	if res.Truncated {
		_, err := fmt.Fprintln(w, warn.Sprint("Enumeration stopped by a read fault, the list may be incomplete."))
		return err
	}

	return nil
}

// Details prints every report as a block of labeled lines.
func Details(w io.Writer, reports []api.Report, opt Options) error {
	title := newColor(opt, color.FgCyan, color.Bold)

	for _, r := range reports {
		_, err := fmt.Fprintf(w, "\n%s\nReporter Address: %s\nDescription: %s\nLocation: %s\nEvidence Link: %s\nVerified: %s\nReward: %s\n",
			title.Sprintf("--- Report ID: %d ---", r.ID),
			r.Reporter, r.Description, r.Location, r.EvidenceLink,
			Badge(r.Verified, opt), reward(r.Reward, opt.Symbol))
		if err != nil {
			return err
		}
	}

	return nil
}

// Badge returns the colored verification status.
func Badge(verified bool, opt Options) string {
	if verified {
		return newColor(opt, color.FgGreen).Sprint("Yes")
	}

	return newColor(opt, color.FgRed).Sprint("No")
}

// ShortAddress abbreviates long addresses to the first six and the last four
// characters.
func ShortAddress(s string) string {
	const head, tail = 6, 4

	if len(s) <= head+tail+3 {
		return s
	}

	return s[:head] + "..." + s[len(s)-tail:]
}

// Summary returns a one-line description of the list.
func Summary(reports []api.Report) string {
	var verified int

	for i := range reports {
		if reports[i].Verified {
			verified++
		}
	}

	return fmt.Sprintf("%s %s, %s verified",
		humanize.Comma(int64(len(reports))), plural(len(reports), "report"), humanize.Comma(int64(verified)))
}

func reportTable(reports []api.Report, opt Options) table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"ID", "Reporter", "Description", "Location", "Evidence", "Verified", "Reward"})

	for _, r := range reports {
		reporter := r.Reporter
		if !opt.Wide {
			reporter = ShortAddress(reporter)
		}

		tbl.AppendRow(table.Row{
			r.ID, reporter, r.Description, r.Location, r.EvidenceLink,
			Badge(r.Verified, opt), reward(r.Reward, opt.Symbol),
		})
	}

	return tbl
}

func reward(v, symbol string) string {
	if symbol == "" {
		return v
	}

	return v + " " + symbol
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}

	return word + "s"
}

func newColor(opt Options, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if opt.NoColor {
		c.DisableColor()
	}

	return c
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(v); err != nil {
		return err
	}

	return enc.Close()
}
