// Package output renders selections for the terminal: one magnet line per
// result for piping into a download client, or a table for reading.
package output

import (
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/litescript/ls-magnet/internal/config"
	"github.com/litescript/ls-magnet/internal/history"
	"github.com/litescript/ls-magnet/internal/ranking"
)

// Size formats a size in GiB with thousands separators and two decimals,
// e.g. 1234.5 -> "1,234.50"
func Size(gib float64) string {
	return humanize.FormatFloat("#,###.##", gib)
}

// MagnetLine renders a selected candidate as
// <locator>&dn=<key>&size=<size>GB
func MagnetLine(c ranking.Candidate, key string) string {
	return c.Locator + "&dn=" + key + "&size=" + Size(c.SizeGiB) + "GB"
}

// ThreadLine renders a forum magnet, which carries no size
func ThreadLine(magnet, code string) string {
	return magnet + "&dn=" + code
}

// APILine renders a listing path as the command that lists it
func APILine(api string) string {
	return "jable " + api
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// CandidateTable renders candidates in the given order. The candidate
// whose locator equals best is starred.
func CandidateTable(cs []ranking.Candidate, best string) string {
	rows := make([][]string, 0, len(cs))
	for i, c := range cs {
		mark := ""
		if best != "" && c.Locator == best {
			mark = "*"
		}
		rows = append(rows, []string{
			mark,
			strconv.Itoa(i + 1),
			Size(c.SizeGiB),
			humanize.Comma(int64(c.Popularity)),
			c.Source,
			c.Label,
			c.Locator,
		})
	}
	return renderTable(
		[]string{"", "#", "Size (GiB)", "Popularity", "Source", "Label", "Magnet"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	)
}

// HistoryTable renders recorded selections with relative timestamps
// measured from now
func HistoryTable(entries []history.Entry, now time.Time) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Code,
			Size(e.SizeGiB),
			e.Source,
			humanize.RelTime(e.SelectedAt, now, "ago", "from now"),
			e.Locator,
		})
	}
	return renderTable(
		[]string{"Code", "Size (GiB)", "Source", "Selected", "Magnet"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	)
}

// SourcesTable renders the configured extra sources
func SourcesTable(sources []config.SourceConfig) string {
	rows := make([][]string, 0, len(sources))
	for _, s := range sources {
		state := "enabled"
		if !s.Enabled {
			state = "disabled"
		}
		rows = append(rows, []string{s.Name, s.URL, state})
	}
	return renderTable([]string{"Name", "URL", "State"}, rows, nil)
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return strings.TrimRight(tw.Render(), "\n")
}
