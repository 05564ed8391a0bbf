package main

import (
	"strconv"
	"strings"

	"netbons/internal/models"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

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

	return tw.Render()
}

var ageBadgeColors = map[models.AgeRating]*color.Color{
	models.AgeRatingL:  color.New(color.BgGreen, color.FgWhite, color.Bold),
	models.AgeRating10: color.New(color.BgCyan, color.FgWhite, color.Bold),
	models.AgeRating12: color.New(color.BgYellow, color.FgBlack, color.Bold),
	models.AgeRating14: color.New(color.BgHiRed, color.FgWhite, color.Bold),
	models.AgeRating16: color.New(color.BgRed, color.FgWhite, color.Bold),
	models.AgeRating18: color.New(color.BgBlack, color.FgWhite, color.Bold),
}

// ageBadge renders the Brazilian age rating the way the catalog shows it.
func ageBadge(r models.AgeRating) string {
	if r == "" {
		return ""
	}
	c, ok := ageBadgeColors[r]
	if !ok {
		c = color.New(color.BgHiBlack, color.FgWhite)
	}
	return c.Sprintf(" %s ", r)
}

func movieRows(movies []models.Movie) [][]string {
	rows := make([][]string, 0, len(movies))
	for _, m := range movies {
		rows = append(rows, []string{
			m.ID,
			m.Title,
			strconv.FormatFloat(m.Rating, 'f', 1, 64),
			strconv.Itoa(m.Year),
			ageBadge(m.AgeRating),
			strings.Join(m.Genres, ", "),
			flags(m),
		})
	}
	return rows
}

var movieHeaders = []string{"ID", "Title", "Rating", "Year", "Age", "Genres", "Flags"}
var movieAligns = []columnAlignment{alignLeft, alignLeft, alignRight, alignRight}

func flags(m models.Movie) string {
	var out []string
	if m.IsOriginal {
		out = append(out, "original")
	}
	if m.IsUserAdded {
		out = append(out, "community")
	}
	if m.IsInMyList {
		out = append(out, "my list")
	}
	if m.IsYoutube {
		out = append(out, "youtube")
	}
	return strings.Join(out, ", ")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
