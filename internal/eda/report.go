// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package eda

import (
	"context"
	"database/sql"
	"fmt"
	"html/template"
	"os"
	"strings"
	"time"

	"github.com/tomtom215/wanderlens/internal/database"
)

// SampleTable is a stringified row preview for the report.
type SampleTable struct {
	Columns []string
	Rows    [][]string
}

// ReportData is the template payload for the standalone HTML report.
type ReportData struct {
	Title         string
	GeneratedAt   string
	SessionShape  Overview
	UserShape     Overview
	SessionMiss   []MissingnessRow
	UserMiss      []MissingnessRow
	Stats         []ColumnStats
	Correlations  []CorrelationPair
	Charts        []Chart
	Insights      []string
	Hypotheses    []string
	SessionSample SampleTable
	UserSample    SampleTable
}

// RenderHTMLReport writes the EDA report as a single self-contained HTML
// file. Charts are inline SVG so the artifact has no sidecar files.
func RenderHTMLReport(path string, data ReportData) error {
	tpl, err := template.New("eda_report").Funcs(template.FuncMap{
		"svg": func(s string) template.HTML { return template.HTML(s) },
		"pct": func(v float64) string { return fmt.Sprintf("%.2f%%", v) },
		"num": func(v float64) string { return fmt.Sprintf("%.3f", v) },
	}).Parse(reportTemplate)
	if err != nil {
		return fmt.Errorf("parsing report template: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	if err := tpl.Execute(f, data); err != nil {
		_ = f.Close()
		return fmt.Errorf("rendering report: %w", err)
	}
	return f.Close()
}

// BuildSampleTable stringifies the first n rows of a table for the preview
// section. Every column is cast to VARCHAR in SQL so scanning stays uniform.
func BuildSampleTable(ctx context.Context, db *database.DB, table string, n int) (SampleTable, error) {
	out := SampleTable{}
	if n <= 0 {
		return out, nil
	}

	cols, err := tableInfo(ctx, db, table)
	if err != nil {
		return out, err
	}

	sel := make([]string, len(cols))
	for i, c := range cols {
		sel[i] = fmt.Sprintf("CAST(%s AS VARCHAR)", c.name)
		out.Columns = append(out.Columns, c.name)
	}

	query := fmt.Sprintf("SELECT %s FROM %s LIMIT %d", strings.Join(sel, ", "), table, n)
	rows, err := db.Query(ctx, query)
	if err != nil {
		return out, fmt.Errorf("sampling %s failed: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return out, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			if v.Valid {
				row[i] = v.String
			} else {
				row[i] = "NULL"
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, rows.Err()
}

// NowStamp formats the report generation time.
func NowStamp() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05 UTC")
}

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2rem auto; max-width: 72rem; color: #1a1a2e; }
h1 { border-bottom: 2px solid #4878a8; padding-bottom: .4rem; }
h2 { margin-top: 2rem; color: #2c4a6e; }
table { border-collapse: collapse; margin: .8rem 0; font-size: .85rem; }
th, td { border: 1px solid #cbd5e0; padding: .3rem .6rem; text-align: left; }
th { background: #eef2f7; }
.meta { color: #667; font-size: .85rem; }
.sample { overflow-x: auto; }
li { margin: .3rem 0; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">Generated {{.GeneratedAt}}</p>

<h2>Overview</h2>
<table>
<tr><th>Table</th><th>Rows</th><th>Columns</th></tr>
<tr><td>session_level</td><td>{{.SessionShape.Rows}}</td><td>{{.SessionShape.Columns}}</td></tr>
<tr><td>users_agg</td><td>{{.UserShape.Rows}}</td><td>{{.UserShape.Columns}}</td></tr>
</table>

<h2>Missingness (session level)</h2>
<table>
<tr><th>Column</th><th>Missing</th><th>Missing %</th><th>Type</th></tr>
{{range .SessionMiss}}<tr><td>{{.Column}}</td><td>{{.Missing}}</td><td>{{pct .MissingPct}}</td><td>{{.Type}}</td></tr>
{{end}}</table>

<h2>Missingness (user level)</h2>
<table>
<tr><th>Column</th><th>Missing</th><th>Missing %</th><th>Type</th></tr>
{{range .UserMiss}}<tr><td>{{.Column}}</td><td>{{.Missing}}</td><td>{{pct .MissingPct}}</td><td>{{.Type}}</td></tr>
{{end}}</table>

<h2>Descriptive statistics (session level)</h2>
<table>
<tr><th>Column</th><th>Type</th><th>Count</th><th>Null %</th><th>Mean</th><th>Std</th><th>Min</th><th>25%</th><th>Median</th><th>75%</th><th>Max</th></tr>
{{range .Stats}}<tr><td>{{.Column}}</td><td>{{.Type}}</td><td>{{.Count}}</td><td>{{pct .NullPct}}</td>
{{if .IsNumeric}}<td>{{num .Mean}}</td><td>{{num .Std}}</td><td>{{.Min}}</td><td>{{num .Q25}}</td><td>{{num .Median}}</td><td>{{num .Q75}}</td><td>{{.Max}}</td>
{{else}}<td>-</td><td>-</td><td>{{.Min}}</td><td>-</td><td>-</td><td>-</td><td>{{.Max}}</td>{{end}}</tr>
{{end}}</table>

<h2>Top correlations</h2>
<table>
<tr><th>Column A</th><th>Column B</th><th>Pearson r</th></tr>
{{range .Correlations}}<tr><td>{{.ColumnA}}</td><td>{{.ColumnB}}</td><td>{{num .Correlation}}</td></tr>
{{end}}</table>

<h2>Distributions</h2>
{{range .Charts}}<div>{{svg .SVG}}</div>
{{end}}

<h2>Key insights</h2>
<ul>
{{range .Insights}}<li>{{.}}</li>
{{end}}</ul>

<h2>Hypotheses for segmentation</h2>
<ul>
{{range .Hypotheses}}<li>{{.}}</li>
{{end}}</ul>

{{if .SessionSample.Rows}}
<h2>Session sample</h2>
<div class="sample"><table>
<tr>{{range .SessionSample.Columns}}<th>{{.}}</th>{{end}}</tr>
{{range .SessionSample.Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table></div>
{{end}}

{{if .UserSample.Rows}}
<h2>User sample</h2>
<div class="sample"><table>
<tr>{{range .UserSample.Columns}}<th>{{.}}</th>{{end}}</tr>
{{range .UserSample.Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table></div>
{{end}}

</body>
</html>
`
