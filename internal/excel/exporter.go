package excel

import (
	"bytes"
	"fmt"

	"github.com/natefinch/atomic"
	"github.com/xuri/excelize/v2"

	"github.com/example/revtrack/internal/stats"
)

// Sheet names of the dashboard report
const (
	DashboardSheet = "Dashboard"
	TopicsSheet    = "Topics"
)

// Fixed cell layout of the dashboard sheet
const (
	activityHeaderRow = 9
	statusHeaderRow   = 9
	subjectHeaderRow  = 9
)

type styles struct {
	title  int
	header int
	body   int
	accent int
}

func newStyles(f *excelize.File, theme Theme) (styles, error) {
	p := theme.palette()
	var (
		s   styles
		err error
	)
	s.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16, Color: p.Text},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{p.Background}},
	})
	if err != nil {
		return s, fmt.Errorf("failed to create title style: %w", err)
	}
	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: p.HeaderText},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{p.HeaderFill}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return s, fmt.Errorf("failed to create header style: %w", err)
	}
	s.body, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: p.Text},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{p.Background}},
		Border: []excelize.Border{
			{Type: "bottom", Color: p.Muted, Style: 1},
		},
	})
	if err != nil {
		return s, fmt.Errorf("failed to create body style: %w", err)
	}
	s.accent, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: p.Accent},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{p.Background}},
	})
	if err != nil {
		return s, fmt.Errorf("failed to create accent style: %w", err)
	}
	return s, nil
}

// BuildReport renders the dashboard and the topic schedule into a workbook.
// The caller owns the returned file and must close it.
func BuildReport(dash stats.Dashboard, theme Theme) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := buildReport(f, dash, theme); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func buildReport(f *excelize.File, dash stats.Dashboard, theme Theme) error {
	if err := f.SetSheetName(f.GetSheetName(0), DashboardSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(TopicsSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	st, err := newStyles(f, theme)
	if err != nil {
		return err
	}
	if err := writeDashboard(f, dash, st); err != nil {
		return err
	}
	if err := writeTopics(f, dash, st); err != nil {
		return err
	}
	if err := addCharts(f, dash); err != nil {
		return err
	}
	f.SetActiveSheet(0)
	return nil
}

// ReportBytes renders the report into memory
func ReportBytes(dash stats.Dashboard, theme Theme) ([]byte, error) {
	f, err := BuildReport(dash, theme)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteReport renders the report and replaces path atomically
func WriteReport(path string, dash stats.Dashboard, theme Theme) error {
	data, err := ReportBytes(dash, theme)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func writeDashboard(f *excelize.File, dash stats.Dashboard, st styles) error {
	sheet := DashboardSheet
	cells := []struct {
		cell  string
		value any
	}{
		{"A1", "Study Dashboard"},
		{"A2", "Date"}, {"B2", dash.Today},
		{"A3", "Completion %"}, {"B3", dash.CompletionPercent},
		{"A4", "Current streak (days)"}, {"B4", dash.Streak},
		{"A5", "Active days"}, {"B5", dash.ActiveDays},
		{"A6", "Due today"}, {"B6", len(dash.Due)},
		{"A8", "Weekly activity"},
		{"D8", "Progress"},
		{"G8", "Subjects"},
	}
	for _, c := range cells {
		if err := f.SetCellValue(sheet, c.cell, c.value); err != nil {
			return fmt.Errorf("failed to set %s: %w", c.cell, err)
		}
	}

	if err := f.SetCellStyle(sheet, "A1", "A1", st.title); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A2", "B6", st.body); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "B3", "B4", st.accent); err != nil {
		return err
	}

	// Weekly activity table, oldest day first
	if err := setRow(f, sheet, 1, activityHeaderRow, st.header, "Day", "Active"); err != nil {
		return err
	}
	for i, label := range dash.Activity.Labels {
		if err := setRow(f, sheet, 1, activityHeaderRow+1+i, st.body, label, dash.Activity.Values[i]); err != nil {
			return err
		}
	}

	// Completed vs remaining topics for the doughnut chart
	total, completed := 0, 0
	for _, s := range dash.Subjects {
		total += len(s.Topics)
		for _, t := range s.Topics {
			if t.IsComplete {
				completed++
			}
		}
	}
	if err := setRow(f, sheet, 4, statusHeaderRow, st.header, "Status", "Topics"); err != nil {
		return err
	}
	if err := setRow(f, sheet, 4, statusHeaderRow+1, st.body, "Completed", completed); err != nil {
		return err
	}
	if err := setRow(f, sheet, 4, statusHeaderRow+2, st.body, "Remaining", total-completed); err != nil {
		return err
	}

	if err := setRow(f, sheet, 7, subjectHeaderRow, st.header, "Subject", "Topics", "Completed %"); err != nil {
		return err
	}
	for i, s := range dash.Subjects {
		if err := setRow(f, sheet, 7, subjectHeaderRow+1+i, st.body, s.Name, len(s.Topics), s.Percent); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 24); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "G", "G", 24)
}

func writeTopics(f *excelize.File, dash stats.Dashboard, st styles) error {
	sheet := TopicsSheet
	due := make(map[[2]int64]bool, len(dash.Due))
	for _, d := range dash.Due {
		due[[2]int64{d.SubjectID, d.TopicID}] = true
	}

	header := []any{"Subject", "Topic", "Last revised", "Level", "Next revision", "Complete", "Due"}
	if err := setRow(f, sheet, 1, 1, st.header, header...); err != nil {
		return err
	}

	row := 2
	for _, s := range dash.Subjects {
		for _, t := range s.Topics {
			err := setRow(f, sheet, 1, row, st.body,
				s.Name,
				t.Name,
				t.LastRevised,
				t.RevisionLevel,
				t.NextRevisionDate,
				yesNo(t.IsComplete),
				yesNo(due[[2]int64{s.ID, t.ID}]),
			)
			if err != nil {
				return err
			}
			row++
		}
	}

	if err := f.SetColWidth(sheet, "A", "B", 24); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "C", "G", 14)
}

func addCharts(f *excelize.File, dash stats.Dashboard) error {
	first := activityHeaderRow + 1
	last := activityHeaderRow + len(dash.Activity.Labels)

	err := f.AddChart(DashboardSheet, "D13", &excelize.Chart{
		Type: excelize.Doughnut,
		Series: []excelize.ChartSeries{{
			Name:       "Progress",
			Categories: fmt.Sprintf("%s!$D$%d:$D$%d", DashboardSheet, statusHeaderRow+1, statusHeaderRow+2),
			Values:     fmt.Sprintf("%s!$E$%d:$E$%d", DashboardSheet, statusHeaderRow+1, statusHeaderRow+2),
		}},
		Title:     []excelize.RichTextRun{{Text: fmt.Sprintf("Completion %d%%", dash.CompletionPercent)}},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{Width: 360, Height: 260},
	})
	if err != nil {
		return fmt.Errorf("failed to add progress chart: %w", err)
	}

	err = f.AddChart(DashboardSheet, "A18", &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{{
			Name:       "Active",
			Categories: fmt.Sprintf("%s!$A$%d:$A$%d", DashboardSheet, first, last),
			Values:     fmt.Sprintf("%s!$B$%d:$B$%d", DashboardSheet, first, last),
		}},
		Title:     []excelize.RichTextRun{{Text: "Weekly Activity"}},
		Legend:    excelize.ChartLegend{Position: "none"},
		Dimension: excelize.ChartDimension{Width: 360, Height: 260},
	})
	if err != nil {
		return fmt.Errorf("failed to add activity chart: %w", err)
	}
	return nil
}

// setRow writes values starting at (col, row) and styles the written range
func setRow(f *excelize.File, sheet string, col, row, style int, values ...any) error {
	start, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(col+len(values)-1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, start, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return f.SetCellStyle(sheet, start, end, style)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
