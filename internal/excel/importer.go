package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/revtrack/internal/dates"
	"github.com/example/revtrack/pkg/models"
)

// Supported import formats
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// Tracker is the part of the tracker service used by the importer
type Tracker interface {
	Subjects(ctx context.Context) ([]models.Subject, error)
	AddSubject(ctx context.Context, name string) (models.Subject, error)
	AddTopic(ctx context.Context, subjectID int64, name, lastRevised string) (models.Topic, error)
	Today() time.Time
}

// ImportConfig defines the import configuration
type ImportConfig struct {
	SubjectColumn     string // Column with the subject name
	TopicColumn       string // Column with the topic name
	LastRevisedColumn string // Column with the last revision date, optional
	SheetName         string // Name of the sheet to import, first sheet when empty
	StartRow          int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		SubjectColumn:     "A",
		TopicColumn:       "B",
		LastRevisedColumn: "C",
		StartRow:          2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	Processed       int
	SubjectsCreated int
	TopicsCreated   int
	Skipped         int
	Errors          []string
}

// FormatFromPath guesses the import format from a file name
func FormatFromPath(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported file type %q", ext)
	}
}

// ImportFile imports subjects and topics from an Excel or CSV file
func ImportFile(ctx context.Context, svc Tracker, path string, config ImportConfig) (*ImportResult, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Import(ctx, svc, file, format, config)
}

// Import reads rows of the given format from r and adds them to the tracker
func Import(ctx context.Context, svc Tracker, r io.Reader, format string, config ImportConfig) (*ImportResult, error) {
	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatXLSX:
		rows, err = readExcel(r, config.SheetName)
	case FormatCSV:
		rows, err = readCSV(r)
	default:
		return nil, fmt.Errorf("unsupported import format %q", format)
	}
	if err != nil {
		return nil, err
	}

	imp, err := newImporter(ctx, svc)
	if err != nil {
		return nil, err
	}

	start := config.StartRow
	if start < 1 {
		start = 1
	}
	for i, row := range rows {
		// Skip header rows
		if i < start-1 {
			continue
		}
		if isBlank(row) {
			continue
		}

		imp.result.Processed++
		if err := imp.processRow(ctx, row, config); err != nil {
			imp.result.Errors = append(imp.result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
		}
	}

	return &imp.result, nil
}

// readExcel returns the raw cell values of the sheet
func readExcel(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV: %w", err)
	}
	return rows, nil
}

type importer struct {
	svc      Tracker
	today    string
	subjects map[string]*models.Subject // by lower-cased name
	result   ImportResult
}

func newImporter(ctx context.Context, svc Tracker) (*importer, error) {
	existing, err := svc.Subjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing subjects: %w", err)
	}

	imp := &importer{
		svc:      svc,
		today:    dates.Format(svc.Today()),
		subjects: make(map[string]*models.Subject, len(existing)),
		result:   ImportResult{Errors: make([]string, 0)},
	}
	for i := range existing {
		imp.subjects[strings.ToLower(existing[i].Name)] = &existing[i]
	}
	return imp, nil
}

func (imp *importer) processRow(ctx context.Context, row []string, config ImportConfig) error {
	subjectName := cell(row, config.SubjectColumn)
	topicName := cell(row, config.TopicColumn)
	if subjectName == "" {
		return fmt.Errorf("subject cannot be empty")
	}
	if topicName == "" {
		return fmt.Errorf("topic cannot be empty")
	}

	lastRevised := imp.today
	if raw := cell(row, config.LastRevisedColumn); raw != "" {
		d, err := parseDateCell(raw)
		if err != nil {
			return err
		}
		lastRevised = d
	}

	subject, err := imp.getOrCreateSubject(ctx, subjectName)
	if err != nil {
		return err
	}

	for _, t := range subject.Topics {
		if strings.EqualFold(t.Name, topicName) {
			imp.result.Skipped++
			return nil
		}
	}

	topic, err := imp.svc.AddTopic(ctx, subject.ID, topicName, lastRevised)
	if err != nil {
		return fmt.Errorf("failed to add topic: %w", err)
	}
	subject.Topics = append(subject.Topics, topic)
	imp.result.TopicsCreated++
	return nil
}

// getOrCreateSubject gets a subject by name or creates a new one if it doesn't exist
func (imp *importer) getOrCreateSubject(ctx context.Context, name string) (*models.Subject, error) {
	key := strings.ToLower(name)
	if s, ok := imp.subjects[key]; ok {
		return s, nil
	}

	created, err := imp.svc.AddSubject(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create subject: %w", err)
	}
	imp.subjects[key] = &created
	imp.result.SubjectsCreated++
	return &created, nil
}

// parseDateCell accepts an ISO date or an Excel date serial number
func parseDateCell(raw string) (string, error) {
	if _, err := dates.Parse(raw); err == nil {
		return raw, nil
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: want YYYY-MM-DD", raw)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return t.Format(dates.Layout), nil
}

func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	idx, err := columnToIndex(column)
	if err != nil || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// columnToIndex converts an Excel column letter to a 0-based index
func columnToIndex(column string) (int, error) {
	n, err := excelize.ColumnNameToNumber(column)
	if err != nil {
		return 0, fmt.Errorf("invalid column %q: %w", column, err)
	}
	return n - 1, nil
}
