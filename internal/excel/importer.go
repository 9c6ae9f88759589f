package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/example/studydeck/pkg/models"
	"github.com/xuri/excelize/v2"
)

// SubjectStore resolves the subject items are imported into
type SubjectStore interface {
	GetOrCreate(ctx context.Context, userID int64, name string) (*models.Subject, error)
}

// ItemStore reads and creates review items
type ItemStore interface {
	ListBySubject(ctx context.Context, subjectID int64) ([]models.ReviewItem, error)
	Create(ctx context.Context, item *models.ReviewItem) error
}

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath       string // Path to the Excel or CSV file
	UserID         int64  // Owner of the subject
	SubjectName    string // Subject to import into, created if missing
	SheetName      string // Name of the sheet to import (xlsx only)
	QuestionColumn string // Column with the question
	AnswerColumn   string // Column with the answer
	KindColumn     string // Column with the item kind, empty means flashcard
	ChoicesColumn  string // Column with "|"-separated choices
	SourceColumn   string // Column with the source label, defaults to the file name
	LocationColumn string // Column with the page number
	StartRow       int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		SheetName:      "Sheet1",
		QuestionColumn: "A",
		AnswerColumn:   "B",
		KindColumn:     "C",
		ChoicesColumn:  "D",
		SourceColumn:   "E",
		LocationColumn: "F",
		StartRow:       2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	SubjectID      int64
	TotalProcessed int
	Created        int
	Skipped        int
	Errors         []string
}

// Importer loads manually written items from spreadsheets
type Importer struct {
	subjects SubjectStore
	items    ItemStore
}

// NewImporter creates a new importer
func NewImporter(subjects SubjectStore, items ItemStore) *Importer {
	return &Importer{subjects: subjects, items: items}
}

// ImportItems imports items from an Excel or CSV file
func (im *Importer) ImportItems(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	if strings.TrimSpace(config.SubjectName) == "" {
		return nil, errors.New("subject name is required")
	}

	var rows [][]string
	var err error
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		rows, err = readCSV(config.FilePath)
	} else {
		rows, err = readExcel(config.FilePath, config.SheetName)
	}
	if err != nil {
		return nil, err
	}

	subject, err := im.subjects.GetOrCreate(ctx, config.UserID, config.SubjectName)
	if err != nil {
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}

	existing, err := im.items.ListBySubject(ctx, subject.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing items: %w", err)
	}
	// Map normalized questions for quick duplicate lookup
	seen := make(map[string]bool, len(existing))
	for _, item := range existing {
		seen[normalizeQuestion(item.Question)] = true
	}

	result := &ImportResult{SubjectID: subject.ID, Errors: make([]string, 0)}
	defaultSource := filepath.Base(config.FilePath)

	for i, row := range rows {
		rowNum := i + 1
		// Skip header rows
		if rowNum < config.StartRow || isBlankRow(row) {
			continue
		}
		result.TotalProcessed++

		item, err := parseRow(row, config, defaultSource)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}

		key := normalizeQuestion(item.Question)
		if seen[key] {
			result.Skipped++
			continue
		}

		item.SubjectID = subject.ID
		if err := im.items.Create(ctx, item); err != nil {
			return result, fmt.Errorf("row %d: %w", rowNum, err)
		}
		seen[key] = true
		result.Created++
	}

	return result, nil
}

// readExcel returns the rows of one sheet
func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

// readCSV returns all records of a CSV file
func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseRow turns one spreadsheet row into an item with no subject yet
func parseRow(row []string, config ImportConfig, defaultSource string) (*models.ReviewItem, error) {
	question := strings.TrimSpace(cell(row, config.QuestionColumn))
	answer := strings.TrimSpace(cell(row, config.AnswerColumn))
	if question == "" {
		return nil, errors.New("question cannot be empty")
	}
	if answer == "" {
		return nil, errors.New("answer cannot be empty")
	}

	kind := models.ItemKind(strings.ToLower(strings.TrimSpace(cell(row, config.KindColumn))))
	if kind == "" {
		kind = models.KindFlashcard
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown item kind %q", kind)
	}

	item := &models.ReviewItem{
		Kind:     kind,
		Question: question,
		Answer:   answer,
		Source:   strings.TrimSpace(cell(row, config.SourceColumn)),
		Location: parseIntOrDefault(cell(row, config.LocationColumn), 0),
	}
	if item.Source == "" {
		item.Source = defaultSource
	}

	if kind == models.KindMultipleChoice {
		choices := splitChoices(cell(row, config.ChoicesColumn))
		if len(choices) < 2 {
			return nil, errors.New("multiple choice needs at least two choices")
		}
		if !containsChoice(choices, answer) {
			return nil, fmt.Errorf("answer %q is not one of the choices", answer)
		}
		item.Choices = choices
	}
	return item, nil
}

// cell returns the value at a column letter, or "" when the row is short or the column unset
func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	if idx := columnToIndex(column); idx >= 0 && idx < len(row) {
		return row[idx]
	}
	return ""
}

func splitChoices(s string) models.Choices {
	var choices models.Choices
	for _, part := range strings.Split(s, "|") {
		if part = strings.TrimSpace(part); part != "" {
			choices = append(choices, part)
		}
	}
	return choices
}

func containsChoice(choices []string, answer string) bool {
	for _, c := range choices {
		if c == answer {
			return true
		}
	}
	return false
}

// normalizeQuestion lowercases, trims and collapses internal whitespace
func normalizeQuestion(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(strings.TrimSpace(column))
	index := 0
	for i := 0; i < len(column); i++ {
		if column[i] < 'A' || column[i] > 'Z' {
			return -1
		}
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}

// Helper function to parse a non-negative integer with default value
func parseIntOrDefault(s string, defaultVal int) int {
	val, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || val < 0 {
		return defaultVal
	}
	return val
}
