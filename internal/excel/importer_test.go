package excel

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/studydeck/internal/database"
	"github.com/example/studydeck/pkg/models"
	"github.com/xuri/excelize/v2"
)

func TestColumnToIndex(t *testing.T) {
	tests := []struct {
		column string
		want   int
	}{
		{"A", 0},
		{"b", 1},
		{"Z", 25},
		{"AA", 26},
		{"AB", 27},
		{"1", -1},
	}
	for _, tt := range tests {
		if got := columnToIndex(tt.column); got != tt.want {
			t.Errorf("columnToIndex(%q) = %d, want %d", tt.column, got, tt.want)
		}
	}
}

func TestParseRow(t *testing.T) {
	cfg := DefaultImportConfig()
	tests := []struct {
		name    string
		row     []string
		wantErr string
		check   func(t *testing.T, item *models.ReviewItem)
	}{
		{
			name: "flashcard defaults",
			row:  []string{" What is DNA? ", "Deoxyribonucleic acid"},
			check: func(t *testing.T, item *models.ReviewItem) {
				if item.Kind != models.KindFlashcard || item.Question != "What is DNA?" || item.Source != "deck.csv" {
					t.Errorf("item = %+v", item)
				}
			},
		},
		{
			name: "multiple choice",
			row:  []string{"Largest planet?", "Jupiter", "Multiple_Choice", "Mars | Jupiter|Venus", "astro.pdf", "7"},
			check: func(t *testing.T, item *models.ReviewItem) {
				if item.Kind != models.KindMultipleChoice || len(item.Choices) != 3 || item.Choices[1] != "Jupiter" {
					t.Errorf("item = %+v", item)
				}
				if item.Source != "astro.pdf" || item.Location != 7 {
					t.Errorf("provenance = %q/%d", item.Source, item.Location)
				}
			},
		},
		{name: "missing answer", row: []string{"Q only"}, wantErr: "answer cannot be empty"},
		{name: "missing question", row: []string{"", "A"}, wantErr: "question cannot be empty"},
		{name: "unknown kind", row: []string{"Q", "A", "essay"}, wantErr: "unknown item kind"},
		{name: "too few choices", row: []string{"Q", "A", "multiple_choice", "A"}, wantErr: "at least two"},
		{name: "answer not a choice", row: []string{"Q", "C", "multiple_choice", "A|B"}, wantErr: "not one of the choices"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := parseRow(tt.row, cfg, "deck.csv")
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRow: %v", err)
			}
			tt.check(t, item)
		})
	}
}

func TestNormalizeQuestion(t *testing.T) {
	if got := normalizeQuestion("  What   is\tATP? "); got != "what is atp?" {
		t.Errorf("normalizeQuestion = %q", got)
	}
}

func newStores(t *testing.T) (*database.SubjectRepository, *database.ItemRepository, int64) {
	t.Helper()
	db, err := database.ConnectSQLite(":memory:")
	if err != nil {
		t.Fatalf("ConnectSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	user, err := database.NewUserRepository(db).GetOrCreateByTelegramID(context.Background(), 77, "frank")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return database.NewSubjectRepository(db), database.NewItemRepository(db), user.ID
}

func TestImportItems_CSV(t *testing.T) {
	subjects, items, userID := newStores(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "chem.csv")
	content := strings.Join([]string{
		"question,answer,kind,choices,source,page",
		"What is H2O?,Water,,,,",
		"what  is h2o?,Water again,,,,",
		"Symbol for gold?,Au,multiple_choice,Ag|Au|Fe,chem.pdf,3",
		",no question,,,,",
		"",
		"Noble gas?,Neon,short_answer,,,12",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultImportConfig()
	cfg.FilePath = path
	cfg.UserID = userID
	cfg.SubjectName = "Chemistry"

	im := NewImporter(subjects, items)
	result, err := im.ImportItems(ctx, cfg)
	if err != nil {
		t.Fatalf("ImportItems: %v", err)
	}
	if result.TotalProcessed != 5 || result.Created != 3 || result.Skipped != 1 || len(result.Errors) != 1 {
		t.Errorf("result = %+v", result)
	}

	stored, err := items.ListBySubject(ctx, result.SubjectID)
	if err != nil {
		t.Fatalf("ListBySubject: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("stored %d items, want 3", len(stored))
	}
	if stored[0].Source != "chem.csv" || stored[0].Easiness != 2.5 || stored[0].Repetitions != 0 {
		t.Errorf("first item = %+v", stored[0])
	}
	if stored[1].Kind != models.KindMultipleChoice || len(stored[1].Choices) != 3 {
		t.Errorf("multiple choice item = %+v", stored[1])
	}

	// a second run finds everything already present
	again, err := im.ImportItems(ctx, cfg)
	if err != nil {
		t.Fatalf("ImportItems: %v", err)
	}
	if again.Created != 0 || again.Skipped != 4 {
		t.Errorf("second import = %+v", again)
	}
}

func TestExportThenImportXLSX(t *testing.T) {
	subjects, items, userID := newStores(t)
	ctx := context.Background()

	src, err := subjects.GetOrCreate(ctx, userID, "Physics")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	for _, item := range []*models.ReviewItem{
		{SubjectID: src.ID, Question: "Unit of force?", Answer: "Newton", Source: "phys.pdf", Location: 4},
		{SubjectID: src.ID, Kind: models.KindMultipleChoice, Question: "c in m/s?", Answer: "3e8", Choices: models.Choices{"3e6", "3e8"}},
	} {
		if err := items.Create(ctx, item); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	list, err := items.ListBySubject(ctx, src.ID)
	if err != nil {
		t.Fatalf("ListBySubject: %v", err)
	}

	path := filepath.Join(t.TempDir(), "physics.xlsx")
	if err := ExportItems(path, list); err != nil {
		t.Fatalf("ExportItems: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	header, err := f.GetCellValue("Sheet1", "A1")
	f.Close()
	if err != nil || header != "Question" {
		t.Fatalf("header = %q, %v", header, err)
	}

	cfg := DefaultImportConfig()
	cfg.FilePath = path
	cfg.UserID = userID
	cfg.SubjectName = "Physics copy"
	result, err := NewImporter(subjects, items).ImportItems(ctx, cfg)
	if err != nil {
		t.Fatalf("ImportItems: %v", err)
	}
	if result.Created != 2 || len(result.Errors) != 0 {
		t.Fatalf("result = %+v", result)
	}

	copied, err := items.ListBySubject(ctx, result.SubjectID)
	if err != nil {
		t.Fatalf("ListBySubject: %v", err)
	}
	if copied[0].Source != "phys.pdf" || copied[0].Location != 4 {
		t.Errorf("provenance lost: %+v", copied[0])
	}
	if copied[1].Kind != models.KindMultipleChoice || len(copied[1].Choices) != 2 || copied[1].Choices[1] != "3e8" {
		t.Errorf("choices lost: %+v", copied[1])
	}
}
