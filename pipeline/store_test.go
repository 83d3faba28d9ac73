package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/riandhika/goodreads-scraper/models"
)

func sampleBooks() []*models.Book {
	return []*models.Book{
		{
			Title:         "Fight Club",
			AuthorName:    "Chuck Palahniuk",
			Description:   "Chuck Palahniuk showed himself to be his generation.",
			ISBN:          "9780393355949",
			Publication:   "1996-08-17",
			Pages:         224,
			Category:      []string{"Fiction", "Classics"},
			Likes:         69,
			AverageRating: 4.18,
			TotalRating:   625058,
			TotalReview:   25009,
			Price:         57000,
			Stock:         7,
			ImageURL:      "https://images.example.test/books/36236124.jpg",
		},
		{
			Title:       "Dune",
			AuthorName:  "Frank Herbert",
			Description: "No description available.",
			ISBN:        "N/A",
			Publication: "N/A",
			Category:    []string{"General"},
			ImageURL:    "https://via.placeholder.com/150?text=No+Image+Available",
		},
	}
}

func TestAppendJSONCreatesStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.json")

	if err := AppendJSON(sampleBooks(), path); err != nil {
		t.Fatalf("append json: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	var decoded []*models.Book
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode store: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("records = %d, want 2", len(decoded))
	}
	if decoded[0].Title != "Fight Club" || decoded[0].Publication != "1996-08-17" {
		t.Fatalf("first record = %+v", decoded[0])
	}
}

// Appending the same list twice concatenates it: the store keeps duplicate
// entries across runs, intra-run dedupe is the only dedupe there is.
func TestAppendJSONTwiceConcatenates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.json")
	books := sampleBooks()

	if err := AppendJSON(books, path); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := AppendJSON(books, path); err != nil {
		t.Fatalf("second append: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	var decoded []*models.Book
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode store: %v", err)
	}
	if len(decoded) != 4 {
		t.Fatalf("records = %d, want 4 (the list twice over)", len(decoded))
	}
	if decoded[0].Title != decoded[2].Title || decoded[1].Title != decoded[3].Title {
		t.Fatalf("appended run should repeat the first in order: %v", decoded)
	}
}

func TestAppendJSONRejectsMalformedStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if err := AppendJSON(sampleBooks(), path); err == nil {
		t.Fatalf("expected error for a malformed store")
	}

	// The corrupt file must survive untouched for inspection.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	if string(data) != "{not json" {
		t.Fatalf("malformed store was overwritten: %q", string(data))
	}
}

func TestAppendCSVCreatesAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.csv")
	books := sampleBooks()

	if err := AppendCSV(books, path); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := AppendCSV(books[:1], path); err != nil {
		t.Fatalf("second append: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(records))
	}
	if records[0][0] != "title" || records[0][1] != "authorName" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[1][0] != "Fight Club" || records[3][0] != "Fight Club" {
		t.Fatalf("unexpected row order: %v", records)
	}
	if records[1][5] != "224" {
		t.Fatalf("pages column = %q, want %q", records[1][5], "224")
	}
	if records[2][5] != "N/A" {
		t.Fatalf("missing pages column = %q, want %q", records[2][5], "N/A")
	}
	if records[1][6] != `["Fiction","Classics"]` {
		t.Fatalf("category column = %q", records[1][6])
	}
}

func TestSaveDispatch(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "books")

	if err := Save(sampleBooks(), "dual", base); err != nil {
		t.Fatalf("save dual: %v", err)
	}
	for _, ext := range []string{".json", ".csv"} {
		if _, err := os.Stat(base + ext); err != nil {
			t.Errorf("expected %s store: %v", ext, err)
		}
	}
}

func TestSaveUnsupportedFormatIsNoOp(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "books")

	if err := Save(sampleBooks(), "xml", base); err != nil {
		t.Fatalf("unsupported format should not error, got %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("no files should be written, found %v", entries)
	}
}
