// Package pipeline persists scraped book records to flat JSON and CSV
// stores. Both stores append by read-merge-write: records from earlier runs
// are kept, new records are concatenated after them, and the whole file is
// rewritten. There is no cross-run de-duplication.
package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/riandhika/goodreads-scraper/models"
)

// csvHeader mirrors the Book field order.
var csvHeader = []string{
	"title", "authorName", "description", "isbn", "publication", "pages",
	"category", "likes", "averageRating", "totalRating", "totalReview",
	"price", "stock", "imageURL",
}

// Save dispatches to the store matching format. The base path gets the
// format's extension; "dual" writes both stores. An unsupported format is
// logged and ignored, not treated as a hard error.
func Save(books []*models.Book, format, basePath string) error {
	switch strings.ToLower(format) {
	case "json":
		return AppendJSON(books, basePath+".json")
	case "csv":
		return AppendCSV(books, basePath+".csv")
	case "dual":
		if err := AppendJSON(books, basePath+".json"); err != nil {
			return err
		}
		return AppendCSV(books, basePath+".csv")
	default:
		slog.Warn("unsupported file format", slog.String("format", format))
		return nil
	}
}

// AppendJSON merges books after any existing records at path and writes the
// combined array back, indented. A missing file is empty prior state; a
// file that exists but does not decode is an error, so a corrupt store is
// never silently overwritten.
func AppendJSON(books []*models.Book, path string) error {
	existing := []*models.Book{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf("existing store %s is malformed: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// First run against this path.
	default:
		return fmt.Errorf("read store %s: %w", path, err)
	}

	merged := append(existing, books...)
	encoded, err := json.MarshalIndent(merged, "", "    ")
	if err != nil {
		return fmt.Errorf("encode store %s: %w", path, err)
	}

	if err := writeAtomic(path, append(encoded, '\n')); err != nil {
		return err
	}
	slog.Info("data successfully saved", slog.String("path", path), slog.Int("records", len(books)))
	return nil
}

// AppendCSV rewrites the CSV store with the header, any existing rows, and
// one row per new record.
func AppendCSV(books []*models.Book, path string) error {
	rows, err := readExistingRows(path)
	if err != nil {
		return err
	}
	for _, book := range books {
		rows = append(rows, csvRecord(book))
	}

	var builder strings.Builder
	writer := csv.NewWriter(&builder)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv rows %s: %w", path, err)
	}

	if err := writeAtomic(path, []byte(builder.String())); err != nil {
		return err
	}
	slog.Info("data successfully saved", slog.String("path", path), slog.Int("records", len(books)))
	return nil
}

func readExistingRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("existing store %s is malformed: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	// Drop the header row; it is rewritten on save.
	return records[1:], nil
}

func csvRecord(book *models.Book) []string {
	pages := "N/A"
	if book.Pages > 0 {
		pages = strconv.Itoa(book.Pages)
	}
	category, _ := json.Marshal(book.Category)

	return []string{
		book.Title,
		book.AuthorName,
		book.Description,
		book.ISBN,
		book.Publication,
		pages,
		string(category),
		strconv.Itoa(book.Likes),
		strconv.FormatFloat(book.AverageRating, 'f', -1, 64),
		strconv.Itoa(book.TotalRating),
		strconv.Itoa(book.TotalReview),
		strconv.Itoa(book.Price),
		strconv.Itoa(book.Stock),
		book.ImageURL,
	}
}

// writeAtomic writes data to path through a temp file and rename, so a
// failed run cannot leave a truncated store behind.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write store %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close store %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace store %s: %w", path, err)
	}
	return nil
}
