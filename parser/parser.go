// Package parser extracts book metadata from Goodreads detail-page markup.
//
// Every field is located independently by a structural selector. Optional
// fields fall back to documented defaults when their element is absent;
// only a missing title or author fails the whole record.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/riandhika/goodreads-scraper/models"
)

// FallbackImage replaces a missing cover image URL.
const FallbackImage = "https://via.placeholder.com/150?text=No+Image+Available"

const (
	fallbackText        = "N/A"
	fallbackDescription = "No description available."
)

var (
	isbn13Re = regexp.MustCompile(`\b97[89]\d{10}\b`)
	pagesRe  = regexp.MustCompile(`(?i)(\d+)\s+pages`)
	nonDigit = regexp.MustCompile(`\D`)

	// Publication patterns, tried most to least specific.
	pubDayRe   = regexp.MustCompile(`(?:First published|Published)\s+([A-Za-z]+\s+\d{1,2},\s+\d{4})`)
	pubMonthRe = regexp.MustCompile(`(?:First published|Published)\s+([A-Za-z]+\s+\d{4})`)
	pubYearRe  = regexp.MustCompile(`(?:First published|Published)\s+(\d{4})`)
)

// ParseError reports a record that had to be discarded entirely.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parser turns detail-page markup into Book records.
type Parser struct {
	rng       *rand.Rand
	maxGenres int
}

// New builds a Parser. The simulated commerce fields (price, likes, stock)
// are drawn from rng so tests can inject a deterministic source. maxGenres
// caps the category list; zero keeps it unbounded.
func New(rng *rand.Rand, maxGenres int) *Parser {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Parser{rng: rng, maxGenres: maxGenres}
}

// ParseBook extracts one Book from raw markup. A missing title or author
// discards the whole record with a ParseError carrying pageURL; every other
// field resolves to its fallback on absence.
func (p *Parser) ParseBook(markup []byte, pageURL string) (*models.Book, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, &ParseError{URL: pageURL, Err: err}
	}

	title := strings.TrimSpace(doc.Find(`h1[data-testid="bookTitle"]`).First().Text())
	if title == "" {
		return nil, &ParseError{URL: pageURL, Err: errors.New("missing book title")}
	}
	author := strings.TrimSpace(doc.Find("a.ContributorLink").First().Text())
	if author == "" {
		return nil, &ParseError{URL: pageURL, Err: errors.New("missing author name")}
	}

	return &models.Book{
		Title:         title,
		AuthorName:    author,
		Description:   extractDescription(doc),
		ISBN:          extractISBN(doc, string(markup)),
		Publication:   extractPublication(doc),
		Pages:         extractPages(doc),
		Category:      p.extractGenres(doc),
		Likes:         p.rng.Intn(100) + 1,
		AverageRating: extractRating(doc),
		TotalRating:   extractCount(doc, `span[data-testid="ratingsCount"]`),
		TotalReview:   extractCount(doc, `span[data-testid="reviewsCount"]`),
		Price:         (p.rng.Intn(191) + 10) * 1000,
		Stock:         p.rng.Intn(10) + 1,
		ImageURL:      extractImageURL(doc),
	}, nil
}

// extractDescription keeps only the first sentence of the blurb.
func extractDescription(doc *goquery.Document) string {
	text := strings.TrimSpace(doc.Find(`div[data-testid="description"]`).First().Text())
	if idx := strings.Index(text, "."); idx >= 0 {
		return text[:idx+1]
	}
	return fallbackDescription
}

// extractISBN scans the short supplementary content blocks for a token with
// at least ten leading digits, then falls back to a direct ISBN-13 pattern
// match over the raw markup.
func extractISBN(doc *goquery.Document, raw string) string {
	found := ""
	doc.Find(`div.TruncatedContent__text.TruncatedContent__text--small[data-testid="contentContainer"]`).
		EachWithBreak(func(_ int, s *goquery.Selection) bool {
			fields := strings.Fields(strings.TrimSpace(s.Text()))
			if len(fields) == 0 {
				return true
			}
			if leadingDigits(fields[0]) >= 10 {
				found = fields[0]
				return false
			}
			return true
		})
	if found != "" {
		return found
	}
	if match := isbn13Re.FindString(raw); match != "" {
		return match
	}
	return fallbackText
}

func leadingDigits(s string) int {
	count := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		count++
	}
	return count
}

// extractPublication normalizes the publication-info blob to YYYY-MM-DD.
// Month-only and year-only forms default the missing parts to the first
// day and January, so "Published 1996" becomes "1996-01-01".
func extractPublication(doc *goquery.Document) string {
	text := strings.TrimSpace(doc.Find(`p[data-testid="publicationInfo"]`).First().Text())
	if text == "" {
		return fallbackText
	}

	patterns := []struct {
		re     *regexp.Regexp
		layout string
	}{
		{pubDayRe, "January 2, 2006"},
		{pubMonthRe, "January 2006"},
		{pubYearRe, "2006"},
	}
	for _, pat := range patterns {
		match := pat.re.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		normalized := strings.Join(strings.Fields(match[1]), " ")
		parsed, err := time.Parse(pat.layout, normalized)
		if err != nil {
			return fallbackText
		}
		return parsed.Format("2006-01-02")
	}
	return fallbackText
}

func extractPages(doc *goquery.Document) int {
	text := strings.TrimSpace(doc.Find(`p[data-testid="pagesFormat"]`).First().Text())
	match := pagesRe.FindStringSubmatch(text)
	if match == nil {
		return 0
	}
	pages, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return pages
}

func (p *Parser) extractGenres(doc *goquery.Document) []string {
	section := doc.Find(`div[data-testid="genresList"]`).First()
	if section.Length() == 0 {
		return []string{"General"}
	}

	genres := []string{}
	section.Find("a.Button--tag.Button--medium span.Button__labelItem").
		EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if p.maxGenres > 0 && len(genres) >= p.maxGenres {
				return false
			}
			if label := strings.TrimSpace(s.Text()); label != "" {
				genres = append(genres, label)
			}
			return true
		})
	if len(genres) == 0 {
		return []string{"General"}
	}
	return genres
}

func extractRating(doc *goquery.Document) float64 {
	text := strings.TrimSpace(doc.Find("div.RatingStatistics__rating").First().Text())
	if text == "" {
		return 0.0
	}
	rating, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0.0
	}
	return rating
}

// extractCount strips every non-digit character from the matched text and
// parses what remains, so "625,058 ratings" yields 625058.
func extractCount(doc *goquery.Document, selector string) int {
	text := doc.Find(selector).First().Text()
	digits := nonDigit.ReplaceAllString(text, "")
	if digits == "" {
		return 0
	}
	count, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return count
}

func extractImageURL(doc *goquery.Document) string {
	return doc.Find("img.ResponsiveImage").First().AttrOr("src", FallbackImage)
}
