// Package models defines data structures for the scraper.
package models

import "time"

// Book represents one scraped Goodreads book record. Field names in the
// JSON/CSV output follow the store schema (`title`, `authorName`, ...).
//
// Price, Likes and Stock are simulated commerce fields: they are drawn from
// fixed uniform ranges at parse time, never from the page, so their values
// are non-deterministic across runs.
type Book struct {
	Title         string   `csv:"title" json:"title"`
	AuthorName    string   `csv:"authorName" json:"authorName"`
	Description   string   `csv:"description" json:"description"`
	ISBN          string   `csv:"isbn" json:"isbn"`
	Publication   string   `csv:"publication" json:"publication"`
	Pages         int      `csv:"pages" json:"pages"`
	Category      []string `csv:"category" json:"category"`
	Likes         int      `csv:"likes" json:"likes"`
	AverageRating float64  `csv:"averageRating" json:"averageRating"`
	TotalRating   int      `csv:"totalRating" json:"totalRating"`
	TotalReview   int      `csv:"totalReview" json:"totalReview"`
	Price         int      `csv:"price" json:"price"`
	Stock         int      `csv:"stock" json:"stock"`
	ImageURL      string   `csv:"imageURL" json:"imageURL"`
}

// BatchResult holds the overall result of an extraction run.
type BatchResult struct {
	StartTime       time.Time
	EndTime         time.Time
	RequestCount    int
	FetchFailures   int
	ParseFailures   int
	InvalidURLs     int
	DuplicateTitles int
}
