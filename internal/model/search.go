package model

import (
	"time"
)

// SearchEntry is a distinct search input string
type SearchEntry struct {
	ID        int       `json:"id" db:"id"`
	Input     string    `json:"input" db:"input"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SearchResultRecord is a persisted SearchResult
type SearchResultRecord struct {
	ID int `json:"id" db:"id"`
	SearchResult
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SearchOutcome is what a symbol search returns to callers
type SearchOutcome struct {
	Keywords string         `json:"keywords"`
	Source   string         `json:"source"`
	Results  []SearchResult `json:"results"`
}

// Sources of a fetch outcome
const (
	SourceAPI      = "api"
	SourceDatabase = "db"
	SourceCache    = "cache"
)
