// Package types contains common read shapes shared across the application
package types

// Entry represents a ladder row as exposed to readers.
type Entry struct {
	Rank         int    `json:"rank"`
	CompetitorID string `json:"competitor_id"`
	Score        int    `json:"score"`
}
