package smoketest

import "time"

// Config holds configuration for the ladder smoke test
type Config struct {
	BaseURL     string        // Base URL of the service
	Competitors int           // Number of competitors to register
	Rounds      int           // Number of challenge rounds to drive
	Workers     int           // Number of concurrent workers for registration
	Timeout     time.Duration // HTTP request timeout
	DisputeRate float64       // Fraction of rounds that submit mismatched scores
	LogFile     string        // Log file for test output
	Verbose     bool          // Enable verbose logging
}

// Entry represents a ladder entry
type Entry struct {
	Rank         int    `json:"rank"`
	CompetitorID string `json:"competitor_id"`
	Score        int    `json:"score"`
}

// Challenge represents a challenge as returned by the API
type Challenge struct {
	ID            string `json:"id"`
	ChallengerID  string `json:"challenger_id"`
	ChallengedID  string `json:"challenged_id"`
	Discipline    string `json:"discipline"`
	RaceTo        int    `json:"race_to"`
	Status        string `json:"status"`
	Venue         string `json:"venue"`
	ScheduledTime string `json:"scheduled_time"`
	ProposerID    string `json:"proposer_id"`
}

// Match represents a match as returned by the API
type Match struct {
	ID            string `json:"id"`
	ChallengeID   string `json:"challenge_id"`
	ChallengerID  string `json:"challenger_id"`
	ChallengedID  string `json:"challenged_id"`
	RaceTo        int    `json:"race_to"`
	Status        string `json:"status"`
	WinnerID      string `json:"winner_id"`
	DisputeReason string `json:"dispute_reason"`
}

// ErrorResponse represents an API error body
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stats holds test statistics
type Stats struct {
	CompetitorsRegistered int
	RoundsDriven          int
	ChallengesLocked      int
	MatchesCompleted      int
	MatchesDisputed       int
	Upsets                int
	Defenses              int
	Failures              int
	StartTime             time.Time
	EndTime               time.Time
	Duration              time.Duration
}
