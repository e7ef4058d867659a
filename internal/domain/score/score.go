// Package score validates race-to score lines and reconciles the two
// independently reported submissions of a match.
package score

// Side identifies which participant of a match a value refers to.
type Side string

// Match sides.
const (
	SideChallenger Side = "challenger"
	SideChallenged Side = "challenged"
)

// Submission is one side's report of the final score, expressed from that
// side's own perspective.
type Submission struct {
	MyGames       int `json:"my_games"`
	OpponentGames int `json:"opponent_games"`
}

// Validate checks a single agreed score line against the race target and
// returns the winning side.
//
// Exactly one side must have reached raceTo; the other side's games must be
// non-negative and strictly below raceTo.
func Validate(challengerGames, challengedGames, raceTo int) (Side, error) {
	if challengerGames < 0 || challengedGames < 0 {
		return "", ErrInvalidScore
	}
	// A race stops the moment a side reaches the target; counts beyond it
	// cannot occur in a real match.
	if challengerGames > raceTo || challengedGames > raceTo {
		return "", ErrInvalidScore
	}
	challengerWon := challengerGames == raceTo
	challengedWon := challengedGames == raceTo
	switch {
	case challengerWon && challengedWon:
		return "", ErrBothWon
	case !challengerWon && !challengedWon:
		return "", ErrNoWinner
	case challengerWon:
		return SideChallenger, nil
	default:
		return SideChallenged, nil
	}
}

// Agree reports whether two perspective-relative submissions describe the
// same score. Each party reports its own games first, so agreement means the
// reports mirror each other.
func Agree(challenger, challenged Submission) bool {
	return challenger.MyGames == challenged.OpponentGames &&
		challenger.OpponentGames == challenged.MyGames
}
