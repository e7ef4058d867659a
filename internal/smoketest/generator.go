package smoketest

import (
	"fmt"
	"math/rand"
	"time"
)

// Pools the generator draws from. Competitor ids stay synthetic so reruns
// against a fresh store are reproducible.
var (
	venues = []string{
		"Rack Room", "The Break", "Side Pocket", "Chalk It Up",
		"Golden Cue", "Eight Ball Hall", "Corner Pocket Club",
	}

	disciplines = []string{"nine-ball", "eight-ball", "ten-ball", "straight-pool"}
)

// competitorID returns the synthetic id for the n-th competitor.
func competitorID(n int) string {
	return fmt.Sprintf("competitor_%04d", n)
}

// randomVenue picks a venue for a proposal.
func randomVenue(rng *rand.Rand) string {
	return venues[rng.Intn(len(venues))]
}

// randomDiscipline picks a discipline for a challenge.
func randomDiscipline(rng *rand.Rand) string {
	return disciplines[rng.Intn(len(disciplines))]
}

// randomSchedule picks a slot within the next two weeks.
func randomSchedule(rng *rand.Rand) time.Time {
	offset := time.Duration(rng.Intn(14*24)) * time.Hour
	return time.Now().UTC().Add(24 * time.Hour).Add(offset).Truncate(time.Hour)
}

// loserGames picks a plausible losing score for a race to target.
func loserGames(rng *rand.Rand, raceTo int) int {
	return rng.Intn(raceTo)
}
