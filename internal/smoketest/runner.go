package smoketest

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rackline/ladder/pkg/logger"
)

// Run executes the complete ladder smoke test: register competitors,
// drive challenge rounds through lock and score submission, then verify
// the final ladder is still a clean permutation.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting ladder smoke test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("competitors", config.Competitors),
		logger.Int("rounds", config.Rounds),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Float64("disputeRate", config.DisputeRate),
		logger.Any("verbose", config.Verbose))

	client := newHTTPClient(config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Register competitors
	if err := registerCompetitors(ctx, client, config, stats); err != nil {
		return fmt.Errorf("competitor registration failed: %w", err)
	}

	// Step 3: Drive challenge rounds
	rng := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // load generation, not crypto
	if err := driveRounds(ctx, client, config, rng, stats); err != nil {
		return fmt.Errorf("challenge rounds failed: %w", err)
	}

	// Step 4: Wait for the event pipeline to settle
	logger.Get().Info(ctx, "waiting for events to settle")
	time.Sleep(SettleDelay)

	// Step 5: Verify the final ladder
	if err := verifyLadder(ctx, client, config, stats); err != nil {
		return fmt.Errorf("ladder verification failed: %w", err)
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "smoke test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return err
	}

	// Any 200 counts as healthy; the endpoint serves Prometheus metrics.
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// registerCompetitors POSTs the competitor pool concurrently. Every id
// lands at the bottom of the ladder in registration order.
func registerCompetitors(ctx context.Context, client *HTTPClient, config *Config, stats *Stats) error {
	logger.Get().Info(ctx, "registering competitors", logger.Int("count", config.Competitors))

	url := config.BaseURL + "/competitors"

	var registered, failed int64

	ids := make(chan string, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range ids {
				select {
				case <-ctx.Done():
					return
				default:
				}

				body := map[string]string{"competitor_id": id}
				if err := client.postJSON(ctx, url, body, nil, StatusCreated); err != nil {
					atomic.AddInt64(&failed, 1)
					logger.Get().Warn(ctx, "registration failed",
						logger.String("competitor_id", id), logger.Error(err))
					continue
				}
				atomic.AddInt64(&registered, 1)
			}
		}()
	}

	for i := 1; i <= config.Competitors; i++ {
		ids <- competitorID(i)
	}
	close(ids)
	wg.Wait()

	stats.CompetitorsRegistered = int(atomic.LoadInt64(&registered))
	stats.Failures += int(atomic.LoadInt64(&failed))

	if stats.CompetitorsRegistered == 0 {
		return fmt.Errorf("no competitors registered")
	}
	logger.Get().Info(ctx, "competitors registered",
		logger.Int("registered", stats.CompetitorsRegistered),
		logger.Int("failed", int(failed)))
	return nil
}

// driveRounds walks challenge rounds sequentially. Each round reads the
// current ladder, picks a challenger one rung below their target, locks
// the challenge through a venue proposal, and submits both score reports.
func driveRounds(ctx context.Context, client *HTTPClient, config *Config, rng *rand.Rand, stats *Stats) error {
	logger.Get().Info(ctx, "driving challenge rounds", logger.Int("rounds", config.Rounds))

	for round := 0; round < config.Rounds; round++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var entries []Entry
		if err := client.getJSON(ctx, fmt.Sprintf("%s/ladder?limit=%d", config.BaseURL, config.Competitors), &entries); err != nil {
			return err
		}
		if len(entries) < 2 {
			return fmt.Errorf("ladder too small for rounds: %d entries", len(entries))
		}

		idx := 1 + rng.Intn(len(entries)-1)
		challenger := entries[idx].CompetitorID
		challenged := entries[idx-1].CompetitorID

		if err := driveOneRound(ctx, client, config, rng, stats, challenger, challenged); err != nil {
			stats.Failures++
			logger.Get().Warn(ctx, "round failed",
				logger.Int("round", round),
				logger.String("challenger", challenger),
				logger.String("challenged", challenged),
				logger.Error(err))
			continue
		}
		stats.RoundsDriven++
	}

	logger.Get().Info(ctx, "challenge rounds done",
		logger.Int("driven", stats.RoundsDriven),
		logger.Int("locked", stats.ChallengesLocked),
		logger.Int("completed", stats.MatchesCompleted),
		logger.Int("disputed", stats.MatchesDisputed))
	return nil
}

// driveOneRound runs one create -> propose -> confirm -> score cycle.
func driveOneRound(ctx context.Context, client *HTTPClient, config *Config, rng *rand.Rand, stats *Stats, challenger, challenged string) error {
	raceTo := 3 + rng.Intn(5)

	var ch Challenge
	create := map[string]interface{}{
		"challenger_id": challenger,
		"challenged_id": challenged,
		"discipline":    randomDiscipline(rng),
		"race_to":       raceTo,
	}
	if err := client.postJSON(ctx, config.BaseURL+"/challenges", create, &ch, StatusCreated); err != nil {
		return fmt.Errorf("create: %w", err)
	}

	respondURL := fmt.Sprintf("%s/challenges/%s/respond", config.BaseURL, ch.ID)

	// The challenged side proposes; the challenger confirms. That keeps
	// the proposer alternation rule satisfied in one hop.
	propose := map[string]interface{}{
		"actor_id":       challenged,
		"action":         "propose",
		"venue":          randomVenue(rng),
		"scheduled_time": randomSchedule(rng).Format(time.RFC3339),
	}
	if err := client.postJSON(ctx, respondURL, propose, &ch, StatusOK); err != nil {
		return fmt.Errorf("propose: %w", err)
	}

	confirm := map[string]interface{}{
		"actor_id": challenger,
		"action":   "confirm",
	}
	if err := client.postJSON(ctx, respondURL, confirm, &ch, StatusOK); err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	if ch.Status != "locked" {
		return fmt.Errorf("expected locked challenge, got %s", ch.Status)
	}
	stats.ChallengesLocked++

	m, err := findScheduledMatch(ctx, client, config, challenger, ch.ID)
	if err != nil {
		return err
	}

	return submitScores(ctx, client, config, rng, stats, m, challenger, challenged)
}

// findScheduledMatch locates the match a locked challenge scheduled.
func findScheduledMatch(ctx context.Context, client *HTTPClient, config *Config, competitor, challengeID string) (Match, error) {
	var matches []Match
	url := fmt.Sprintf("%s/matches?competitor=%s", config.BaseURL, competitor)
	if err := client.getJSON(ctx, url, &matches); err != nil {
		return Match{}, err
	}
	for _, m := range matches {
		if m.ChallengeID == challengeID {
			return m, nil
		}
	}
	return Match{}, fmt.Errorf("no match found for challenge %s", challengeID)
}

// submitScores files both perspective reports. A slice of rounds submits
// deliberately mismatched counts to exercise the dispute path.
func submitScores(ctx context.Context, client *HTTPClient, config *Config, rng *rand.Rand, stats *Stats, m Match, challenger, challenged string) error {
	scoreURL := fmt.Sprintf("%s/matches/%s/score", config.BaseURL, m.ID)

	challengerWins := rng.Intn(2) == 0
	losing := loserGames(rng, m.RaceTo)
	dispute := rng.Float64() < config.DisputeRate

	challengerGames, challengedGames := losing, m.RaceTo
	if challengerWins {
		challengerGames, challengedGames = m.RaceTo, losing
	}

	first := map[string]interface{}{
		"actor_id":       challenger,
		"my_games":       challengerGames,
		"opponent_games": challengedGames,
	}
	if err := client.postJSON(ctx, scoreURL, first, &m, StatusOK); err != nil {
		return fmt.Errorf("first score: %w", err)
	}

	myGames, oppGames := challengedGames, challengerGames
	if dispute {
		// The challenged side claims the mirror result, so both sides
		// claim the same win and the reports cannot agree.
		myGames, oppGames = oppGames, myGames
	}
	second := map[string]interface{}{
		"actor_id":       challenged,
		"my_games":       myGames,
		"opponent_games": oppGames,
	}
	if err := client.postJSON(ctx, scoreURL, second, &m, StatusOK); err != nil {
		return fmt.Errorf("second score: %w", err)
	}

	switch m.Status {
	case "completed":
		stats.MatchesCompleted++
		if m.WinnerID == challenger {
			stats.Upsets++
		} else {
			stats.Defenses++
		}
	case "disputed":
		stats.MatchesDisputed++
	default:
		return fmt.Errorf("match neither completed nor disputed: %s", m.Status)
	}
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var roundsPerSecond float64
	if stats.Duration > 0 {
		roundsPerSecond = float64(stats.RoundsDriven) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("competitorsRegistered", stats.CompetitorsRegistered),
		logger.Int("roundsDriven", stats.RoundsDriven),
		logger.Int("challengesLocked", stats.ChallengesLocked),
		logger.Int("matchesCompleted", stats.MatchesCompleted),
		logger.Int("matchesDisputed", stats.MatchesDisputed),
		logger.Int("upsets", stats.Upsets),
		logger.Int("defenses", stats.Defenses),
		logger.Int("failures", stats.Failures),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("roundsPerSecond", roundsPerSecond))
}
