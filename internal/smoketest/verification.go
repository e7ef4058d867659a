package smoketest

import (
	"context"
	"fmt"

	"github.com/rackline/ladder/pkg/logger"
)

// verifyLadder reads the final ladder and checks that it is still a
// clean permutation: every registered competitor present exactly once,
// ranks contiguous from one.
func verifyLadder(ctx context.Context, client *HTTPClient, config *Config, stats *Stats) error {
	logger.Get().Info(ctx, "verifying final ladder")

	var entries []Entry
	url := fmt.Sprintf("%s/ladder?limit=%d", config.BaseURL, config.Competitors)
	if err := client.getJSON(ctx, url, &entries); err != nil {
		return err
	}

	if len(entries) != stats.CompetitorsRegistered {
		return fmt.Errorf("ladder has %d entries, registered %d", len(entries), stats.CompetitorsRegistered)
	}

	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.Rank != i+1 {
			return fmt.Errorf("rank gap at index %d: got rank %d", i, e.Rank)
		}
		if seen[e.CompetitorID] {
			return fmt.Errorf("competitor %s appears twice", e.CompetitorID)
		}
		seen[e.CompetitorID] = true
	}

	if config.Verbose {
		for _, e := range entries {
			logger.Get().Info(ctx, "ladder entry",
				logger.Int("rank", e.Rank),
				logger.String("competitor", e.CompetitorID))
		}
	}

	logger.Get().Info(ctx, "ladder verified",
		logger.Int("entries", len(entries)),
		logger.Int("upsets", stats.Upsets),
		logger.Int("defenses", stats.Defenses))
	return nil
}
