package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	repository "github.com/rackline/ladder/internal/adapters/repository"
	service "github.com/rackline/ladder/internal/app"
	"github.com/rackline/ladder/internal/domain/challenge"
	"github.com/rackline/ladder/internal/domain/match"
	"github.com/rackline/ladder/internal/domain/score"
)

func submission(my, opp int) match.Submission {
	return match.Submission{
		Submission: score.Submission{MyGames: my, OpponentGames: opp},
	}
}

// lockChallenge walks a fresh challenge through venue negotiation to the
// locked state and returns the scheduled match.
func lockChallenge(t *testing.T, svc *service.Service, challengerID, challengedID string) match.Match {
	t.Helper()
	ctx := context.Background()

	ch, err := svc.CreateChallenge(ctx, challengerID, challengedID, "nine-ball", 5)
	if err != nil {
		t.Fatalf("failed to create challenge: %v", err)
	}

	when := time.Date(2026, 4, 10, 19, 0, 0, 0, time.UTC)
	if _, err := svc.RespondToChallenge(ctx, ch.ID, challengedID, challenge.Propose{Venue: "Rack Room", Time: when}); err != nil {
		t.Fatalf("failed to propose venue: %v", err)
	}
	locked, err := svc.RespondToChallenge(ctx, ch.ID, challengerID, challenge.Confirm{})
	if err != nil {
		t.Fatalf("failed to confirm venue: %v", err)
	}
	if locked.Status != challenge.StatusLocked {
		t.Fatalf("expected locked challenge, got %s", locked.Status)
	}

	matches, err := svc.MatchesFor(ctx, challengerID)
	if err != nil || len(matches) == 0 {
		t.Fatalf("expected a scheduled match, got %v (err %v)", matches, err)
	}
	return matches[0]
}

func TestServiceChallengeLifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a seeded service", t, func() {
		svc := startService(t, service.WithMaxRankDiff(2))
		seedFour(t, svc)

		Convey("Negotiation walks propose, counter, confirm and locks", func() {
			ch, err := svc.CreateChallenge(ctx, "carol", "bob", "nine-ball", 5)
			So(err, ShouldBeNil)

			when := time.Date(2026, 4, 10, 19, 0, 0, 0, time.UTC)
			proposed, err := svc.RespondToChallenge(ctx, ch.ID, "bob", challenge.Propose{Venue: "Rack Room", Time: when})
			So(err, ShouldBeNil)
			So(proposed.Status, ShouldEqual, challenge.StatusVenueProposed)

			countered, err := svc.RespondToChallenge(ctx, ch.ID, "carol", challenge.Counter{Venue: "Side Pocket", Time: when.Add(time.Hour)})
			So(err, ShouldBeNil)
			So(countered.Status, ShouldEqual, challenge.StatusCountered)

			Convey("The standing proposer cannot confirm their own proposal", func() {
				_, err := svc.RespondToChallenge(ctx, ch.ID, "carol", challenge.Confirm{})
				So(errors.Is(err, challenge.ErrOwnProposal), ShouldBeTrue)
			})

			locked, err := svc.RespondToChallenge(ctx, ch.ID, "bob", challenge.Confirm{})
			So(err, ShouldBeNil)
			So(locked.Status, ShouldEqual, challenge.StatusLocked)
			So(locked.Venue, ShouldEqual, "Side Pocket")

			Convey("Locking schedules a match mirroring the agreed terms", func() {
				matches, err := svc.MatchesFor(ctx, "carol")
				So(err, ShouldBeNil)
				So(len(matches), ShouldEqual, 1)
				So(matches[0].Status, ShouldEqual, match.StatusScheduled)
				So(matches[0].Venue, ShouldEqual, "Side Pocket")
				So(matches[0].RaceTo, ShouldEqual, 5)
				So(matches[0].ChallengeID, ShouldEqual, ch.ID)
			})
		})

		Convey("Decline and cancel close a pending challenge", func() {
			ch, err := svc.CreateChallenge(ctx, "carol", "bob", "nine-ball", 5)
			So(err, ShouldBeNil)

			declined, err := svc.RespondToChallenge(ctx, ch.ID, "bob", challenge.Decline{})
			So(err, ShouldBeNil)
			So(declined.Status, ShouldEqual, challenge.StatusDeclined)

			Convey("A closed challenge admits no further action", func() {
				_, err := svc.RespondToChallenge(ctx, ch.ID, "carol", challenge.Cancel{})
				So(errors.Is(err, challenge.ErrChallengeClosed), ShouldBeTrue)
			})
		})
	})
}

func TestServiceScoreAndShift(t *testing.T) {
	ctx := context.Background()

	Convey("Given a locked match between carol (3) and bob (2)", t, func() {
		svc := startService(t, service.WithMaxRankDiff(2))
		seedFour(t, svc)
		m := lockChallenge(t, svc, "carol", "bob")

		Convey("The first submission leaves the match scheduled", func() {
			after, err := svc.SubmitMatchScore(ctx, m.ID, "carol", submission(5, 3))
			So(err, ShouldBeNil)
			So(after.Status, ShouldEqual, match.StatusScheduled)
		})

		Convey("Agreeing submissions complete the match and shift the ladder", func() {
			_, err := svc.SubmitMatchScore(ctx, m.ID, "carol", submission(5, 3))
			So(err, ShouldBeNil)
			after, err := svc.SubmitMatchScore(ctx, m.ID, "bob", submission(3, 5))
			So(err, ShouldBeNil)
			So(after.Status, ShouldEqual, match.StatusCompleted)
			So(after.WinnerID, ShouldEqual, "carol")

			entries, err := svc.Ladder(ctx, 0)
			So(err, ShouldBeNil)
			So(entries[0].CompetitorID, ShouldEqual, "alice")
			So(entries[1].CompetitorID, ShouldEqual, "carol")
			So(entries[2].CompetitorID, ShouldEqual, "bob")
			So(entries[3].CompetitorID, ShouldEqual, "dave")

			Convey("A further submission replays without moving the ladder again", func() {
				replayed, err := svc.SubmitMatchScore(ctx, m.ID, "carol", submission(5, 3))
				So(err, ShouldBeNil)
				So(replayed.Status, ShouldEqual, match.StatusCompleted)
				So(replayed.WinnerID, ShouldEqual, "carol")

				entries, err := svc.Ladder(ctx, 0)
				So(err, ShouldBeNil)
				So(entries[1].CompetitorID, ShouldEqual, "carol")
				So(entries[2].CompetitorID, ShouldEqual, "bob")
			})

			Convey("A non-participant cannot replay a completed match", func() {
				_, err := svc.SubmitMatchScore(ctx, m.ID, "mallory", submission(5, 3))
				So(errors.Is(err, match.ErrNotParticipant), ShouldBeTrue)
			})
		})

		Convey("A successful defense leaves the ladder untouched", func() {
			_, err := svc.SubmitMatchScore(ctx, m.ID, "carol", submission(2, 5))
			So(err, ShouldBeNil)
			after, err := svc.SubmitMatchScore(ctx, m.ID, "bob", submission(5, 2))
			So(err, ShouldBeNil)
			So(after.WinnerID, ShouldEqual, "bob")

			entries, err := svc.Ladder(ctx, 0)
			So(err, ShouldBeNil)
			So(entries[1].CompetitorID, ShouldEqual, "bob")
			So(entries[2].CompetitorID, ShouldEqual, "carol")
		})

		Convey("Disagreeing submissions dispute the match and freeze the ladder", func() {
			_, err := svc.SubmitMatchScore(ctx, m.ID, "carol", submission(5, 3))
			So(err, ShouldBeNil)
			after, err := svc.SubmitMatchScore(ctx, m.ID, "bob", submission(5, 3))
			So(err, ShouldBeNil)
			So(after.Status, ShouldEqual, match.StatusDisputed)
			So(after.DisputeReason, ShouldNotBeEmpty)
			So(after.WinnerID, ShouldBeEmpty)

			entries, err := svc.Ladder(ctx, 0)
			So(err, ShouldBeNil)
			So(entries[1].CompetitorID, ShouldEqual, "bob")
			So(entries[2].CompetitorID, ShouldEqual, "carol")

			Convey("A disputed match admits no further submission", func() {
				_, err := svc.SubmitMatchScore(ctx, m.ID, "carol", submission(5, 3))
				So(errors.Is(err, match.ErrNotScheduled), ShouldBeTrue)
			})
		})

		Convey("A side may correct its report before the other submits", func() {
			_, err := svc.SubmitMatchScore(ctx, m.ID, "carol", submission(4, 5))
			So(err, ShouldBeNil)
			_, err = svc.SubmitMatchScore(ctx, m.ID, "carol", submission(5, 3))
			So(err, ShouldBeNil)

			after, err := svc.SubmitMatchScore(ctx, m.ID, "bob", submission(3, 5))
			So(err, ShouldBeNil)
			So(after.Status, ShouldEqual, match.StatusCompleted)
			So(after.WinnerID, ShouldEqual, "carol")
		})

		Convey("A non-participant cannot submit", func() {
			_, err := svc.SubmitMatchScore(ctx, m.ID, "mallory", submission(5, 0))
			So(errors.Is(err, match.ErrNotParticipant), ShouldBeTrue)
		})
	})
}

// faultyShiftStore fails ApplyShift a set number of times before
// delegating, standing in for a transient storage error.
type faultyShiftStore struct {
	repository.Store
	failures int
}

func (s *faultyShiftStore) ApplyShift(ctx context.Context, matchID, winnerID, loserID string) (bool, int, error) {
	if s.failures > 0 {
		s.failures--
		return false, 0, errors.New("shift write unavailable")
	}
	return s.Store.ApplyShift(ctx, matchID, winnerID, loserID)
}

func TestServiceShiftRecovery(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store whose first shift write fails", t, func() {
		store := &faultyShiftStore{Store: repository.NewMemStore(ctx), failures: 1}
		svc := startService(t, service.WithMaxRankDiff(2), service.WithStore(store))
		seedFour(t, svc)
		m := lockChallenge(t, svc, "carol", "bob")

		_, err := svc.SubmitMatchScore(ctx, m.ID, "carol", submission(5, 3))
		So(err, ShouldBeNil)

		Convey("The completing submission surfaces the failure but the match stays completed", func() {
			after, err := svc.SubmitMatchScore(ctx, m.ID, "bob", submission(3, 5))
			So(err, ShouldNotBeNil)
			So(after.Status, ShouldEqual, match.StatusCompleted)
			So(after.WinnerID, ShouldEqual, "carol")

			entries, lerr := svc.Ladder(ctx, 0)
			So(lerr, ShouldBeNil)
			So(entries[1].CompetitorID, ShouldEqual, "bob")

			Convey("A resubmission re-drives the shift and heals the ladder", func() {
				healed, err := svc.SubmitMatchScore(ctx, m.ID, "carol", submission(5, 3))
				So(err, ShouldBeNil)
				So(healed.Status, ShouldEqual, match.StatusCompleted)

				entries, err := svc.Ladder(ctx, 0)
				So(err, ShouldBeNil)
				So(entries[1].CompetitorID, ShouldEqual, "carol")
				So(entries[2].CompetitorID, ShouldEqual, "bob")
			})
		})
	})
}
