package service_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/rackline/ladder/internal/app"
	"github.com/rackline/ladder/internal/domain/ladder"
	"github.com/rackline/ladder/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func startService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	svc := service.New(opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("failed to start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func seedFour(t *testing.T, svc *service.Service) {
	t.Helper()
	err := svc.SeedLadder(context.Background(), []ladder.Entry{
		{CompetitorID: "alice", Position: 1, Score: 50},
		{CompetitorID: "bob", Position: 2, Score: 40},
		{CompetitorID: "carol", Position: 3, Score: 30},
		{CompetitorID: "dave", Position: 4, Score: 20},
	})
	if err != nil {
		t.Fatalf("failed to seed ladder: %v", err)
	}
}

func TestServiceChallengeEligibility(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with a four-rung ladder", t, func() {
		svc := startService(t, service.WithMinRace(3), service.WithMaxRankDiff(2))
		seedFour(t, svc)

		Convey("A valid upward challenge is accepted as pending", func() {
			ch, err := svc.CreateChallenge(ctx, "carol", "bob", "nine-ball", 7)
			So(err, ShouldBeNil)
			So(ch.ID, ShouldNotBeEmpty)
			So(ch.Status.Terminal(), ShouldBeFalse)
			So(ch.Version, ShouldEqual, 1)
		})

		Convey("Challenging yourself is rejected", func() {
			_, err := svc.CreateChallenge(ctx, "bob", "bob", "nine-ball", 7)
			So(errors.Is(err, service.ErrSelfChallenge), ShouldBeTrue)
		})

		Convey("A race below the minimum is rejected", func() {
			_, err := svc.CreateChallenge(ctx, "carol", "bob", "nine-ball", 2)
			So(errors.Is(err, service.ErrRaceTooShort), ShouldBeTrue)
		})

		Convey("An unranked party is rejected, either side", func() {
			_, err := svc.CreateChallenge(ctx, "mallory", "bob", "nine-ball", 7)
			So(errors.Is(err, service.ErrUnranked), ShouldBeTrue)

			_, err = svc.CreateChallenge(ctx, "bob", "mallory", "nine-ball", 7)
			So(errors.Is(err, service.ErrUnranked), ShouldBeTrue)
		})

		Convey("A challenge past the rank window is rejected", func() {
			_, err := svc.CreateChallenge(ctx, "dave", "alice", "nine-ball", 7)
			So(errors.Is(err, service.ErrRankDistanceExceeded), ShouldBeTrue)
		})
	})
}

func TestServiceReads(t *testing.T) {
	ctx := context.Background()

	Convey("Given a seeded service", t, func() {
		svc := startService(t)
		seedFour(t, svc)

		Convey("Ladder respects the limit and is rank-ordered", func() {
			entries, err := svc.Ladder(ctx, 2)
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 2)
			So(entries[0].CompetitorID, ShouldEqual, "alice")
			So(entries[1].CompetitorID, ShouldEqual, "bob")
		})

		Convey("A non-positive limit returns the whole ladder", func() {
			entries, err := svc.Ladder(ctx, 0)
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 4)
		})

		Convey("Rank resolves a single competitor", func() {
			entry, err := svc.Rank(ctx, "carol")
			So(err, ShouldBeNil)
			So(entry.Rank, ShouldEqual, 3)
		})

		Convey("AddCompetitor appends at the bottom", func() {
			entry, err := svc.AddCompetitor(ctx, "erin")
			So(err, ShouldBeNil)
			So(entry.Rank, ShouldEqual, 5)
		})

		Convey("GetStats reports the running state", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldBeTrue)
			So(stats["ladderSize"], ShouldEqual, 4)
		})
	})
}

func TestServiceNotStarted(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service that was never started", t, func() {
		svc := service.New()

		Convey("Writes are refused until Start", func() {
			_, err := svc.CreateChallenge(ctx, "carol", "bob", "nine-ball", 7)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Reads are refused until Start", func() {
			_, err := svc.Ladder(ctx, 0)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})
}
