package ladder_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/rackline/ladder/internal/domain/ladder"
	. "github.com/smartystreets/goconvey/convey"
)

func makeLadder(n int) []ladder.Entry {
	entries := make([]ladder.Entry, n)
	for i := 0; i < n; i++ {
		entries[i] = ladder.Entry{
			CompetitorID: fmt.Sprintf("competitor-%d", i+1),
			Position:     i + 1,
			Score:        (n - i) * 10,
		}
	}
	return entries
}

func TestValidate(t *testing.T) {
	Convey("Given ladder validation", t, func() {
		Convey("An empty ladder is valid", func() {
			So(ladder.Validate(nil), ShouldBeTrue)
			So(ladder.Validate([]ladder.Entry{}), ShouldBeTrue)
		})

		Convey("A contiguous 1..N ladder is valid", func() {
			So(ladder.Validate(makeLadder(5)), ShouldBeTrue)
		})

		Convey("Order of the slice does not matter", func() {
			entries := makeLadder(4)
			entries[0], entries[3] = entries[3], entries[0]
			So(ladder.Validate(entries), ShouldBeTrue)
		})

		Convey("A gap in positions is invalid", func() {
			entries := makeLadder(3)
			entries[2].Position = 5
			So(ladder.Validate(entries), ShouldBeFalse)
		})

		Convey("A duplicate position is invalid", func() {
			entries := makeLadder(3)
			entries[2].Position = 1
			So(ladder.Validate(entries), ShouldBeFalse)
		})

		Convey("A duplicate competitor id is invalid", func() {
			entries := makeLadder(3)
			entries[2].CompetitorID = entries[0].CompetitorID
			So(ladder.Validate(entries), ShouldBeFalse)
		})

		Convey("A position below one is invalid", func() {
			entries := makeLadder(2)
			entries[0].Position = 0
			So(ladder.Validate(entries), ShouldBeFalse)
		})
	})
}

func TestEligibleDistance(t *testing.T) {
	Convey("Given the rank distance rule", t, func() {
		Convey("A difference within the window is eligible", func() {
			So(ladder.EligibleDistance(2, 5, 5), ShouldBeTrue)
			So(ladder.EligibleDistance(5, 2, 5), ShouldBeTrue)
			So(ladder.EligibleDistance(1, 6, 5), ShouldBeTrue)
		})

		Convey("A difference beyond the window is not", func() {
			So(ladder.EligibleDistance(1, 7, 5), ShouldBeFalse)
			So(ladder.EligibleDistance(7, 1, 5), ShouldBeFalse)
		})

		Convey("A zero difference is rejected", func() {
			So(ladder.EligibleDistance(3, 3, 5), ShouldBeFalse)
		})
	})
}

func TestShiftOnResult(t *testing.T) {
	Convey("Given a five entry ladder", t, func() {
		entries := makeLadder(5)
		a, b, c, d, e := entries[0].CompetitorID, entries[1].CompetitorID,
			entries[2].CompetitorID, entries[3].CompetitorID, entries[4].CompetitorID

		Convey("When rank five upsets rank two", func() {
			shifted, err := ladder.ShiftOnResult(entries, e, b, true)
			So(err, ShouldBeNil)

			Convey("Then the winner takes the loser's old position", func() {
				byID := map[string]int{}
				for _, entry := range shifted {
					byID[entry.CompetitorID] = entry.Position
				}
				So(byID[a], ShouldEqual, 1)
				So(byID[e], ShouldEqual, 2)
				So(byID[b], ShouldEqual, 3)
				So(byID[c], ShouldEqual, 4)
				So(byID[d], ShouldEqual, 5)
			})

			Convey("And the result is still a valid ladder", func() {
				So(ladder.Validate(shifted), ShouldBeTrue)
			})

			Convey("And the input slice is untouched", func() {
				for i, entry := range entries {
					So(entry.Position, ShouldEqual, i+1)
				}
			})
		})

		Convey("When the defender wins, nothing moves", func() {
			shifted, err := ladder.ShiftOnResult(entries, b, e, false)
			So(err, ShouldBeNil)
			So(shifted, ShouldResemble, entries)
		})

		Convey("When the winner already outranks the loser, nothing moves", func() {
			shifted, err := ladder.ShiftOnResult(entries, b, e, true)
			So(err, ShouldBeNil)
			So(shifted, ShouldResemble, entries)
		})

		Convey("When adjacent ranks swap", func() {
			shifted, err := ladder.ShiftOnResult(entries, d, c, true)
			So(err, ShouldBeNil)
			byID := map[string]int{}
			for _, entry := range shifted {
				byID[entry.CompetitorID] = entry.Position
			}
			So(byID[d], ShouldEqual, 3)
			So(byID[c], ShouldEqual, 4)
			So(ladder.Validate(shifted), ShouldBeTrue)
		})

		Convey("When the winner id is unknown", func() {
			_, err := ladder.ShiftOnResult(entries, "stranger", b, true)
			So(err, ShouldEqual, ladder.ErrCompetitorNotFound)
		})

		Convey("When the loser id is unknown", func() {
			_, err := ladder.ShiftOnResult(entries, e, "stranger", true)
			So(err, ShouldEqual, ladder.ErrCompetitorNotFound)
		})

		Convey("When the input ladder has a position gap", func() {
			broken := append([]ladder.Entry(nil), entries...)
			broken[2].Position = 9
			_, err := ladder.ShiftOnResult(broken, e, b, true)
			So(err, ShouldEqual, ladder.ErrInvalidLadder)
		})
	})
}

func TestShiftOnResultProperties(t *testing.T) {
	Convey("Given randomized upsets on valid ladders", t, func() {
		rng := rand.New(rand.NewSource(7))

		Convey("The ladder invariant is always preserved", func() {
			for trial := 0; trial < 200; trial++ {
				n := 2 + rng.Intn(40)
				entries := makeLadder(n)
				winner := entries[rng.Intn(n)]
				loser := entries[rng.Intn(n)]

				shifted, err := ladder.ShiftOnResult(entries, winner.CompetitorID, loser.CompetitorID, true)
				So(err, ShouldBeNil)
				So(ladder.Validate(shifted), ShouldBeTrue)
			}
		})

		Convey("Only the window between the two ranks ever changes", func() {
			for trial := 0; trial < 200; trial++ {
				n := 2 + rng.Intn(40)
				entries := makeLadder(n)
				wi := rng.Intn(n)
				li := rng.Intn(n)
				winner := entries[wi]
				loser := entries[li]

				shifted, err := ladder.ShiftOnResult(entries, winner.CompetitorID, loser.CompetitorID, true)
				So(err, ShouldBeNil)

				before := map[string]ladder.Entry{}
				for _, entry := range entries {
					before[entry.CompetitorID] = entry
				}
				for _, entry := range shifted {
					old := before[entry.CompetitorID]
					inWindow := old.Position >= loser.Position && old.Position <= winner.Position
					if winner.Position <= loser.Position || !inWindow {
						So(entry, ShouldResemble, old)
					}
					So(entry.Score, ShouldEqual, old.Score)
				}
			}
		})
	})
}
