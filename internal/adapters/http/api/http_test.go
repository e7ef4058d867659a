package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/rackline/ladder/internal/adapters/http/api"
	service "github.com/rackline/ladder/internal/app"
	"github.com/rackline/ladder/internal/domain/challenge"
	"github.com/rackline/ladder/internal/domain/ladder"
	"github.com/rackline/ladder/internal/domain/match"
	"github.com/rackline/ladder/internal/domain/types"
	"github.com/rackline/ladder/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// newTestMux wires the API over a real service with a seeded ladder.
func newTestMux(t *testing.T) (*http.ServeMux, *service.Service) {
	t.Helper()
	svc := service.New(service.WithMinRace(3), service.WithMaxRankDiff(2))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("failed to start service: %v", err)
	}
	t.Cleanup(svc.Stop)

	err := svc.SeedLadder(context.Background(), []ladder.Entry{
		{CompetitorID: "alice", Position: 1, Score: 50},
		{CompetitorID: "bob", Position: 2, Score: 40},
		{CompetitorID: "carol", Position: 3, Score: 30},
		{CompetitorID: "dave", Position: 4, Score: 20},
	})
	if err != nil {
		t.Fatalf("failed to seed ladder: %v", err)
	}

	server := api.NewServer(svc, svc, 100)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux, svc
}

func doJSON(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeChallenge(t *testing.T, w *httptest.ResponseRecorder) challenge.Challenge {
	t.Helper()
	var ch challenge.Challenge
	if err := json.Unmarshal(w.Body.Bytes(), &ch); err != nil {
		t.Fatalf("failed to decode challenge: %v (body %s)", err, w.Body.String())
	}
	return ch
}

// lockViaAPI drives a challenge from creation to locked and returns the
// scheduled match id.
func lockViaAPI(t *testing.T, mux *http.ServeMux) (challengeID, matchID string) {
	t.Helper()
	w := doJSON(mux, http.MethodPost, "/challenges",
		`{"challenger_id":"carol","challenged_id":"bob","discipline":"nine-ball","race_to":5}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create challenge: got %d (%s)", w.Code, w.Body.String())
	}
	ch := decodeChallenge(t, w)

	when := time.Date(2026, 4, 10, 19, 0, 0, 0, time.UTC).Format(time.RFC3339)
	w = doJSON(mux, http.MethodPost, "/challenges/"+ch.ID+"/respond",
		fmt.Sprintf(`{"actor_id":"bob","action":"propose","venue":"Rack Room","scheduled_time":%q}`, when))
	if w.Code != http.StatusOK {
		t.Fatalf("propose: got %d (%s)", w.Code, w.Body.String())
	}
	w = doJSON(mux, http.MethodPost, "/challenges/"+ch.ID+"/respond",
		`{"actor_id":"carol","action":"confirm"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm: got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(mux, http.MethodGet, "/matches?competitor=carol", "")
	var matches []match.Match
	if err := json.Unmarshal(w.Body.Bytes(), &matches); err != nil || len(matches) == 0 {
		t.Fatalf("expected a match, got %s (err %v)", w.Body.String(), err)
	}
	return ch.ID, matches[0].ID
}

func TestChallengeRoutes(t *testing.T) {
	Convey("Given the API over a seeded service", t, func() {
		mux, _ := newTestMux(t)

		Convey("POST /challenges creates a pending challenge", func() {
			w := doJSON(mux, http.MethodPost, "/challenges",
				`{"challenger_id":"carol","challenged_id":"bob","discipline":"nine-ball","race_to":5}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			ch := decodeChallenge(t, w)
			So(ch.Status, ShouldEqual, challenge.StatusPending)

			Convey("GET /challenges/{id} returns it", func() {
				w := doJSON(mux, http.MethodGet, "/challenges/"+ch.ID, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decodeChallenge(t, w).ID, ShouldEqual, ch.ID)
			})

			Convey("GET /challenges?competitor= lists it for both parties", func() {
				for _, who := range []string{"carol", "bob"} {
					w := doJSON(mux, http.MethodGet, "/challenges?competitor="+who, "")
					So(w.Code, ShouldEqual, http.StatusOK)
					var list []challenge.Challenge
					So(json.Unmarshal(w.Body.Bytes(), &list), ShouldBeNil)
					So(len(list), ShouldEqual, 1)
				}
			})
		})

		Convey("Malformed bodies are a 400", func() {
			w := doJSON(mux, http.MethodPost, "/challenges", `{not json`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)

			w = doJSON(mux, http.MethodPost, "/challenges", `{"challenger_id":"carol"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Failed eligibility is a 422", func() {
			w := doJSON(mux, http.MethodPost, "/challenges",
				`{"challenger_id":"dave","challenged_id":"alice","discipline":"nine-ball","race_to":5}`)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)

			w = doJSON(mux, http.MethodPost, "/challenges",
				`{"challenger_id":"bob","challenged_id":"bob","discipline":"nine-ball","race_to":5}`)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("An unknown challenge id is a 404", func() {
			w := doJSON(mux, http.MethodGet, "/challenges/nope", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("An invalid transition is a 409", func() {
			w := doJSON(mux, http.MethodPost, "/challenges",
				`{"challenger_id":"carol","challenged_id":"bob","discipline":"nine-ball","race_to":5}`)
			ch := decodeChallenge(t, w)

			// Confirm before any proposal exists.
			w = doJSON(mux, http.MethodPost, "/challenges/"+ch.ID+"/respond",
				`{"actor_id":"carol","action":"confirm"}`)
			So(w.Code, ShouldEqual, http.StatusConflict)
		})

		Convey("An unknown action is a 400", func() {
			w := doJSON(mux, http.MethodPost, "/challenges",
				`{"challenger_id":"carol","challenged_id":"bob","discipline":"nine-ball","race_to":5}`)
			ch := decodeChallenge(t, w)

			w = doJSON(mux, http.MethodPost, "/challenges/"+ch.ID+"/respond",
				`{"actor_id":"bob","action":"forfeit"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Expiry cannot be triggered through the public endpoint", func() {
			w := doJSON(mux, http.MethodPost, "/challenges",
				`{"challenger_id":"carol","challenged_id":"bob","discipline":"nine-ball","race_to":5}`)
			ch := decodeChallenge(t, w)

			w = doJSON(mux, http.MethodPost, "/challenges/"+ch.ID+"/respond",
				`{"actor_id":"bob","action":"expire"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)

			// The challenge is untouched.
			w = doJSON(mux, http.MethodGet, "/challenges/"+ch.ID, "")
			So(decodeChallenge(t, w).Status, ShouldEqual, challenge.StatusPending)
		})
	})
}

func TestMatchRoutes(t *testing.T) {
	Convey("Given a locked match reached through the API", t, func() {
		mux, _ := newTestMux(t)
		_, matchID := lockViaAPI(t, mux)

		Convey("GET /matches/{id} returns the scheduled match", func() {
			w := doJSON(mux, http.MethodGet, "/matches/"+matchID, "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var m match.Match
			So(json.Unmarshal(w.Body.Bytes(), &m), ShouldBeNil)
			So(m.Status, ShouldEqual, match.StatusScheduled)
		})

		Convey("Dual agreeing submissions complete the match and shift ranks", func() {
			w := doJSON(mux, http.MethodPost, "/matches/"+matchID+"/score",
				`{"actor_id":"carol","my_games":5,"opponent_games":3}`)
			So(w.Code, ShouldEqual, http.StatusOK)

			w = doJSON(mux, http.MethodPost, "/matches/"+matchID+"/score",
				`{"actor_id":"bob","my_games":3,"opponent_games":5}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			var m match.Match
			So(json.Unmarshal(w.Body.Bytes(), &m), ShouldBeNil)
			So(m.Status, ShouldEqual, match.StatusCompleted)
			So(m.WinnerID, ShouldEqual, "carol")

			w = doJSON(mux, http.MethodGet, "/rank/carol", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var entry types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &entry), ShouldBeNil)
			So(entry.Rank, ShouldEqual, 2)

			Convey("A resubmission after completion replays the settled match", func() {
				w := doJSON(mux, http.MethodPost, "/matches/"+matchID+"/score",
					`{"actor_id":"carol","my_games":5,"opponent_games":3}`)
				So(w.Code, ShouldEqual, http.StatusOK)
				var replayed match.Match
				So(json.Unmarshal(w.Body.Bytes(), &replayed), ShouldBeNil)
				So(replayed.Status, ShouldEqual, match.StatusCompleted)

				// The ladder must not move a second time.
				w = doJSON(mux, http.MethodGet, "/rank/carol", "")
				var entry types.Entry
				So(json.Unmarshal(w.Body.Bytes(), &entry), ShouldBeNil)
				So(entry.Rank, ShouldEqual, 2)
			})
		})

		Convey("A non-participant submission is a 422", func() {
			w := doJSON(mux, http.MethodPost, "/matches/"+matchID+"/score",
				`{"actor_id":"mallory","my_games":5,"opponent_games":0}`)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("Negative game counts are a 400", func() {
			w := doJSON(mux, http.MethodPost, "/matches/"+matchID+"/score",
				`{"actor_id":"carol","my_games":-1,"opponent_games":3}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("An unknown match id is a 404", func() {
			w := doJSON(mux, http.MethodGet, "/matches/nope", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestLadderRoutes(t *testing.T) {
	Convey("Given the API over a seeded service", t, func() {
		mux, _ := newTestMux(t)

		Convey("GET /ladder returns the whole ladder without a limit", func() {
			w := doJSON(mux, http.MethodGet, "/ladder", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var entries []types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
			So(len(entries), ShouldEqual, 4)
			So(entries[0].Rank, ShouldEqual, 1)
		})

		Convey("GET /ladder?limit=2 truncates", func() {
			w := doJSON(mux, http.MethodGet, "/ladder?limit=2", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var entries []types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
			So(len(entries), ShouldEqual, 2)
		})

		Convey("A limit past the cap is rejected", func() {
			w := doJSON(mux, http.MethodGet, "/ladder?limit=101", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A malformed limit is rejected", func() {
			w := doJSON(mux, http.MethodGet, "/ladder?limit=abc", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("GET /rank/{id} resolves a competitor", func() {
			w := doJSON(mux, http.MethodGet, "/rank/bob", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var entry types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &entry), ShouldBeNil)
			So(entry.Rank, ShouldEqual, 2)
		})

		Convey("GET /rank/ of an unranked competitor is a 404", func() {
			w := doJSON(mux, http.MethodGet, "/rank/mallory", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("POST /competitors appends at the bottom", func() {
			w := doJSON(mux, http.MethodPost, "/competitors", `{"competitor_id":"erin"}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			var entry types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &entry), ShouldBeNil)
			So(entry.Rank, ShouldEqual, 5)

			Convey("Registering twice is a 409", func() {
				w := doJSON(mux, http.MethodPost, "/competitors", `{"competitor_id":"erin"}`)
				So(w.Code, ShouldEqual, http.StatusConflict)
			})
		})
	})
}

func TestOperationalRoutes(t *testing.T) {
	Convey("Given the API over a seeded service", t, func() {
		mux, _ := newTestMux(t)

		Convey("GET /healthz serves the metrics exposition", func() {
			w := doJSON(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("GET /stats reports service state", func() {
			w := doJSON(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]interface{}
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
		})
	})
}
