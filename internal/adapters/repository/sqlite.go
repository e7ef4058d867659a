package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rackline/ladder/internal/domain/challenge"
	"github.com/rackline/ladder/internal/domain/ladder"
	"github.com/rackline/ladder/internal/domain/match"
	"github.com/rackline/ladder/internal/domain/score"
	"github.com/rackline/ladder/pkg/metrics"
)

// SQLStore implements Store on sqlite. Optimistic version checks on
// challenges and matches plus a processed-shifts table keyed by match id
// give the transactional guarantees the engine relies on.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore opens (or creates) the database at dbPath and runs
// migrations.
func NewSQLStore(dbPath string, opts ...SQLOption) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// SQLite works best with a single connection; this also serializes
	// mutations at the storage layer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLStore{db: db}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS ladder_entries (
			competitor_id TEXT PRIMARY KEY,
			rank_position INTEGER NOT NULL UNIQUE,
			score INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS challenges (
			id TEXT PRIMARY KEY,
			challenger_id TEXT NOT NULL,
			challenged_id TEXT NOT NULL,
			discipline TEXT NOT NULL,
			race_to INTEGER NOT NULL,
			status TEXT NOT NULL,
			venue TEXT NOT NULL DEFAULT '',
			scheduled_time DATETIME,
			proposer_id TEXT NOT NULL DEFAULT '',
			locked_at DATETIME,
			created_at DATETIME NOT NULL,
			version INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			challenge_id TEXT NOT NULL UNIQUE,
			challenger_id TEXT NOT NULL,
			challenged_id TEXT NOT NULL,
			race_to INTEGER NOT NULL,
			venue TEXT NOT NULL DEFAULT '',
			scheduled_time DATETIME NOT NULL,
			status TEXT NOT NULL,
			cgr_my_games INTEGER,
			cgr_opp_games INTEGER,
			cgr_livestream_url TEXT,
			cgr_submitted_at DATETIME,
			cgd_my_games INTEGER,
			cgd_opp_games INTEGER,
			cgd_livestream_url TEXT,
			cgd_submitted_at DATETIME,
			winner_id TEXT NOT NULL DEFAULT '',
			dispute_reason TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL DEFAULT 1,
			FOREIGN KEY (challenge_id) REFERENCES challenges(id)
		)`,
		`CREATE TABLE IF NOT EXISTS processed_shifts (
			match_id TEXT PRIMARY KEY,
			applied_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_challenges_challenger ON challenges(challenger_id)`,
		`CREATE INDEX IF NOT EXISTS idx_challenges_challenged ON challenges(challenged_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_challenger ON matches(challenger_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_challenged ON matches(challenged_id)`,
	}
	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

// SeedLadder replaces the whole ladder.
func (s *SQLStore) SeedLadder(ctx context.Context, entries []ladder.Entry) error {
	if !ladder.Validate(entries) {
		return ErrInvalidLadder
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ladder_entries`); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ladder_entries (competitor_id, rank_position, score) VALUES (?, ?, ?)`,
			e.CompetitorID, e.Position, e.Score,
		); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	metrics.UpdateLadderSize(len(entries))
	return nil
}

// AddCompetitor appends a competitor at the bottom of the ladder.
func (s *SQLStore) AddCompetitor(ctx context.Context, competitorID string) (ladder.Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ladder.Entry{}, fmt.Errorf("begin add competitor: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM ladder_entries WHERE competitor_id = ?`, competitorID,
	).Scan(&exists); err != nil {
		return ladder.Entry{}, err
	}
	if exists > 0 {
		return ladder.Entry{}, ErrAlreadyRanked
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM ladder_entries`).Scan(&count); err != nil {
		return ladder.Entry{}, err
	}
	entry := ladder.Entry{CompetitorID: competitorID, Position: count + 1}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ladder_entries (competitor_id, rank_position, score) VALUES (?, ?, ?)`,
		entry.CompetitorID, entry.Position, entry.Score,
	); err != nil {
		return ladder.Entry{}, err
	}
	if err := tx.Commit(); err != nil {
		return ladder.Entry{}, err
	}
	metrics.UpdateLadderSize(count + 1)
	return entry, nil
}

// Ladder returns all entries in position order.
func (s *SQLStore) Ladder(ctx context.Context) ([]ladder.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	rows, err := s.db.QueryContext(ctx,
		`SELECT competitor_id, rank_position, score FROM ladder_entries ORDER BY rank_position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ladder.Entry
	for rows.Next() {
		var e ladder.Entry
		if err := rows.Scan(&e.CompetitorID, &e.Position, &e.Score); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Rank returns the entry for one competitor.
func (s *SQLStore) Rank(ctx context.Context, competitorID string) (ladder.Entry, error) {
	var e ladder.Entry
	err := s.db.QueryRowContext(ctx,
		`SELECT competitor_id, rank_position, score FROM ladder_entries WHERE competitor_id = ?`,
		competitorID,
	).Scan(&e.CompetitorID, &e.Position, &e.Score)
	if errors.Is(err, sql.ErrNoRows) {
		return ladder.Entry{}, ErrNotFound
	}
	if err != nil {
		return ladder.Entry{}, err
	}
	return e, nil
}

// ApplyShift recomputes the ladder for one match result at most once per
// match id. The dedup record, the ladder read, the shift and the rewrite
// all commit in one transaction, so a concurrent shift can never be
// clobbered by a stale snapshot.
func (s *SQLStore) ApplyShift(ctx context.Context, matchID, winnerID, loserID string) (bool, int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("begin shift: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed_shifts (match_id, applied_at) VALUES (?, ?)`,
		matchID, time.Now().UTC(),
	)
	if err != nil {
		return false, 0, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, 0, err
	}
	if inserted == 0 {
		// Replay of an already-processed match: leave the ladder alone.
		return false, 0, nil
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT competitor_id, rank_position, score FROM ladder_entries ORDER BY rank_position`)
	if err != nil {
		return false, 0, err
	}
	var current []ladder.Entry
	var wasPos int
	for rows.Next() {
		var e ladder.Entry
		if err := rows.Scan(&e.CompetitorID, &e.Position, &e.Score); err != nil {
			rows.Close()
			return false, 0, err
		}
		if e.CompetitorID == winnerID {
			wasPos = e.Position
		}
		current = append(current, e)
	}
	if err := rows.Close(); err != nil {
		return false, 0, err
	}
	if err := rows.Err(); err != nil {
		return false, 0, err
	}

	shifted, err := ladder.ShiftOnResult(current, winnerID, loserID, true)
	if err != nil {
		return false, 0, err
	}
	distance := shiftDistance(wasPos, shifted, winnerID)

	if _, err := tx.ExecContext(ctx, `DELETE FROM ladder_entries`); err != nil {
		return false, 0, err
	}
	for _, e := range shifted {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ladder_entries (competitor_id, rank_position, score) VALUES (?, ?, ?)`,
			e.CompetitorID, e.Position, e.Score,
		); err != nil {
			return false, 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return false, 0, err
	}
	return true, distance, nil
}

// CreateChallenge stores a new challenge.
func (s *SQLStore) CreateChallenge(ctx context.Context, ch challenge.Challenge) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO challenges
			(id, challenger_id, challenged_id, discipline, race_to, status,
			 venue, scheduled_time, proposer_id, locked_at, created_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		ch.ID, ch.ChallengerID, ch.ChallengedID, ch.Discipline, ch.RaceTo, string(ch.Status),
		ch.Venue, nullTime(ch.ScheduledTime), ch.ProposerID, nullTime(ch.LockedAt), ch.CreatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateID
	}
	return err
}

// GetChallenge returns a challenge by id.
func (s *SQLStore) GetChallenge(ctx context.Context, id string) (challenge.Challenge, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, challenger_id, challenged_id, discipline, race_to, status,
		       venue, scheduled_time, proposer_id, locked_at, created_at, version
		FROM challenges WHERE id = ?`, id)
	ch, err := scanChallenge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return challenge.Challenge{}, ErrNotFound
	}
	return ch, err
}

// UpdateChallenge writes ch under the optimistic version rule.
func (s *SQLStore) UpdateChallenge(ctx context.Context, ch challenge.Challenge) (challenge.Challenge, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	res, err := s.db.ExecContext(ctx, `
		UPDATE challenges
		SET status = ?, venue = ?, scheduled_time = ?, proposer_id = ?, locked_at = ?,
		    version = version + 1
		WHERE id = ? AND version = ?`,
		string(ch.Status), ch.Venue, nullTime(ch.ScheduledTime), ch.ProposerID, nullTime(ch.LockedAt),
		ch.ID, ch.Version,
	)
	if err != nil {
		return challenge.Challenge{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return challenge.Challenge{}, err
	}
	if affected == 0 {
		// Either the record is gone or somebody committed first.
		if _, getErr := s.GetChallenge(ctx, ch.ID); errors.Is(getErr, ErrNotFound) {
			return challenge.Challenge{}, ErrNotFound
		}
		return challenge.Challenge{}, ErrVersionConflict
	}
	ch.Version++
	return ch, nil
}

// ChallengesFor lists a competitor's challenges, newest first.
func (s *SQLStore) ChallengesFor(ctx context.Context, competitorID string) ([]challenge.Challenge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, challenger_id, challenged_id, discipline, race_to, status,
		       venue, scheduled_time, proposer_id, locked_at, created_at, version
		FROM challenges
		WHERE challenger_id = ? OR challenged_id = ?
		ORDER BY created_at DESC`, competitorID, competitorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []challenge.Challenge
	for rows.Next() {
		ch, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// CreateMatch stores a new match.
func (s *SQLStore) CreateMatch(ctx context.Context, m match.Match) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matches
			(id, challenge_id, challenger_id, challenged_id, race_to, venue,
			 scheduled_time, status, winner_id, dispute_reason, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		m.ID, m.ChallengeID, m.ChallengerID, m.ChallengedID, m.RaceTo, m.Venue,
		m.ScheduledTime, string(m.Status), m.WinnerID, m.DisputeReason,
	)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateID
	}
	return err
}

// GetMatch returns a match by id.
func (s *SQLStore) GetMatch(ctx context.Context, id string) (match.Match, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, challenge_id, challenger_id, challenged_id, race_to, venue,
		       scheduled_time, status,
		       cgr_my_games, cgr_opp_games, cgr_livestream_url, cgr_submitted_at,
		       cgd_my_games, cgd_opp_games, cgd_livestream_url, cgd_submitted_at,
		       winner_id, dispute_reason, version
		FROM matches WHERE id = ?`, id)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return match.Match{}, ErrNotFound
	}
	return m, err
}

// UpdateMatch writes m under the optimistic version rule.
func (s *SQLStore) UpdateMatch(ctx context.Context, m match.Match) (match.Match, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	cgr := submissionColumns(m.ChallengerSubmission)
	cgd := submissionColumns(m.ChallengedSubmission)
	res, err := s.db.ExecContext(ctx, `
		UPDATE matches
		SET status = ?,
		    cgr_my_games = ?, cgr_opp_games = ?, cgr_livestream_url = ?, cgr_submitted_at = ?,
		    cgd_my_games = ?, cgd_opp_games = ?, cgd_livestream_url = ?, cgd_submitted_at = ?,
		    winner_id = ?, dispute_reason = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		string(m.Status),
		cgr.myGames, cgr.oppGames, cgr.livestreamURL, cgr.submittedAt,
		cgd.myGames, cgd.oppGames, cgd.livestreamURL, cgd.submittedAt,
		m.WinnerID, m.DisputeReason,
		m.ID, m.Version,
	)
	if err != nil {
		return match.Match{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return match.Match{}, err
	}
	if affected == 0 {
		if _, getErr := s.GetMatch(ctx, m.ID); errors.Is(getErr, ErrNotFound) {
			return match.Match{}, ErrNotFound
		}
		return match.Match{}, ErrVersionConflict
	}
	m.Version++
	return m, nil
}

// MatchesFor lists a competitor's matches, newest first.
func (s *SQLStore) MatchesFor(ctx context.Context, competitorID string) ([]match.Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, challenge_id, challenger_id, challenged_id, race_to, venue,
		       scheduled_time, status,
		       cgr_my_games, cgr_opp_games, cgr_livestream_url, cgr_submitted_at,
		       cgd_my_games, cgd_opp_games, cgd_livestream_url, cgd_submitted_at,
		       winner_id, dispute_reason, version
		FROM matches
		WHERE challenger_id = ? OR challenged_id = ?
		ORDER BY scheduled_time DESC`, competitorID, competitorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []match.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Count returns the number of ranked competitors.
func (s *SQLStore) Count(ctx context.Context) int {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM ladder_entries`).Scan(&count); err != nil {
		return 0
	}
	return count
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanChallenge(row scanner) (challenge.Challenge, error) {
	var (
		ch            challenge.Challenge
		status        string
		scheduledTime sql.NullTime
		lockedAt      sql.NullTime
	)
	err := row.Scan(
		&ch.ID, &ch.ChallengerID, &ch.ChallengedID, &ch.Discipline, &ch.RaceTo, &status,
		&ch.Venue, &scheduledTime, &ch.ProposerID, &lockedAt, &ch.CreatedAt, &ch.Version,
	)
	if err != nil {
		return challenge.Challenge{}, err
	}
	ch.Status = challenge.Status(status)
	if scheduledTime.Valid {
		ch.ScheduledTime = scheduledTime.Time
	}
	if lockedAt.Valid {
		ch.LockedAt = lockedAt.Time
	}
	return ch, nil
}

func scanMatch(row scanner) (match.Match, error) {
	var (
		m      match.Match
		status string
		cgr    submissionRow
		cgd    submissionRow
	)
	err := row.Scan(
		&m.ID, &m.ChallengeID, &m.ChallengerID, &m.ChallengedID, &m.RaceTo, &m.Venue,
		&m.ScheduledTime, &status,
		&cgr.myGames, &cgr.oppGames, &cgr.livestreamURL, &cgr.submittedAt,
		&cgd.myGames, &cgd.oppGames, &cgd.livestreamURL, &cgd.submittedAt,
		&m.WinnerID, &m.DisputeReason, &m.Version,
	)
	if err != nil {
		return match.Match{}, err
	}
	m.Status = match.Status(status)
	m.ChallengerSubmission = cgr.toSubmission()
	m.ChallengedSubmission = cgd.toSubmission()
	return m, nil
}

// submissionRow holds one side's nullable submission columns.
type submissionRow struct {
	myGames       sql.NullInt64
	oppGames      sql.NullInt64
	livestreamURL sql.NullString
	submittedAt   sql.NullTime
}

func (r submissionRow) toSubmission() *match.Submission {
	if !r.myGames.Valid {
		return nil
	}
	return &match.Submission{
		Submission: score.Submission{
			MyGames:       int(r.myGames.Int64),
			OpponentGames: int(r.oppGames.Int64),
		},
		LivestreamURL: r.livestreamURL.String,
		SubmittedAt:   r.submittedAt.Time,
	}
}

func submissionColumns(sub *match.Submission) submissionRow {
	if sub == nil {
		return submissionRow{}
	}
	return submissionRow{
		myGames:       sql.NullInt64{Int64: int64(sub.MyGames), Valid: true},
		oppGames:      sql.NullInt64{Int64: int64(sub.OpponentGames), Valid: true},
		livestreamURL: sql.NullString{String: sub.LivestreamURL, Valid: true},
		submittedAt:   sql.NullTime{Time: sub.SubmittedAt, Valid: true},
	}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// isUniqueViolation is a best-effort check for sqlite unique constraint
// failures without depending on driver-specific error types.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "unique constraint")
}
