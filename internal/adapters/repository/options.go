// Package repository defines the ranking store interface and errors.
package repository

import (
	"fmt"
	"time"
)

// SQLOption applies a configuration option to the SQLStore at open time.
type SQLOption func(*SQLStore) error

// WithBusyTimeout sets how long sqlite waits on a locked database before
// failing a statement.
func WithBusyTimeout(timeout time.Duration) SQLOption {
	return func(s *SQLStore) error {
		if timeout <= 0 {
			return nil
		}
		_, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", timeout.Milliseconds()))
		return err
	}
}

// WithWALMode switches the journal to write-ahead logging.
func WithWALMode() SQLOption {
	return func(s *SQLStore) error {
		_, err := s.db.Exec("PRAGMA journal_mode = WAL")
		return err
	}
}
