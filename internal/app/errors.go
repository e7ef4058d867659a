package service

import (
	"errors"
)

// Sentinel kinds for challenge and match intake errors. The HTTP layer
// maps these onto response codes.
var (
	ErrSelfChallenge        = errors.New("competitor cannot challenge themselves")
	ErrUnranked             = errors.New("competitor is not on the ladder")
	ErrRankDistanceExceeded = errors.New("rank distance exceeds the challenge window")
	ErrRaceTooShort         = errors.New("race target is below the minimum")
	ErrNotStarted           = errors.New("service not started")
)
