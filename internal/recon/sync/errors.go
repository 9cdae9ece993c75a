package sync

import (
	"errors"
	"fmt"
)

// Stage names the step of a record's sync at which a failure occurred. It is
// persisted on the audit entry so root-cause detail survives outside the
// run's summary counts.
type Stage string

const (
	StageLookup        Stage = "lookup"
	StageLegResolution Stage = "leg-resolution"
	StageOverride      Stage = "override"
	StagePersist       Stage = "persist"
)

var ErrNoCandidate = errors.New("no platform call record located")

// StageError tags an underlying failure with the stage it happened in.
// Every failure inside the per-record boundary is wrapped in one of these
// before it reaches the audit log.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
