package models

import (
	"time"

	"github.com/google/uuid"
)

// Run summarizes one catalog build.
type Run struct {
	ID         uuid.UUID         `json:"run_id"`
	Source     string            `json:"source"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Products   int               `json:"products"`
	Categories []CategoryOutcome `json:"categories"`
}

const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

type CategoryOutcome struct {
	Label     string        `json:"label"`
	Status    string        `json:"status"`
	Found     int           `json:"found"`
	Extracted int           `json:"extracted"`
	Unusable  int           `json:"unusable"`
	Scrolls   int           `json:"scrolls"`
	Duration  time.Duration `json:"duration_ns"`
	Error     string        `json:"error,omitempty"`
}

func NewRun(source string, startedAt time.Time) *Run {
	return &Run{
		ID:        uuid.New(),
		Source:    source,
		StartedAt: startedAt,
	}
}

// Failed counts categories that produced nothing.
func (r *Run) Failed() int {
	n := 0
	for _, c := range r.Categories {
		if c.Status == OutcomeFailed {
			n++
		}
	}
	return n
}
