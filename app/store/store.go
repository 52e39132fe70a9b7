// Package store keeps the submission journal. Every strict-pass submission is recorded
// with its tool, direction and outcome; text and secrets are never stored.
package store

import (
	"errors"
	"time"
)

// Errors
var (
	ErrSaveRejected  = errors.New("can't save record")
	ErrStatsRejected = errors.New("can't load stats")
)

// Outcome of a submission
type Outcome string

// enum of all outcomes
const (
	OutcomeBlocked Outcome = "blocked" // strict validation failed, remote not called
	OutcomeSent    Outcome = "sent"    // remote call succeeded
	OutcomeFailed  Outcome = "failed"  // remote call failed
)

// Record is a single submission
type Record struct {
	ID        string    `json:"id"`
	TS        time.Time `json:"ts"`
	Tool      string    `json:"tool"`
	Direction string    `json:"direction,omitempty"`
	Outcome   Outcome   `json:"outcome"`
	Code      string    `json:"code,omitempty"` // diagnostic code for blocked submissions
}

// ToolStats counts submissions of one tool by outcome
type ToolStats struct {
	Tool    string `json:"tool"`
	Blocked int    `json:"blocked"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
}

// Stats aggregates the journal
type Stats struct {
	Total int            `json:"total"`
	Tools []ToolStats    `json:"tools"`
	Codes map[string]int `json:"codes"` // blocked submissions per diagnostic code
	Since time.Time      `json:"since,omitempty"`
}
