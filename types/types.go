// Package types defines the shared data model for purku teardown runs.
package types

import (
	"fmt"
	"time"
)

// Scope is one independent (account, region) execution context.
// No state is shared across scopes except the final run report.
type Scope struct {
	AccountID string `json:"account_id" yaml:"account_id"`
	Region    string `json:"region" yaml:"region"`
}

// String returns the canonical scope key, e.g. "123456789012/us-east-1".
func (s Scope) String() string {
	return s.AccountID + "/" + s.Region
}

// Resource is one discovered resource instance inside a scope.
type Resource struct {
	Type      string            `json:"type"`
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Tier      int               `json:"tier"`
	Tags      map[string]string `json:"tags,omitempty"`
	Protected bool              `json:"protected"`
}

// OutcomeStatus is the terminal classification of one resource in a run.
type OutcomeStatus string

const (
	StatusPending    OutcomeStatus = "pending"
	StatusAttempting OutcomeStatus = "attempting"
	StatusDeleted    OutcomeStatus = "deleted"
	StatusFailed     OutcomeStatus = "failed"
	StatusSkipped    OutcomeStatus = "skipped"
	StatusProtected  OutcomeStatus = "protected"
)

// Terminal reports whether the status is a terminal state.
func (s OutcomeStatus) Terminal() bool {
	switch s {
	case StatusDeleted, StatusFailed, StatusSkipped, StatusProtected:
		return true
	}
	return false
}

// Outcome records the result of one resource's teardown within a run.
// Retries mutate the same record; a resource never produces duplicates.
type Outcome struct {
	ResourceID string        `json:"resource_id"`
	Type       string        `json:"type"`
	Name       string        `json:"name,omitempty"`
	Scope      Scope         `json:"scope"`
	Tier       int           `json:"tier"`
	Status     OutcomeStatus `json:"status"`
	Error      string        `json:"error,omitempty"`
	Attempts   int           `json:"attempts"`
	DurationMs int64         `json:"duration_ms"`
}

// Key uniquely identifies the outcome within a run.
func (o Outcome) Key() string {
	return fmt.Sprintf("%s/%s/%s", o.Scope, o.Type, o.ResourceID)
}

// Totals aggregates outcome counts for a run or a scope.
type Totals struct {
	Deleted   int `json:"deleted"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Protected int `json:"protected"`
}

// Add folds a terminal status into the totals.
func (t *Totals) Add(status OutcomeStatus) {
	switch status {
	case StatusDeleted:
		t.Deleted++
	case StatusFailed:
		t.Failed++
	case StatusSkipped:
		t.Skipped++
	case StatusProtected:
		t.Protected++
	}
}

// Sum returns the total number of recorded outcomes.
func (t Totals) Sum() int {
	return t.Deleted + t.Failed + t.Skipped + t.Protected
}

// Credentials identify one account to the provider.
// SecretKey may be empty, in which case the provider falls back to its
// default credential chain for that account.
type Credentials struct {
	AccountID string
	AccessKey string
	SecretKey string
}

// RunMetadata describes one end-to-end teardown run.
type RunMetadata struct {
	RunID           string    `json:"run_id"`
	Domain          string    `json:"domain"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	ScopesRequested int       `json:"scopes_requested"`
}
