// Package dashboard orchestrates the impact dashboard lifecycle: it owns
// user sessions, drives the load state machine, and renders widget sets
// from loaded publication rows.
package dashboard

import (
	"time"

	"github.com/aurin/impact-dashboard/internal/analytics"
	"github.com/aurin/impact-dashboard/internal/domain"
)

// State is the lifecycle phase of a dashboard session.
type State string

const (
	// StateAwaitingCredential means no API key has been submitted yet.
	StateAwaitingCredential State = "awaiting_credential"
	// StateLoading means a fetch-normalize pass is in progress.
	StateLoading State = "loading"
	// StateReady means rows are loaded and widgets can be rendered.
	StateReady State = "ready"
	// StateFailed means the last load ended in an error.
	StateFailed State = "failed"
)

// Session tracks one user's dashboard. All fields are owned by the Store;
// callers receive copies via Snapshot.
type Session struct {
	ID        string
	State     State
	APIKey    string
	Rows      []domain.PublicationRow
	Report    analytics.Report
	LoadedAt  time.Time
	CreatedAt time.Time

	// ErrorKind and ErrorMessage describe the failure when State is
	// StateFailed.
	ErrorKind    string
	ErrorMessage string
}

// Snapshot is a read-only copy of a session's externally visible state.
type Snapshot struct {
	ID           string
	State        State
	RowCount     int
	Skipped      int
	LoadedAt     time.Time
	CreatedAt    time.Time
	ErrorKind    string
	ErrorMessage string
}

// snapshot copies the externally visible fields. The caller must hold the
// store lock.
func (s *Session) snapshot() Snapshot {
	return Snapshot{
		ID:           s.ID,
		State:        s.State,
		RowCount:     len(s.Rows),
		Skipped:      s.Report.Skipped,
		LoadedAt:     s.LoadedAt,
		CreatedAt:    s.CreatedAt,
		ErrorKind:    s.ErrorKind,
		ErrorMessage: s.ErrorMessage,
	}
}

// canStartLoad reports whether a load may begin from the current state.
// Loads start from the initial state, after a failure (retry), and from
// ready (refresh); a load already in flight blocks a second one.
func (s *Session) canStartLoad() bool {
	return s.State != StateLoading
}
