package httpserver

import (
	"time"

	"github.com/aurin/impact-dashboard/internal/dashboard"
	"github.com/aurin/impact-dashboard/internal/widgets"
)

// sessionResponse describes a session's externally visible state.
type sessionResponse struct {
	SessionID    string     `json:"session_id"`
	State        string     `json:"state"`
	RowCount     int        `json:"row_count"`
	Skipped      int        `json:"skipped_records,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LoadedAt     *time.Time `json:"loaded_at,omitempty"`
	ErrorKind    string     `json:"error_kind,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// dashboardResponse is the session state plus the rendered widget set.
// Elements is empty unless the session is ready.
type dashboardResponse struct {
	sessionResponse
	Elements []widgets.Element `json:"elements"`
}

func snapshotToResponse(snap dashboard.Snapshot) sessionResponse {
	resp := sessionResponse{
		SessionID:    snap.ID,
		State:        string(snap.State),
		RowCount:     snap.RowCount,
		Skipped:      snap.Skipped,
		CreatedAt:    snap.CreatedAt,
		ErrorKind:    snap.ErrorKind,
		ErrorMessage: snap.ErrorMessage,
	}
	if !snap.LoadedAt.IsZero() {
		loadedAt := snap.LoadedAt
		resp.LoadedAt = &loadedAt
	}
	return resp
}

func viewToResponse(view dashboard.View) dashboardResponse {
	return dashboardResponse{
		sessionResponse: snapshotToResponse(view.Snapshot),
		Elements:        view.Elements,
	}
}
