package dashboard

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aurin/impact-dashboard/internal/analytics"
	"github.com/aurin/impact-dashboard/internal/dimensions"
	"github.com/aurin/impact-dashboard/internal/domain"
	"github.com/aurin/impact-dashboard/internal/observability"
	"github.com/aurin/impact-dashboard/internal/widgets"
)

// Searcher fetches raw publication records from the upstream source.
// *dimensions.Client satisfies it.
type Searcher interface {
	// Name identifies the source in logs and metrics.
	Name() string
	// Search authenticates with the API key and returns all matching
	// records.
	Search(ctx context.Context, apiKey string) ([]dimensions.Publication, error)
}

// View is the rendered state of one session: its snapshot plus the widget
// elements when the session is ready.
type View struct {
	Snapshot Snapshot
	Elements []widgets.Element
}

// Service drives session lifecycles: credential submission, synchronous
// loads, refreshes, and widget rendering.
type Service struct {
	store    *Store
	searcher Searcher
	builder  *widgets.Builder
	metrics  *observability.Metrics
	logger   zerolog.Logger
	now      func() time.Time

	// defaultAPIKey, when set, is used for sessions that never submitted
	// a credential of their own.
	defaultAPIKey string
}

// NewService wires a Service from its dependencies.
func NewService(searcher Searcher, builder *widgets.Builder, metrics *observability.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		store:    NewStore(),
		searcher: searcher,
		builder:  builder,
		metrics:  metrics,
		logger:   logger.With().Str("component", "dashboard").Logger(),
		now:      time.Now,
	}
}

// SetDefaultAPIKey configures an operator-provisioned credential used when
// a session has none of its own. Call before serving requests.
func (s *Service) SetDefaultAPIKey(key string) {
	s.defaultAPIKey = strings.TrimSpace(key)
}

// CreateSession opens a new session in the awaiting-credential state.
func (s *Service) CreateSession() Snapshot {
	id := s.store.Create()
	s.metrics.RecordSessionOpened()
	s.logger.Info().Str("session_id", id).Msg("session created")

	snap, _ := s.store.Get(id)
	return snap
}

// CloseSession removes the session and its cached rows.
func (s *Service) CloseSession(id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.metrics.RecordSessionClosed()
	s.logger.Info().Str("session_id", id).Msg("session closed")
	return nil
}

// GetSession returns the session snapshot.
func (s *Service) GetSession(id string) (Snapshot, error) {
	return s.store.Get(id)
}

// Load submits an API key and runs a synchronous fetch-normalize pass. The
// session moves to the loading state for the duration of the call, then to
// ready on success or failed on error. A failed or ready session may load
// again; a session already loading may not.
func (s *Service) Load(ctx context.Context, sessionID, apiKey string) (Snapshot, error) {
	apiKey = strings.TrimSpace(apiKey)
	logger := observability.WithSessionContext(s.logger, observability.RequestIDFromContext(ctx), sessionID)

	var key string
	if _, err := s.store.update(sessionID, func(session *Session) error {
		if apiKey == "" && session.APIKey == "" {
			if s.defaultAPIKey == "" {
				return domain.NewAuthenticationError(s.searcher.Name(), "API key is required")
			}
			session.APIKey = s.defaultAPIKey
		}
		if !session.canStartLoad() {
			return domain.ErrInvalidState
		}
		if apiKey != "" {
			session.APIKey = apiKey
		}
		key = session.APIKey
		session.State = StateLoading
		session.ErrorKind = ""
		session.ErrorMessage = ""
		return nil
	}); err != nil {
		return Snapshot{}, err
	}

	s.metrics.RecordLoadStarted()
	logger.Info().Str("source", s.searcher.Name()).Msg("load started")
	start := s.now()

	records, err := s.searcher.Search(ctx, key)
	elapsed := s.now().Sub(start)

	if err != nil {
		kind := domain.ErrorKind(err)
		s.metrics.RecordLoadFailed(kind, elapsed.Seconds())
		logger.Error().Err(err).Str("error_kind", kind).Dur("elapsed", elapsed).Msg("load failed")

		return s.store.update(sessionID, func(session *Session) error {
			session.State = StateFailed
			session.Rows = nil
			session.ErrorKind = kind
			session.ErrorMessage = err.Error()
			return nil
		})
	}

	rows, report := analytics.Normalize(records)
	s.metrics.RecordRecordsNormalized(report.Normalized)
	for _, skipErr := range report.SkipErrors {
		s.metrics.RecordRecordSkipped("missing_title")
		logger.Debug().Err(skipErr).Msg("record skipped during normalization")
	}
	s.metrics.RecordLoadCompleted(elapsed.Seconds(), len(rows))
	logger.Info().
		Int("records", report.Input).
		Int("rows", report.Normalized).
		Int("skipped", report.Skipped).
		Dur("elapsed", elapsed).
		Msg("load completed")

	return s.store.update(sessionID, func(session *Session) error {
		session.State = StateReady
		session.Rows = rows
		session.Report = report
		session.LoadedAt = s.now().UTC()
		return nil
	})
}

// Refresh re-runs the load using the session's stored credential.
func (s *Service) Refresh(ctx context.Context, sessionID string) (Snapshot, error) {
	return s.Load(ctx, sessionID, "")
}

// Render returns the session view. A ready session carries the full widget
// set; any other state carries an empty element list alongside the
// snapshot, so a failed session still renders its error.
func (s *Service) Render(sessionID string) (View, error) {
	var view View
	err := s.store.withRows(sessionID, func(session *Session) {
		view.Snapshot = session.snapshot()
		view.Elements = []widgets.Element{}
		if session.State != StateReady {
			return
		}
		view.Elements = s.builder.BuildWithObserver(session.Rows, s.now(), s.metrics.RecordWidgetRender)
	})
	if err != nil {
		return View{}, err
	}
	return view, nil
}

// ActiveSessions returns the number of open sessions.
func (s *Service) ActiveSessions() int {
	return s.store.Len()
}
