package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurin/impact-dashboard/internal/dimensions"
	"github.com/aurin/impact-dashboard/internal/domain"
	"github.com/aurin/impact-dashboard/internal/observability"
	"github.com/aurin/impact-dashboard/internal/widgets"
)

// fakeSearcher returns canned records or a canned error and remembers the
// keys it was called with.
type fakeSearcher struct {
	records []dimensions.Publication
	err     error
	keys    []string
}

func (f *fakeSearcher) Name() string { return "Dimensions" }

func (f *fakeSearcher) Search(_ context.Context, apiKey string) ([]dimensions.Publication, error) {
	f.keys = append(f.keys, apiKey)
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

var metricsSeq atomic.Int64

func newTestService(t *testing.T, searcher *fakeSearcher) *Service {
	t.Helper()
	metrics := observability.NewMetrics(fmt.Sprintf("dashboard_svc_test_%d", metricsSeq.Add(1)))
	builder := widgets.NewBuilder(widgets.Config{
		TopCitedCount:      5,
		RecentPapersCount:  5,
		RecentWindowMonths: 6,
		TrendGranularity:   "month",
		HistogramBins:      20,
	})
	return NewService(searcher, builder, metrics, zerolog.Nop())
}

func sampleRecords() []dimensions.Publication {
	return []dimensions.Publication{
		{ID: "pub.1", Title: "One", TimesCited: 10, Orgs: []dimensions.Org{{Name: "AURIN"}}},
		{ID: "pub.2", Title: "Two", TimesCited: 3},
		{ID: "pub.3", Title: "Three", TimesCited: 7, Orgs: []dimensions.Org{{Name: "AURIN"}}},
		{ID: "pub.4", TimesCited: 0},
		{ID: "pub.5", Title: "Five", TimesCited: 25},
	}
}

func TestCreateSession(t *testing.T) {
	service := newTestService(t, &fakeSearcher{})

	snap := service.CreateSession()

	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, StateAwaitingCredential, snap.State)
	assert.Zero(t, snap.RowCount)
	assert.Equal(t, 1, service.ActiveSessions())
}

func TestLoad_Success(t *testing.T) {
	service := newTestService(t, &fakeSearcher{records: sampleRecords()})
	snap := service.CreateSession()

	loaded, err := service.Load(context.Background(), snap.ID, "secret-key")

	require.NoError(t, err)
	assert.Equal(t, StateReady, loaded.State)
	assert.Equal(t, 4, loaded.RowCount)
	assert.Equal(t, 1, loaded.Skipped)
	assert.False(t, loaded.LoadedAt.IsZero())
	assert.Empty(t, loaded.ErrorKind)
}

func TestLoad_MissingKey(t *testing.T) {
	searcher := &fakeSearcher{records: sampleRecords()}
	service := newTestService(t, searcher)
	snap := service.CreateSession()

	_, err := service.Load(context.Background(), snap.ID, "  ")

	require.ErrorIs(t, err, domain.ErrAuthentication)
	assert.Empty(t, searcher.keys, "no upstream call without a credential")

	current, getErr := service.GetSession(snap.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StateAwaitingCredential, current.State)
}

func TestLoad_DefaultKey(t *testing.T) {
	searcher := &fakeSearcher{records: sampleRecords()}
	service := newTestService(t, searcher)
	service.SetDefaultAPIKey("operator-key")
	snap := service.CreateSession()

	loaded, err := service.Load(context.Background(), snap.ID, "")

	require.NoError(t, err)
	assert.Equal(t, StateReady, loaded.State)
	assert.Equal(t, []string{"operator-key"}, searcher.keys)
}

func TestLoad_AuthenticationFailure(t *testing.T) {
	searcher := &fakeSearcher{err: domain.NewAuthenticationError("Dimensions", "authentication failed with status 401")}
	service := newTestService(t, searcher)
	snap := service.CreateSession()

	failed, err := service.Load(context.Background(), snap.ID, "bad-key")

	require.NoError(t, err, "a failed load is a state transition, not a call error")
	assert.Equal(t, StateFailed, failed.State)
	assert.Equal(t, "authentication", failed.ErrorKind)
	assert.Contains(t, failed.ErrorMessage, "401")
	assert.Zero(t, failed.RowCount)
}

func TestLoad_TransportFailure(t *testing.T) {
	searcher := &fakeSearcher{err: domain.NewTransportError("Dimensions", 502, "bad gateway", nil)}
	service := newTestService(t, searcher)
	snap := service.CreateSession()

	failed, err := service.Load(context.Background(), snap.ID, "key")

	require.NoError(t, err)
	assert.Equal(t, StateFailed, failed.State)
	assert.Equal(t, "transport", failed.ErrorKind)
}

func TestLoad_RetryAfterFailure(t *testing.T) {
	searcher := &fakeSearcher{err: domain.NewAuthenticationError("Dimensions", "authentication failed with status 401")}
	service := newTestService(t, searcher)
	snap := service.CreateSession()

	failed, err := service.Load(context.Background(), snap.ID, "bad-key")
	require.NoError(t, err)
	require.Equal(t, StateFailed, failed.State)

	searcher.err = nil
	searcher.records = sampleRecords()

	recovered, err := service.Load(context.Background(), snap.ID, "good-key")

	require.NoError(t, err)
	assert.Equal(t, StateReady, recovered.State)
	assert.Empty(t, recovered.ErrorKind)
	assert.Equal(t, 4, recovered.RowCount)
}

func TestLoad_WhileLoading(t *testing.T) {
	service := newTestService(t, &fakeSearcher{})
	snap := service.CreateSession()

	_, err := service.store.update(snap.ID, func(session *Session) error {
		session.State = StateLoading
		session.APIKey = "key"
		return nil
	})
	require.NoError(t, err)

	_, err = service.Load(context.Background(), snap.ID, "key")

	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestLoad_UnknownSession(t *testing.T) {
	service := newTestService(t, &fakeSearcher{})

	_, err := service.Load(context.Background(), "missing", "key")

	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRefresh_ReusesStoredKey(t *testing.T) {
	searcher := &fakeSearcher{records: sampleRecords()}
	service := newTestService(t, searcher)
	snap := service.CreateSession()

	_, err := service.Load(context.Background(), snap.ID, "secret-key")
	require.NoError(t, err)

	refreshed, err := service.Refresh(context.Background(), snap.ID)

	require.NoError(t, err)
	assert.Equal(t, StateReady, refreshed.State)
	assert.Equal(t, []string{"secret-key", "secret-key"}, searcher.keys)
}

func TestRefresh_WithoutCredential(t *testing.T) {
	service := newTestService(t, &fakeSearcher{})
	snap := service.CreateSession()

	_, err := service.Refresh(context.Background(), snap.ID)

	assert.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestRender_Ready(t *testing.T) {
	service := newTestService(t, &fakeSearcher{records: sampleRecords()})
	snap := service.CreateSession()

	_, err := service.Load(context.Background(), snap.ID, "key")
	require.NoError(t, err)

	view, err := service.Render(snap.ID)

	require.NoError(t, err)
	assert.Equal(t, StateReady, view.Snapshot.State)
	require.Len(t, view.Elements, 8)

	tiles := view.Elements[0].Tiles
	require.NotEmpty(t, tiles)
	assert.Equal(t, 4, tiles[0].Value)

	topCited := view.Elements[1].Table
	require.NotNil(t, topCited)
	assert.Equal(t, "25", topCited.Rows[0][4])
	assert.Equal(t, "10", topCited.Rows[1][4])
}

func TestRender_Failed(t *testing.T) {
	searcher := &fakeSearcher{err: domain.NewAuthenticationError("Dimensions", "authentication failed with status 401")}
	service := newTestService(t, searcher)
	snap := service.CreateSession()

	_, err := service.Load(context.Background(), snap.ID, "bad-key")
	require.NoError(t, err)

	view, err := service.Render(snap.ID)

	require.NoError(t, err)
	assert.Equal(t, StateFailed, view.Snapshot.State)
	assert.Equal(t, "authentication", view.Snapshot.ErrorKind)
	assert.Empty(t, view.Elements, "failed sessions render no widgets")
}

func TestRender_AwaitingCredential(t *testing.T) {
	service := newTestService(t, &fakeSearcher{})
	snap := service.CreateSession()

	view, err := service.Render(snap.ID)

	require.NoError(t, err)
	assert.Equal(t, StateAwaitingCredential, view.Snapshot.State)
	assert.Empty(t, view.Elements)
}

func TestCloseSession(t *testing.T) {
	service := newTestService(t, &fakeSearcher{})
	snap := service.CreateSession()

	require.NoError(t, service.CloseSession(snap.ID))
	assert.Equal(t, 0, service.ActiveSessions())

	err := service.CloseSession(snap.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = service.Render(snap.ID)
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))
}
