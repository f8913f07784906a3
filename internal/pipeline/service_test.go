package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benashkar/turkish-bsl/pkg/hometown"
	"github.com/benashkar/turkish-bsl/pkg/logger"
	"github.com/benashkar/turkish-bsl/pkg/merge"
	"github.com/benashkar/turkish-bsl/pkg/notifier"
	"github.com/benashkar/turkish-bsl/pkg/snapshot"
	"github.com/benashkar/turkish-bsl/pkg/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct{ mock.Mock }

func (m *mockFetcher) FetchPlayers(ctx context.Context) (*snapshot.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*snapshot.Snapshot), args.Error(1)
}

type mockResolver struct{ mock.Mock }

func (m *mockResolver) Resolve(ctx context.Context, raw *snapshot.Snapshot) hometown.Result {
	args := m.Called(ctx, raw)
	return args.Get(0).(hometown.Result)
}

type mockStore struct{ mock.Mock }

func (m *mockStore) SaveRaw(ctx context.Context, runID string, snap *snapshot.Snapshot) error {
	return m.Called(ctx, runID, snap).Error(0)
}

func (m *mockStore) SaveEnrichment(ctx context.Context, runID string, enrichment interface{}) error {
	return m.Called(ctx, runID, enrichment).Error(0)
}

func (m *mockStore) PublishCanonical(ctx context.Context, snap *snapshot.Snapshot) error {
	return m.Called(ctx, snap).Error(0)
}

func (m *mockStore) LoadCanonical(ctx context.Context) (*snapshot.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*snapshot.Snapshot), args.Error(1)
}

type mockArchiver struct{ mock.Mock }

func (m *mockArchiver) ArchiveRun(ctx context.Context, snap *snapshot.Snapshot) error {
	return m.Called(ctx, snap).Error(0)
}

func (m *mockArchiver) Close() error { return m.Called().Error(0) }

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) PublishAsync(ctx context.Context, key, value []byte) <-chan notifier.PublishResult {
	args := m.Called(ctx, key, value)
	return args.Get(0).(<-chan notifier.PublishResult)
}

func (m *mockNotifier) Close() error { return m.Called().Error(0) }

func publishResult(err error) <-chan notifier.PublishResult {
	ch := make(chan notifier.PublishResult, 1)
	ch <- notifier.PublishResult{Error: err}
	close(ch)
	return ch
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{Level: "error", ServiceName: "test"})
	require.NoError(t, err)
	return l
}

func strptr(s string) *string { return &s }

func rawSnap(ids ...string) *snapshot.Snapshot {
	snap := &snapshot.Snapshot{
		GeneratedAt: time.Now().UTC(),
		SourceRunID: "run-1",
		League:      "Turkish Basketbol Super Ligi",
		Season:      "2025-2026",
	}
	for _, id := range ids {
		snap.Players = append(snap.Players, snapshot.PlayerRecord{
			PlayerID:    id,
			Name:        "Player " + id,
			LastUpdated: snap.GeneratedAt,
		})
	}
	return snap
}

func fullResolution(snap *snapshot.Snapshot) hometown.Result {
	res := hometown.Result{Resolutions: make(map[string]hometown.Resolution)}
	for _, p := range snap.Players {
		res.Resolutions[p.PlayerID] = hometown.Resolution{Hometown: "Springfield, Illinois", Source: "wikipedia"}
	}
	return res
}

func TestRunHappyPath(t *testing.T) {
	raw := rawSnap("p1", "p2")

	fetcher := &mockFetcher{}
	fetcher.On("FetchPlayers", mock.Anything).Return(raw, nil)

	resolver := &mockResolver{}
	resolver.On("Resolve", mock.Anything, raw).Return(fullResolution(raw))

	store := &mockStore{}
	store.On("SaveEnrichment", mock.Anything, "run-1", mock.Anything).Return(nil)
	store.On("LoadCanonical", mock.Anything).Return(nil, nil)
	store.On("PublishCanonical", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(testLogger(t), fetcher, resolver, store)
	result, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, 2, result.PlayerCount)
	assert.Equal(t, 1.0, result.EnrichmentCoverage)
	assert.False(t, result.EnrichmentUnavailable)
	store.AssertCalled(t, "PublishCanonical", mock.Anything, mock.Anything)
}

func TestRunFetchFailureLeavesCanonicalUntouched(t *testing.T) {
	fetcher := &mockFetcher{}
	fetcher.On("FetchPlayers", mock.Anything).Return(nil, source.ErrSourceUnavailable)

	resolver := &mockResolver{}
	store := &mockStore{}

	svc := NewService(testLogger(t), fetcher, resolver, store)
	_, err := svc.Run(context.Background())

	assert.ErrorIs(t, err, source.ErrSourceUnavailable)
	store.AssertNotCalled(t, "PublishCanonical", mock.Anything, mock.Anything)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestRunEmptyRosterAborts(t *testing.T) {
	raw := rawSnap() // zero players

	fetcher := &mockFetcher{}
	fetcher.On("FetchPlayers", mock.Anything).Return(raw, nil)

	resolver := &mockResolver{}
	resolver.On("Resolve", mock.Anything, raw).Return(hometown.Result{Resolutions: map[string]hometown.Resolution{}})

	store := &mockStore{}
	store.On("SaveEnrichment", mock.Anything, "run-1", mock.Anything).Return(nil)
	store.On("LoadCanonical", mock.Anything).Return(rawSnap("p1"), nil)

	svc := NewService(testLogger(t), fetcher, resolver, store)
	_, err := svc.Run(context.Background())

	assert.ErrorIs(t, err, merge.ErrEmptyRoster)
	store.AssertNotCalled(t, "PublishCanonical", mock.Anything, mock.Anything)
}

func TestRunEnrichmentUnavailableStillPublishes(t *testing.T) {
	raw := rawSnap("p1")

	previous := rawSnap("p1")
	previous.SourceRunID = "run-0"
	previous.Players[0].Hometown = strptr("Metropolis, Kansas")

	fetcher := &mockFetcher{}
	fetcher.On("FetchPlayers", mock.Anything).Return(raw, nil)

	resolver := &mockResolver{}
	resolver.On("Resolve", mock.Anything, raw).Return(hometown.Result{
		Unavailable: true,
		Resolutions: map[string]hometown.Resolution{
			"p1": {FailureReason: "lookup source unavailable"},
		},
	})

	store := &mockStore{}
	store.On("SaveEnrichment", mock.Anything, "run-1", mock.Anything).Return(nil)
	store.On("LoadCanonical", mock.Anything).Return(previous, nil)

	var published *snapshot.Snapshot
	store.On("PublishCanonical", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		published = args.Get(1).(*snapshot.Snapshot)
	}).Return(nil)

	svc := NewService(testLogger(t), fetcher, resolver, store)
	result, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, result.EnrichmentUnavailable)
	require.NotNil(t, published)
	require.NotNil(t, published.Players[0].Hometown)
	assert.Equal(t, "Metropolis, Kansas", *published.Players[0].Hometown)
}

func TestRunUnreadablePreviousSnapshotIsFatal(t *testing.T) {
	raw := rawSnap("p1")

	fetcher := &mockFetcher{}
	fetcher.On("FetchPlayers", mock.Anything).Return(raw, nil)

	resolver := &mockResolver{}
	resolver.On("Resolve", mock.Anything, raw).Return(fullResolution(raw))

	store := &mockStore{}
	store.On("SaveEnrichment", mock.Anything, "run-1", mock.Anything).Return(nil)
	store.On("LoadCanonical", mock.Anything).Return(nil, errors.New("corrupt json"))

	svc := NewService(testLogger(t), fetcher, resolver, store)
	_, err := svc.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "previous snapshot")
	store.AssertNotCalled(t, "PublishCanonical", mock.Anything, mock.Anything)
}

func TestRunEnrichmentSaveFailureIsNonFatal(t *testing.T) {
	raw := rawSnap("p1")

	fetcher := &mockFetcher{}
	fetcher.On("FetchPlayers", mock.Anything).Return(raw, nil)

	resolver := &mockResolver{}
	resolver.On("Resolve", mock.Anything, raw).Return(fullResolution(raw))

	store := &mockStore{}
	store.On("SaveEnrichment", mock.Anything, "run-1", mock.Anything).Return(errors.New("disk full"))
	store.On("LoadCanonical", mock.Anything).Return(nil, nil)
	store.On("PublishCanonical", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(testLogger(t), fetcher, resolver, store)
	result, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestRunCancelledBetweenStagesAborts(t *testing.T) {
	raw := rawSnap("p1")
	ctx, cancel := context.WithCancel(context.Background())

	fetcher := &mockFetcher{}
	fetcher.On("FetchPlayers", mock.Anything).Return(raw, nil)

	resolver := &mockResolver{}
	resolver.On("Resolve", mock.Anything, raw).Run(func(mock.Arguments) {
		cancel()
	}).Return(fullResolution(raw))

	store := &mockStore{}
	store.On("SaveEnrichment", mock.Anything, "run-1", mock.Anything).Return(nil)

	svc := NewService(testLogger(t), fetcher, resolver, store)
	_, err := svc.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	store.AssertNotCalled(t, "PublishCanonical", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "LoadCanonical", mock.Anything)
}

func TestRunSideEffectsAfterPublish(t *testing.T) {
	raw := rawSnap("p1")

	fetcher := &mockFetcher{}
	fetcher.On("FetchPlayers", mock.Anything).Return(raw, nil)

	resolver := &mockResolver{}
	resolver.On("Resolve", mock.Anything, raw).Return(fullResolution(raw))

	store := &mockStore{}
	store.On("SaveEnrichment", mock.Anything, "run-1", mock.Anything).Return(nil)
	store.On("LoadCanonical", mock.Anything).Return(nil, nil)
	store.On("PublishCanonical", mock.Anything, mock.Anything).Return(nil)

	archiver := &mockArchiver{}
	archiver.On("ArchiveRun", mock.Anything, mock.Anything).Return(errors.New("db down"))

	notif := &mockNotifier{}
	notif.On("PublishAsync", mock.Anything, []byte("run-1"), mock.Anything).Return(publishResult(nil))

	svc := NewService(testLogger(t), fetcher, resolver, store,
		WithArchiver(archiver), WithNotifier(notif))
	result, err := svc.Run(context.Background())

	// Archive failure after publish never fails the run.
	require.NoError(t, err)
	assert.True(t, result.Success)
	archiver.AssertCalled(t, "ArchiveRun", mock.Anything, mock.Anything)
	notif.AssertCalled(t, "PublishAsync", mock.Anything, []byte("run-1"), mock.Anything)
}
