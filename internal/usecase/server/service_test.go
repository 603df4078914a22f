package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/imgflow/dispatch/internal/adapters/out/sqlite"
	"github.com/imgflow/dispatch/internal/boundaries/out"
	"github.com/imgflow/dispatch/internal/boundaries/out/mocks"
	"github.com/imgflow/dispatch/internal/domain"
	"github.com/imgflow/dispatch/internal/logging"
)

var fixedNow = time.UnixMilli(1_700_000_000_000)

func testCtx() context.Context {
	return logging.WithCtx(context.Background(), zerolog.Nop())
}

func openStore(t testing.TB) *sqlite.ServerStore {
	t.Helper()
	db, err := sqlite.Open(context.Background(), sqlite.Config{Path: sqlite.MemoryPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlite.NewServerStore(db)
}

func newTestService(t testing.TB, bus out.EventPublisher) (*Service, *sqlite.ServerStore) {
	t.Helper()
	store := openStore(t)
	svc := NewService(store, bus)
	svc.now = func() time.Time { return fixedNow }
	return svc, store
}

func newServer(host string, enabled bool) *domain.ServerConfig {
	return &domain.ServerConfig{Host: host, Enabled: enabled}
}

func TestService_CreateFirstEnabled(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := testCtx()

	created, err := svc.Create(ctx, newServer("unix:///var/run/docker.sock", true))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "unix:///var/run/docker.sock", created.Name)
	require.NotNil(t, created.EnabledAt)
	assert.True(t, fixedNow.Equal(*created.EnabledAt))

	enabled, err := svc.GetEnabled(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.ID, enabled.ID)

	id, err := svc.GetEnabledID(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.ID, id)
}

func TestService_CreateDoesNotMutateInput(t *testing.T) {
	svc, _ := newTestService(t, nil)
	input := &domain.ServerConfig{ID: 99, Host: "tcp://a:2375", Enabled: true}

	created, err := svc.Create(testCtx(), input)
	require.NoError(t, err)

	assert.Equal(t, int64(99), input.ID)
	assert.Nil(t, input.EnabledAt)
	assert.NotEqual(t, int64(99), created.ID)
}

func TestService_CreateSecondEnabledDisablesFirst(t *testing.T) {
	bus := mocks.NewMockEventBus(t)
	svc, _ := newTestService(t, bus)
	ctx := testCtx()

	bus.On("Publish", domain.EventServerChanged, domain.ServerChangedPayload{PreviousID: 0, EnabledID: 1}).Return(nil).Once()
	bus.On("Publish", domain.EventServerChanged, domain.ServerChangedPayload{PreviousID: 1, EnabledID: 2}).Return(nil).Once()

	first, err := svc.Create(ctx, newServer("tcp://a:2375", true))
	require.NoError(t, err)
	second, err := svc.Create(ctx, newServer("tcp://b:2375", true))
	require.NoError(t, err)

	id, err := svc.GetEnabledID(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, id)

	stored, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, stored.Enabled)
	require.NotNil(t, stored.DisabledAt)
	assert.True(t, fixedNow.Equal(*stored.DisabledAt))
	assert.True(t, fixedNow.Equal(stored.LastModified))
}

func TestService_CreateDisabledStillDisablesCurrent(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := testCtx()

	_, err := svc.Create(ctx, newServer("tcp://a:2375", true))
	require.NoError(t, err)
	_, err = svc.Create(ctx, newServer("tcp://b:2375", false))
	require.NoError(t, err)

	_, err = svc.GetEnabled(ctx)
	assert.ErrorIs(t, err, domain.ErrNoEnabledServer)

	id, err := svc.GetEnabledID(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.NoServerID, id)
}

func TestService_UpdateEnablesAndDisablesPrevious(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := testCtx()

	a, err := svc.Create(ctx, newServer("tcp://a:2375", true))
	require.NoError(t, err)
	b, err := svc.Create(ctx, newServer("tcp://b:2375", false))
	require.NoError(t, err)

	_, err = svc.SetEnabled(ctx, a.ID, true)
	require.NoError(t, err)

	b.Enabled = true
	b.Constraints = []domain.Constraint{{Key: "node.role", Values: []string{"worker"}}}
	require.NoError(t, svc.Update(ctx, b))

	enabled, err := svc.GetEnabled(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, enabled.ID)
	require.Len(t, enabled.Constraints, 1)
	assert.Equal(t, domain.ComparatorEquals, enabled.Constraints[0].Comparator)

	storedA, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, storedA.Enabled)
}

func TestService_UpdateSameServerKeepsItEnabled(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := testCtx()

	a, err := svc.Create(ctx, newServer("tcp://a:2375", true))
	require.NoError(t, err)

	a.Name = "renamed"
	require.NoError(t, svc.Update(ctx, a))

	enabled, err := svc.GetEnabled(ctx)
	require.NoError(t, err)
	assert.Equal(t, "renamed", enabled.Name)
	assert.Nil(t, enabled.DisabledAt)
}

func TestService_DisableEnabledServer(t *testing.T) {
	bus := mocks.NewMockEventBus(t)
	svc, _ := newTestService(t, bus)
	ctx := testCtx()

	bus.On("Publish", domain.EventServerChanged, domain.ServerChangedPayload{PreviousID: 0, EnabledID: 1}).Return(nil).Once()
	bus.On("Publish", domain.EventServerChanged, domain.ServerChangedPayload{PreviousID: 1, EnabledID: 0}).Return(nil).Once()

	a, err := svc.Create(ctx, newServer("tcp://a:2375", true))
	require.NoError(t, err)

	disabled, err := svc.SetEnabled(ctx, a.ID, false)
	require.NoError(t, err)
	assert.False(t, disabled.Enabled)
	require.NotNil(t, disabled.DisabledAt)

	id, err := svc.GetEnabledID(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.NoServerID, id)
}

func TestService_UpdateMissingServer(t *testing.T) {
	svc, _ := newTestService(t, nil)

	err := svc.Update(testCtx(), &domain.ServerConfig{ID: 12, Host: "tcp://a:2375", Enabled: true})
	assert.ErrorIs(t, err, domain.ErrServerNotFound)

	_, err = svc.SetEnabled(testCtx(), 12, true)
	assert.ErrorIs(t, err, domain.ErrServerNotFound)
}

func TestService_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		server *domain.ServerConfig
	}{
		{name: "nil", server: nil},
		{name: "missing host", server: &domain.ServerConfig{}},
		{name: "unknown scheme", server: &domain.ServerConfig{Host: "ftp://docker"}},
		{name: "bad comparator", server: &domain.ServerConfig{Host: "tcp://a:2375",
			Constraints: []domain.Constraint{{Key: "k", Values: []string{"v"}, Comparator: "<"}}}},
		{name: "constraint without values", server: &domain.ServerConfig{Host: "tcp://a:2375",
			Constraints: []domain.Constraint{{Key: "k"}}}},
		{name: "constraint without key", server: &domain.ServerConfig{Host: "tcp://a:2375",
			Constraints: []domain.Constraint{{Values: []string{"v"}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, nil)

			_, err := svc.Create(testCtx(), tt.server)
			assert.ErrorIs(t, err, domain.ErrInvalidServerConfig)
		})
	}
}

func TestService_DetectsMultipleEnabled(t *testing.T) {
	svc, store := newTestService(t, nil)
	ctx := testCtx()

	err := store.WithTx(ctx, func(tx out.ServerTx) error {
		for _, host := range []string{"tcp://a:2375", "tcp://b:2375"} {
			if _, err := tx.Insert(ctx, &domain.ServerConfig{Host: host, Enabled: true, LastModified: fixedNow}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	_, err = svc.GetEnabled(ctx)
	assert.ErrorIs(t, err, domain.ErrMultipleEnabledServers)

	_, err = svc.GetEnabledID(ctx)
	assert.ErrorIs(t, err, domain.ErrMultipleEnabledServers)

	_, err = svc.Create(ctx, newServer("tcp://c:2375", true))
	assert.ErrorIs(t, err, domain.ErrMultipleEnabledServers)

	servers, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, servers, 2)
}

type failingStore struct {
	out.ServerStore
	err error
}

func (f failingStore) WithTx(context.Context, func(tx out.ServerTx) error) error {
	return f.err
}

func TestService_WrapsWriteFailures(t *testing.T) {
	locked := errors.New("database is locked")
	svc := NewService(failingStore{ServerStore: openStore(t), err: locked}, nil)

	_, err := svc.Create(testCtx(), newServer("tcp://a:2375", true))
	assert.ErrorIs(t, err, domain.ErrServerWriteFailed)
	assert.ErrorIs(t, err, locked)
}

// beforeTxStore runs hook before each transaction opens.
type beforeTxStore struct {
	out.ServerStore
	hook func()
}

func (b beforeTxStore) WithTx(ctx context.Context, fn func(tx out.ServerTx) error) error {
	b.hook()
	return b.ServerStore.WithTx(ctx, fn)
}

func TestService_SetEnabledKeepsConcurrentWatermark(t *testing.T) {
	svc, store := newTestService(t, nil)
	ctx := testCtx()

	a, err := svc.Create(ctx, newServer("tcp://a:2375", false))
	require.NoError(t, err)

	watermark := time.UnixMilli(1_700_000_500_000)
	svc.store = beforeTxStore{ServerStore: store, hook: func() {
		require.NoError(t, store.SetEventCheckTime(ctx, a.ID, watermark))
	}}

	enabled, err := svc.SetEnabled(ctx, a.ID, true)
	require.NoError(t, err)
	require.NotNil(t, enabled.LastEventCheckTime)
	assert.True(t, watermark.Equal(*enabled.LastEventCheckTime))

	stored, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, stored.Enabled)
	require.NotNil(t, stored.LastEventCheckTime)
	assert.True(t, watermark.Equal(*stored.LastEventCheckTime))
}

func TestService_ConcurrentCreatesLeaveOneEnabled(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := testCtx()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, newServer("tcp://docker:2375", true))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	servers, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, servers, 16)

	enabled := 0
	for _, s := range servers {
		if s.Enabled {
			enabled++
		}
	}
	assert.Equal(t, 1, enabled)
}

func TestService_AtMostOneEnabledProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		svc, store := newTestService(t, nil)
		ctx := testCtx()
		var ids []int64

		steps := rapid.IntRange(1, 20).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			enabled := rapid.Bool().Draw(rt, "enabled")

			if len(ids) == 0 || rapid.Bool().Draw(rt, "create") {
				created, err := svc.Create(ctx, newServer("tcp://docker:2375", enabled))
				if err != nil {
					rt.Fatalf("create: %v", err)
				}
				ids = append(ids, created.ID)
			} else {
				id := rapid.SampledFrom(ids).Draw(rt, "id")
				if _, err := svc.SetEnabled(ctx, id, enabled); err != nil {
					rt.Fatalf("set enabled: %v", err)
				}
			}

			enabledIDs, err := store.EnabledIDs(ctx)
			if err != nil {
				rt.Fatalf("enabled ids: %v", err)
			}
			if len(enabledIDs) > 1 {
				rt.Fatalf("more than one server enabled: %v", enabledIDs)
			}
		}
	})
}
