package directory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/staffdeck/staffdeck/internal/config"
	"github.com/staffdeck/staffdeck/internal/tenant"
)

// fakeStore is an in-memory control store that counts lookups.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]tenant.Record
	queries atomic.Int64
	closed  atomic.Bool
	pingErr error
}

func newFakeStore(recs ...tenant.Record) *fakeStore {
	s := &fakeStore{records: make(map[string]tenant.Record)}
	for _, r := range recs {
		s.records[r.Code] = r
	}
	return s
}

func (s *fakeStore) TenantByCode(_ context.Context, code string) (*tenant.Record, error) {
	s.queries.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[code]
	if !ok {
		return nil, tenant.ErrNotFound
	}
	out := r
	return &out, nil
}

func (s *fakeStore) CodeByID(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			return r.Code, nil
		}
	}
	return "", tenant.ErrNotFound
}

func (s *fakeStore) ListActive(context.Context) ([]tenant.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]tenant.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out, nil
}

func (s *fakeStore) Ping(context.Context) error { return s.pingErr }
func (s *fakeStore) Close()                     { s.closed.Store(true) }

func acmeRecord() tenant.Record {
	return tenant.Record{
		ID: "t-1", Code: "acme", Name: "Acme Corp",
		DBHost: "db-acme.internal", DBPort: 5432, DBName: "staffdeck_acme",
		DBUser: "acme_app", DBPasswordEnc: "enc:acme",
	}
}

func goodDescriptor() (*config.ControlDSN, error) {
	return &config.ControlDSN{Host: "ctl.internal", Port: 5432, Database: "control", User: "app"}, nil
}

func newTestDirectory(store *fakeStore) (*Directory, *atomic.Int64) {
	var opens atomic.Int64
	d := New(Config{
		Open: func(context.Context, string) (ControlStore, error) {
			opens.Add(1)
			return store, nil
		},
		DescriptorFromEnv: goodDescriptor,
	})
	return d, &opens
}

func TestResolve_KnownAndUnknown(t *testing.T) {
	store := newFakeStore(acmeRecord())
	d, _ := newTestDirectory(store)
	ctx := context.Background()

	rec, err := d.Resolve(ctx, "acme")
	if err != nil {
		t.Fatalf("Resolve(acme): %v", err)
	}
	if rec.DBHost != "db-acme.internal" || rec.DBName != "staffdeck_acme" {
		t.Fatalf("wrong record: %+v", rec)
	}

	if _, err := d.Resolve(ctx, "ghost"); !errors.Is(err, tenant.ErrNotFound) {
		t.Fatalf("Resolve(ghost): want ErrNotFound, got %v", err)
	}
	if _, err := d.Resolve(ctx, ""); !errors.Is(err, tenant.ErrNotFound) {
		t.Fatalf("Resolve(empty): want ErrNotFound, got %v", err)
	}
}

func TestResolve_SecondHitSkipsControlStore(t *testing.T) {
	store := newFakeStore(acmeRecord())
	d, _ := newTestDirectory(store)
	ctx := context.Background()

	if _, err := d.Resolve(ctx, "acme"); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	q := store.queries.Load()
	if q != 1 {
		t.Fatalf("first Resolve: want 1 control query, got %d", q)
	}

	if _, err := d.Resolve(ctx, "acme"); err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if got := store.queries.Load(); got != q {
		t.Fatalf("second Resolve must be cache-served: queries went %d -> %d", q, got)
	}
}

func TestResolve_InvalidateForcesRefetch(t *testing.T) {
	store := newFakeStore(acmeRecord())
	d, _ := newTestDirectory(store)
	ctx := context.Background()

	if _, err := d.Resolve(ctx, "acme"); err != nil {
		t.Fatal(err)
	}
	d.Invalidate("acme")
	if _, err := d.Resolve(ctx, "acme"); err != nil {
		t.Fatal(err)
	}
	if got := store.queries.Load(); got != 2 {
		t.Fatalf("after Invalidate want a fresh query (2 total), got %d", got)
	}
}

func TestResolve_SingleFlightColdCode(t *testing.T) {
	store := newFakeStore(acmeRecord())
	d, _ := newTestDirectory(store)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = d.Resolve(context.Background(), "acme")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("goroutine %d: %v", i, err)
		}
	}
	// Coalescing is best effort under contention but must stay near 1, never n.
	if q := store.queries.Load(); q > 2 {
		t.Fatalf("thundering herd: %d control queries for one cold code", q)
	}
}

func TestEnsureControl_MissingDescriptorLeavesNoState(t *testing.T) {
	store := newFakeStore(acmeRecord())
	var opens atomic.Int64
	descErr := error(config.ErrControlDBUnset)
	var mu sync.Mutex

	d := New(Config{
		Open: func(context.Context, string) (ControlStore, error) {
			opens.Add(1)
			return store, nil
		},
		DescriptorFromEnv: func() (*config.ControlDSN, error) {
			mu.Lock()
			defer mu.Unlock()
			if descErr != nil {
				return nil, descErr
			}
			return goodDescriptor()
		},
	})
	ctx := context.Background()

	_, err := d.EnsureControl(ctx)
	if !errors.Is(err, tenant.ErrConfigMissing) {
		t.Fatalf("want ErrConfigMissing, got %v", err)
	}
	if d.Control() != nil {
		t.Fatal("failed attempt must leave no control store behind")
	}
	if opens.Load() != 0 {
		t.Fatal("no open attempt without a descriptor")
	}

	// Operator fixes the environment; the next call succeeds without restart.
	mu.Lock()
	descErr = nil
	mu.Unlock()

	if _, err := d.EnsureControl(ctx); err != nil {
		t.Fatalf("retry after fix: %v", err)
	}
	if d.Control() == nil {
		t.Fatal("control store must be live after successful retry")
	}
	if opens.Load() != 1 {
		t.Fatalf("want exactly one open, got %d", opens.Load())
	}
}

func TestEnsureControl_OpenFailureIsRetryable(t *testing.T) {
	store := newFakeStore()
	var opens atomic.Int64
	var failing atomic.Bool
	failing.Store(true)

	d := New(Config{
		Open: func(context.Context, string) (ControlStore, error) {
			opens.Add(1)
			if failing.Load() {
				return nil, errors.New("connection refused")
			}
			return store, nil
		},
		DescriptorFromEnv: goodDescriptor,
	})
	ctx := context.Background()

	_, err := d.EnsureControl(ctx)
	if !errors.Is(err, tenant.ErrConnectFailed) {
		t.Fatalf("want ErrConnectFailed, got %v", err)
	}
	if d.Control() != nil {
		t.Fatal("failed open must not be cached")
	}

	failing.Store(false)
	if _, err := d.EnsureControl(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestEnsureControl_Idempotent(t *testing.T) {
	store := newFakeStore()
	d, opens := newTestDirectory(store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := d.EnsureControl(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if opens.Load() != 1 {
		t.Fatalf("want 1 open across repeated calls, got %d", opens.Load())
	}
}

func TestResolveByID(t *testing.T) {
	store := newFakeStore(acmeRecord())
	d, _ := newTestDirectory(store)

	rec, err := d.ResolveByID(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("ResolveByID: %v", err)
	}
	if rec.Code != "acme" {
		t.Fatalf("wrong record: %+v", rec)
	}

	if _, err := d.ResolveByID(context.Background(), "nope"); !errors.Is(err, tenant.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestClose_ReopensOnNextUse(t *testing.T) {
	store := newFakeStore()
	d, opens := newTestDirectory(store)
	ctx := context.Background()

	if _, err := d.EnsureControl(ctx); err != nil {
		t.Fatal(err)
	}
	d.Close()
	if !store.closed.Load() {
		t.Fatal("Close must close the store")
	}
	if d.Control() != nil {
		t.Fatal("Close must clear the store")
	}

	if _, err := d.EnsureControl(ctx); err != nil {
		t.Fatal(err)
	}
	if opens.Load() != 2 {
		t.Fatalf("want reopen after Close, got %d opens", opens.Load())
	}
}

func TestResolve_DetachedFromRequestCancellation(t *testing.T) {
	store := newFakeStore(acmeRecord())
	d, _ := newTestDirectory(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // caller already gone

	if _, err := d.Resolve(ctx, "acme"); err != nil {
		t.Fatalf("resolution must not inherit request cancellation: %v", err)
	}
	if d.Control() == nil {
		t.Fatal("control store must survive the cancelled trigger")
	}
}
