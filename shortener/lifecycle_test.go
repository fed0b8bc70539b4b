package shortener

import (
	"context"
	"errors"
	"sync"
	"testing"

	"tiny-url-service/model"
	"tiny-url-service/store"
	"tiny-url-service/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// fakeProber resolves every probe to a fixed outcome and counts invocations.
type fakeProber struct {
	mu        sync.Mutex
	reachable bool
	probes    int
	block     chan struct{} // when set, Probe waits until the channel closes
}

func (p *fakeProber) Probe(ctx context.Context, url string) bool {
	p.mu.Lock()
	p.probes++
	block := p.block
	p.mu.Unlock()
	if block != nil {
		<-block
	}
	return p.reachable
}

func (p *fakeProber) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.probes
}

func newTestService(t *testing.T, prober Prober) (*Service, *store.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	st := store.New(client)
	return New(st, prober, 100), st
}

func TestCreate_InvalidURL(t *testing.T) {
	svc, st := newTestService(t, &fakeProber{reachable: true})
	ctx := context.Background()

	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{"Empty", "", utils.ErrEmptyURL},
		{"Bad scheme", "ftp://example.com", utils.ErrInvalidScheme},
		{"Not a URL", "not a url", utils.ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.url, Metadata{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// No record must be persisted on any failed validation
	su, err := st.GetShortURL(ctx, utils.HashURL("ftp://example.com"))
	if err != nil {
		t.Fatalf("GetShortURL() error = %v", err)
	}
	if su != nil {
		t.Error("record persisted for invalid URL")
	}
}

func TestCreate_ReturnsImmediatelyUnvalidated(t *testing.T) {
	prober := &fakeProber{reachable: true, block: make(chan struct{})}
	svc, _ := newTestService(t, prober)
	ctx := context.Background()

	su, err := svc.Create(ctx, "http://example.com/", Metadata{IP: "203.0.113.7"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if su.Validated || su.Reachable {
		t.Errorf("fresh record must be unvalidated, got %+v", su)
	}
	if su.StatusCode != 307 {
		t.Errorf("StatusCode = %d, want 307", su.StatusCode)
	}

	// Probe still pending: the record resolves to "not validated yet"
	if _, err := svc.Resolve(ctx, su.Hash); !errors.Is(err, utils.ErrNotValidatedYet) {
		t.Errorf("Resolve() error = %v, want ErrNotValidatedYet", err)
	}

	close(prober.block)
	svc.Wait()
}

func TestCreate_ResolvesReachable(t *testing.T) {
	svc, _ := newTestService(t, &fakeProber{reachable: true})
	ctx := context.Background()

	su, err := svc.Create(ctx, "http://example.com/", Metadata{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	svc.Wait()

	resolved, err := svc.Resolve(ctx, su.Hash)
	if err != nil {
		t.Fatalf("Resolve() after probe error = %v", err)
	}
	if resolved.Target != "http://example.com/" {
		t.Errorf("Target = %q, want %q", resolved.Target, "http://example.com/")
	}
	if resolved.StatusCode != 307 {
		t.Errorf("StatusCode = %d, want 307", resolved.StatusCode)
	}
	if !resolved.Validated || !resolved.Reachable {
		t.Errorf("record not resolved as reachable: %+v", resolved)
	}
}

func TestCreate_ResolvesUnreachable(t *testing.T) {
	svc, _ := newTestService(t, &fakeProber{reachable: false})
	ctx := context.Background()

	su, err := svc.Create(ctx, "http://dead.example.com/", Metadata{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	svc.Wait()

	// Confirmed dead is distinct from still-checking
	if _, err := svc.Resolve(ctx, su.Hash); !errors.Is(err, utils.ErrNotReachable) {
		t.Errorf("Resolve() error = %v, want ErrNotReachable", err)
	}

	// Re-creating a confirmed-dead URL fails
	if _, err := svc.Create(ctx, "http://dead.example.com/", Metadata{}); !errors.Is(err, utils.ErrNotReachable) {
		t.Errorf("Create() error = %v, want ErrNotReachable", err)
	}
}

func TestCreate_IdempotentBeforeResolution(t *testing.T) {
	prober := &fakeProber{reachable: true, block: make(chan struct{})}
	svc, _ := newTestService(t, prober)
	ctx := context.Background()

	first, err := svc.Create(ctx, "http://example.com/", Metadata{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	second, err := svc.Create(ctx, "http://example.com/", Metadata{})
	if err != nil {
		t.Fatalf("second Create() error = %v", err)
	}

	if first.Hash != second.Hash {
		t.Errorf("hashes differ: %q vs %q", first.Hash, second.Hash)
	}
	if probes := prober.count(); probes != 1 {
		t.Errorf("probe count = %d, want 1 (short-circuit must not relaunch)", probes)
	}

	close(prober.block)
	svc.Wait()
}

func TestCreate_IdempotentAfterResolution(t *testing.T) {
	svc, _ := newTestService(t, &fakeProber{reachable: true})
	ctx := context.Background()

	first, err := svc.Create(ctx, "http://example.com/", Metadata{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	svc.Wait()

	second, err := svc.Create(ctx, "http://example.com/", Metadata{})
	if err != nil {
		t.Fatalf("second Create() error = %v", err)
	}
	if second.Hash != first.Hash {
		t.Errorf("hashes differ: %q vs %q", first.Hash, second.Hash)
	}
	if !second.Validated || !second.Reachable {
		t.Errorf("existing resolved record returned unresolved: %+v", second)
	}
}

func TestResolve_Unknown(t *testing.T) {
	svc, _ := newTestService(t, &fakeProber{reachable: true})

	if _, err := svc.Resolve(context.Background(), "deadbeef"); !errors.Is(err, utils.ErrNotFound) {
		t.Errorf("Resolve() error = %v, want ErrNotFound", err)
	}
}

func TestInfo(t *testing.T) {
	svc, _ := newTestService(t, &fakeProber{reachable: true})
	ctx := context.Background()

	su, err := svc.Create(ctx, "http://example.com/", Metadata{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	svc.Wait()

	svc.LogClick(&model.Click{Hash: su.Hash, IP: "203.0.113.7", Browser: "Chrome-120", Platform: "Linux"})

	clicks, err := svc.Info(ctx, su.Hash)
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if len(clicks) != 1 {
		t.Fatalf("Info() returned %d clicks, want 1", len(clicks))
	}
	if clicks[0].Browser != "Chrome-120" {
		t.Errorf("Browser = %q, want Chrome-120", clicks[0].Browser)
	}

	if _, err := svc.Info(ctx, "deadbeef"); !errors.Is(err, utils.ErrNotFound) {
		t.Errorf("Info() error = %v, want ErrNotFound", err)
	}
}
