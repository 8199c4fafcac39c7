package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"sandplane/internal/catalog"
	"sandplane/internal/gateway"
	"sandplane/internal/logger"
	"sandplane/internal/session"
	"sandplane/internal/store"
)

// fakeGateway tracks containers in memory and reports gateway.ErrNotFound
// for unknown ids, like the real engine adapter does.
type fakeGateway struct {
	mu      sync.Mutex
	nextID  int
	running map[string]bool

	ensureErr  error
	createErr  error
	startErr   error
	stopErr    error
	restartErr error
	removeErr  error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{running: make(map[string]bool)}
}

func (g *fakeGateway) live() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.running)
}

// forget simulates a container deleted out-of-band.
func (g *fakeGateway) forget(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, id)
}

func (g *fakeGateway) notFound(id string) error {
	return fmt.Errorf("no such container %s: %w", id, gateway.ErrNotFound)
}

func (g *fakeGateway) EnsureImage(ctx context.Context, ref string) error {
	return g.ensureErr
}

func (g *fakeGateway) CreateContainer(ctx context.Context, ref string, limits gateway.Limits) (string, error) {
	if g.createErr != nil {
		return "", g.createErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	id := fmt.Sprintf("%032d", g.nextID)
	g.running[id] = true
	return id, nil
}

func (g *fakeGateway) StartContainer(ctx context.Context, id string) error {
	if g.startErr != nil {
		return g.startErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.running[id]; !ok {
		return g.notFound(id)
	}
	g.running[id] = true
	return nil
}

func (g *fakeGateway) StopContainer(ctx context.Context, id string) error {
	if g.stopErr != nil {
		return g.stopErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.running[id]; !ok {
		return g.notFound(id)
	}
	g.running[id] = false
	return nil
}

func (g *fakeGateway) RestartContainer(ctx context.Context, id string) error {
	if g.restartErr != nil {
		return g.restartErr
	}
	return g.StartContainer(ctx, id)
}

func (g *fakeGateway) RemoveContainer(ctx context.Context, id string) error {
	if g.removeErr != nil {
		return g.removeErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.running[id]; !ok {
		return g.notFound(id)
	}
	delete(g.running, id)
	return nil
}

func (g *fakeGateway) ContainerRunning(ctx context.Context, id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	running, ok := g.running[id]
	if !ok {
		return false, g.notFound(id)
	}
	return running, nil
}

func (g *fakeGateway) Stats(ctx context.Context, id string) (gateway.Stats, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	running, ok := g.running[id]
	if !ok {
		return gateway.Stats{}, g.notFound(id)
	}
	return gateway.Stats{
		CPUPercent:    12.5,
		MemUsedBytes:  256 << 20,
		MemLimitBytes: 8 << 30,
		Running:       running,
	}, nil
}

func (g *fakeGateway) Exec(ctx context.Context, id string, cmd []string) (io.ReadCloser, error) {
	return nil, errors.New("not used in tests")
}

func (g *fakeGateway) ContainerCounts(ctx context.Context) (int, int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	running := 0
	for _, r := range g.running {
		if r {
			running++
		}
	}
	return running, len(g.running), nil
}

// fakeNegotiator hands out sequential endpoints, or fails.
type fakeNegotiator struct {
	mu    sync.Mutex
	n     int
	fail  error
	calls int
}

func (f *fakeNegotiator) Negotiate(ctx context.Context, containerID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		return "", f.fail
	}
	f.n++
	return fmt.Sprintf("ssh session-%d@nyc1.tmate.io", f.n), nil
}

func newTestOrchestrator(t *testing.T, quota int) (*Orchestrator, *store.FileStore, *fakeGateway, *fakeNegotiator) {
	t.Helper()
	s := store.New(filepath.Join(t.TempDir(), "instances.json"))
	gw := newFakeGateway()
	neg := &fakeNegotiator{}
	cat := catalog.Default()
	o := New(s, gw, neg, cat, Config{Quota: quota}, logger.New())
	return o, s, gw, neg
}

var (
	alice = Identity{ID: "alice"}
	bob   = Identity{ID: "bob"}
	root  = Identity{ID: "root", Admin: true}
)

func TestDeploy_Success(t *testing.T) {
	o, s, gw, _ := newTestOrchestrator(t, 1)

	dep, err := o.Deploy(context.Background(), alice, "ubuntu-22")
	if err != nil {
		t.Fatalf("Deploy() error: %v", err)
	}
	if dep.Owner != "alice" {
		t.Errorf("Owner = %q, want alice", dep.Owner)
	}
	if dep.Instance.Status != store.StatusRunning {
		t.Errorf("Status = %q, want running", dep.Instance.Status)
	}
	if dep.Instance.SessionEndpoint == "" {
		t.Error("SessionEndpoint is empty")
	}
	if gw.live() != 1 {
		t.Errorf("live containers = %d, want 1", gw.live())
	}

	stored, err := s.ListByOwner("alice")
	if err != nil || len(stored) != 1 {
		t.Fatalf("ListByOwner = %v, %v, want one record", stored, err)
	}
	if stored[0].ID != dep.Instance.ID {
		t.Errorf("stored id %q != deployed id %q", stored[0].ID, dep.Instance.ID)
	}
}

func TestDeploy_QuotaExceeded(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t, 1)
	ctx := context.Background()

	if _, err := o.Deploy(ctx, alice, "ubuntu-22"); err != nil {
		t.Fatalf("first Deploy() error: %v", err)
	}
	if _, err := o.Deploy(ctx, alice, "ubuntu-22"); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("second Deploy() error = %v, want ErrQuotaExceeded", err)
	}

	// Another owner is unaffected.
	if _, err := o.Deploy(ctx, bob, "ubuntu-22"); err != nil {
		t.Errorf("Deploy() for other owner error: %v", err)
	}
}

func TestDeploy_UnknownImage(t *testing.T) {
	o, _, gw, _ := newTestOrchestrator(t, 1)

	_, err := o.Deploy(context.Background(), alice, "windows-95")
	if !errors.Is(err, ErrUnknownImage) {
		t.Errorf("Deploy() error = %v, want ErrUnknownImage", err)
	}
	if gw.live() != 0 {
		t.Errorf("live containers = %d, want 0", gw.live())
	}
}

func TestDeploy_ProvisionFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("image pull fails", func(t *testing.T) {
		o, s, gw, _ := newTestOrchestrator(t, 1)
		gw.ensureErr = errors.New("registry unreachable")

		_, err := o.Deploy(ctx, alice, "ubuntu-22")
		if !errors.Is(err, ErrProvisionFailed) {
			t.Errorf("Deploy() error = %v, want ErrProvisionFailed", err)
		}
		if gw.live() != 0 {
			t.Errorf("live containers = %d, want 0", gw.live())
		}
		if n, _ := s.Count(); n != 0 {
			t.Errorf("store count = %d, want 0", n)
		}
	})

	t.Run("container create fails", func(t *testing.T) {
		o, s, gw, _ := newTestOrchestrator(t, 1)
		gw.createErr = errors.New("daemon on fire")

		_, err := o.Deploy(ctx, alice, "ubuntu-22")
		if !errors.Is(err, ErrProvisionFailed) {
			t.Errorf("Deploy() error = %v, want ErrProvisionFailed", err)
		}
		if n, _ := s.Count(); n != 0 {
			t.Errorf("store count = %d, want 0", n)
		}
	})
}

func TestDeploy_SessionFailureCompensates(t *testing.T) {
	o, s, gw, neg := newTestOrchestrator(t, 1)
	neg.fail = session.ErrTimeout

	_, err := o.Deploy(context.Background(), alice, "ubuntu-22")
	if !errors.Is(err, ErrSessionFailed) {
		t.Fatalf("Deploy() error = %v, want ErrSessionFailed", err)
	}

	// No orphan: the created container was torn down and nothing was
	// persisted.
	if gw.live() != 0 {
		t.Errorf("live containers = %d, want 0", gw.live())
	}
	if n, _ := s.Count(); n != 0 {
		t.Errorf("store count = %d, want 0", n)
	}

	// The owner can deploy again afterwards.
	neg.fail = nil
	if _, err := o.Deploy(context.Background(), alice, "ubuntu-22"); err != nil {
		t.Errorf("Deploy() after compensation error: %v", err)
	}
}

func TestDeploy_ConcurrentQuota(t *testing.T) {
	o, s, _, _ := newTestOrchestrator(t, 1)
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Deploy(ctx, alice, "ubuntu-22")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else if !errors.Is(err, ErrQuotaExceeded) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("concurrent deploys succeeded %d times, want exactly 1", successes)
	}
	if n, _ := s.Count(); n != 1 {
		t.Errorf("store count = %d, want 1", n)
	}
}

func TestManage_FullScenario(t *testing.T) {
	o, s, _, neg := newTestOrchestrator(t, 1)
	ctx := context.Background()

	dep, err := o.Deploy(ctx, alice, "ubuntu-22")
	if err != nil {
		t.Fatalf("Deploy() error: %v", err)
	}
	id := dep.Instance.ID
	firstEndpoint := dep.Instance.SessionEndpoint

	// Stop: status stopped, session unchanged.
	res, err := o.Manage(ctx, alice, id, ActionStop)
	if err != nil {
		t.Fatalf("stop error: %v", err)
	}
	if res.Instance.Status != store.StatusStopped {
		t.Errorf("status after stop = %q, want stopped", res.Instance.Status)
	}
	if res.Instance.SessionEndpoint != firstEndpoint {
		t.Error("stop must not touch the session endpoint")
	}

	// Restart: status running, fresh endpoint.
	res, err = o.Manage(ctx, alice, id, ActionRestart)
	if err != nil {
		t.Fatalf("restart error: %v", err)
	}
	if res.Instance.Status != store.StatusRunning {
		t.Errorf("status after restart = %q, want running", res.Instance.Status)
	}
	if res.Instance.SessionEndpoint == firstEndpoint {
		t.Error("restart should renegotiate the session endpoint")
	}
	if res.Warning != "" {
		t.Errorf("unexpected warning: %q", res.Warning)
	}
	secondEndpoint := res.Instance.SessionEndpoint

	// Restart with failing negotiation: success with warning, endpoint
	// unchanged.
	neg.fail = session.ErrTimeout
	res, err = o.Manage(ctx, alice, id, ActionRestart)
	if err != nil {
		t.Fatalf("restart with failed negotiation error: %v", err)
	}
	if res.Warning == "" {
		t.Error("expected a renegotiation warning")
	}
	stored, err := s.FindByRef(id)
	if err != nil || stored == nil {
		t.Fatalf("FindByRef = %v, %v", stored, err)
	}
	if stored.Instance.SessionEndpoint != secondEndpoint {
		t.Error("failed renegotiation must leave the stored endpoint unchanged")
	}
	neg.fail = nil

	// Remove: record absent, owner can deploy again.
	if _, err := o.Manage(ctx, alice, id, ActionRemove); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if got, _ := s.FindByRef(id); got != nil {
		t.Error("record still present after remove")
	}
	if _, err := o.Deploy(ctx, alice, "ubuntu-22"); err != nil {
		t.Errorf("Deploy() after remove error: %v", err)
	}
}

func TestManage_NotFoundAndAmbiguous(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t, 2)
	ctx := context.Background()

	if _, err := o.Manage(ctx, alice, "deadbeef", ActionStop); !errors.Is(err, ErrNotFound) {
		t.Errorf("Manage(unknown) error = %v, want ErrNotFound", err)
	}

	// Two instances whose generated ids share a long zero prefix.
	if _, err := o.Deploy(ctx, alice, "ubuntu-22"); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Deploy(ctx, alice, "ubuntu-22"); err != nil {
		t.Fatal(err)
	}

	if _, err := o.Manage(ctx, alice, "00000", ActionStop); !errors.Is(err, store.ErrAmbiguousRef) {
		t.Errorf("Manage(ambiguous) error = %v, want ErrAmbiguousRef", err)
	}
}

func TestManage_Ownership(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t, 1)
	ctx := context.Background()

	dep, err := o.Deploy(ctx, alice, "ubuntu-22")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := o.Manage(ctx, bob, dep.Instance.ID, ActionStop); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Manage() by non-owner error = %v, want ErrPermissionDenied", err)
	}

	// Admin override.
	if _, err := o.Manage(ctx, root, dep.Instance.ID, ActionStop); err != nil {
		t.Errorf("Manage() by admin error: %v", err)
	}
}

func TestManage_ReconcilesOnVanishedContainer(t *testing.T) {
	o, s, gw, _ := newTestOrchestrator(t, 1)
	ctx := context.Background()

	dep, err := o.Deploy(ctx, alice, "ubuntu-22")
	if err != nil {
		t.Fatal(err)
	}
	gw.forget(dep.Instance.ID)

	_, err = o.Manage(ctx, alice, dep.Instance.ID, ActionStop)
	if !errors.Is(err, ErrAlreadyGone) {
		t.Fatalf("Manage() error = %v, want ErrAlreadyGone", err)
	}

	// The cache self-healed.
	if got, _ := s.FindByRef(dep.Instance.ID); got != nil {
		t.Error("stale record still present after reconciliation")
	}
	if list, _ := s.ListByOwner("alice"); len(list) != 0 {
		t.Errorf("ListByOwner = %v, want empty", list)
	}
}

func TestRegenerateSession(t *testing.T) {
	o, s, gw, _ := newTestOrchestrator(t, 1)
	ctx := context.Background()

	dep, err := o.Deploy(ctx, alice, "ubuntu-22")
	if err != nil {
		t.Fatal(err)
	}
	id := dep.Instance.ID

	endpoint, err := o.RegenerateSession(ctx, alice, id)
	if err != nil {
		t.Fatalf("RegenerateSession() error: %v", err)
	}
	if endpoint == dep.Instance.SessionEndpoint {
		t.Error("expected a fresh endpoint")
	}
	stored, _ := s.FindByRef(id)
	if stored == nil || stored.Instance.SessionEndpoint != endpoint {
		t.Error("new endpoint not persisted")
	}

	// Freshly observed stopped state wins over the cached status.
	if _, err := o.Manage(ctx, alice, id, ActionStop); err != nil {
		t.Fatal(err)
	}
	if _, err := o.RegenerateSession(ctx, alice, id); !errors.Is(err, ErrNotRunning) {
		t.Errorf("RegenerateSession() on stopped error = %v, want ErrNotRunning", err)
	}

	gw.forget(id)
	if _, err := o.RegenerateSession(ctx, alice, id); !errors.Is(err, ErrAlreadyGone) {
		t.Errorf("RegenerateSession() on vanished error = %v, want ErrAlreadyGone", err)
	}
}

func TestDescribe(t *testing.T) {
	o, s, gw, _ := newTestOrchestrator(t, 1)
	ctx := context.Background()

	dep, err := o.Deploy(ctx, alice, "ubuntu-22")
	if err != nil {
		t.Fatal(err)
	}
	id := dep.Instance.ID

	details, err := o.Describe(ctx, alice, id)
	if err != nil {
		t.Fatalf("Describe() error: %v", err)
	}
	if !details.Stats.Running || details.Stats.CPUPercent == 0 {
		t.Errorf("Stats = %+v, want live running reading", details.Stats)
	}

	// Out-of-band deletion: Describe reconciles and the record disappears.
	gw.forget(id)
	if _, err := o.Describe(ctx, alice, id); !errors.Is(err, ErrAlreadyGone) {
		t.Errorf("Describe() error = %v, want ErrAlreadyGone", err)
	}
	if list, _ := s.ListByOwner("alice"); len(list) != 0 {
		t.Errorf("ListByOwner after reconcile = %v, want empty", list)
	}
}

func TestDescribe_RefreshesAdvisoryStatus(t *testing.T) {
	o, s, gw, _ := newTestOrchestrator(t, 1)
	ctx := context.Background()

	dep, err := o.Deploy(ctx, alice, "ubuntu-22")
	if err != nil {
		t.Fatal(err)
	}
	id := dep.Instance.ID

	// Stop the container behind the orchestrator's back; the store still
	// says running.
	gw.mu.Lock()
	gw.running[id] = false
	gw.mu.Unlock()

	details, err := o.Describe(ctx, alice, id)
	if err != nil {
		t.Fatalf("Describe() error: %v", err)
	}
	if details.Instance.Status != store.StatusStopped {
		t.Errorf("Status = %q, want stopped", details.Instance.Status)
	}
	stored, _ := s.FindByRef(id)
	if stored == nil || stored.Instance.Status != store.StatusStopped {
		t.Error("advisory status not refreshed in the store")
	}
}

func TestListAll_AdminOnly(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t, 1)
	ctx := context.Background()

	if _, err := o.Deploy(ctx, alice, "ubuntu-22"); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Deploy(ctx, bob, "ubuntu-22"); err != nil {
		t.Fatal(err)
	}

	if _, err := o.ListAll(ctx, alice); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("ListAll() by non-admin error = %v, want ErrPermissionDenied", err)
	}

	table, err := o.ListAll(ctx, root)
	if err != nil {
		t.Fatalf("ListAll() error: %v", err)
	}
	if len(table) != 2 {
		t.Errorf("ListAll() owners = %d, want 2", len(table))
	}
}
