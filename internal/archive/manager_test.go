package archive

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tinytelemetry/inferd/internal/journal"
	"go.uber.org/goleak"
)

func newJournal(t *testing.T, lines ...string) *journal.Journal {
	t.Helper()
	j, err := journal.Open(filepath.Join(t.TempDir(), "predictions.log"))
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	for _, line := range lines {
		if err := j.Append(line); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return j
}

func TestNewManager_Disabled(t *testing.T) {
	t.Parallel()

	m, err := NewManager(newJournal(t), Config{})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	if m != nil {
		t.Fatal("expected nil manager when disabled")
	}
}

func TestNewManager_EnabledRequiresLocalDir(t *testing.T) {
	t.Parallel()

	if _, err := NewManager(newJournal(t), Config{Enabled: true}); err == nil {
		t.Fatal("expected error for empty local dir")
	}
}

func TestNewManager_StartupSnapshot(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	localDir := t.TempDir()
	m, err := NewManager(newJournal(t, "a", "b"), Config{
		Enabled:  true,
		Interval: time.Hour,
		LocalDir: localDir,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.Stop()
	m.Stop()

	files, err := filepath.Glob(filepath.Join(localDir, "predictions-*.log"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(files))
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "a\nb\n" {
		t.Fatalf("snapshot = %q", data)
	}
}

func TestRunOnce_SkipsMissingLog(t *testing.T) {
	t.Parallel()

	localDir := t.TempDir()
	m := newManager(newJournal(t), Config{LocalDir: localDir, KeepLast: 2}, nil)

	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	files, _ := filepath.Glob(filepath.Join(localDir, "*"))
	if len(files) != 0 {
		t.Fatalf("files = %v, want none", files)
	}
}

func TestRunOnce_CreatesAndPrunesLocalSnapshots(t *testing.T) {
	t.Parallel()

	localDir := t.TempDir()
	src := newJournal(t, "record")
	m := newManager(src, Config{LocalDir: localDir, KeepLast: 2}, nil)

	for i := 0; i < 3; i++ {
		if err := m.RunOnce(context.Background()); err != nil {
			t.Fatalf("RunOnce #%d: %v", i+1, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	files, err := filepath.Glob(filepath.Join(localDir, "predictions-*.log"))
	if err != nil {
		t.Fatalf("glob snapshots: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("snapshot files = %d, want 2", len(files))
	}

	lines, err := src.Lines()
	if err != nil || len(lines) != 1 {
		t.Fatalf("live log changed: %v, %v", lines, err)
	}
}

type recordingUploader struct {
	mu    sync.Mutex
	paths []string
}

func (u *recordingUploader) UploadFile(_ context.Context, localPath string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.paths = append(u.paths, localPath)
	return nil
}

func TestRunOnce_Uploads(t *testing.T) {
	t.Parallel()

	up := &recordingUploader{}
	m := newManager(newJournal(t, "x"), Config{LocalDir: t.TempDir(), KeepLast: 5}, up)

	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(up.paths) != 1 {
		t.Fatalf("uploads = %v, want 1", up.paths)
	}
}

type blockingUploader struct {
	started chan struct{}
	once    sync.Once
}

func (u *blockingUploader) UploadFile(ctx context.Context, _ string) error {
	u.once.Do(func() { close(u.started) })
	<-ctx.Done()
	return ctx.Err()
}

func TestStop_CancelsInFlightUpload(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	uploader := &blockingUploader{started: make(chan struct{})}
	m := newManager(newJournal(t, "x"), Config{
		Enabled:  true,
		Interval: 5 * time.Millisecond,
		LocalDir: t.TempDir(),
		KeepLast: 2,
	}, uploader)

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()

	select {
	case <-uploader.started:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for upload to start")
	}

	m.Stop()
	m.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return; upload likely not canceled")
	}
}

func TestRun_ReturnsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	localDir := t.TempDir()
	m := newManager(newJournal(t, "x"), Config{
		Enabled:  true,
		Interval: 5 * time.Millisecond,
		LocalDir: localDir,
		KeepLast: 2,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		files, _ := filepath.Glob(filepath.Join(localDir, "predictions-*.log"))
		if len(files) > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no periodic snapshot written")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
