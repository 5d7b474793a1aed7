package archive

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tinytelemetry/inferd/internal/journal"
	"github.com/tinytelemetry/inferd/internal/model"
)

const (
	filePrefix = "predictions-"
	fileSuffix = ".log"
	// Lexical order of the timestamp matches chronological order.
	fileTimeLayout = "20060102-150405.000000"
)

// Manager runs periodic local snapshots of the prediction log and optional remote uploads.
// The live log is only ever copied, never truncated.
type Manager struct {
	source   Snapshotter
	cfg      Config
	uploader Uploader

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewManager initializes the archive manager and takes the startup snapshot.
// Periodic snapshots start with Run. It returns nil when archiving is disabled.
func NewManager(source Snapshotter, cfg Config) (*Manager, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if source == nil {
		return nil, fmt.Errorf("archive: nil snapshotter")
	}
	if strings.TrimSpace(source.Path()) == "" {
		return nil, fmt.Errorf("archive: prediction log path is empty")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = model.DefaultArchiveInterval
	}
	if strings.TrimSpace(cfg.LocalDir) == "" {
		return nil, fmt.Errorf("archive: local-dir is required when archiving is enabled")
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = model.DefaultArchiveKeepLast
	}
	if err := os.MkdirAll(cfg.LocalDir, 0755); err != nil {
		return nil, fmt.Errorf("archive: create local-dir: %w", err)
	}

	var uploader Uploader
	if strings.TrimSpace(cfg.BucketURL) != "" {
		s3u, err := NewS3Uploader(S3Config{
			BucketURL:    cfg.BucketURL,
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			SessionToken: cfg.S3SessionToken,
			UseSSL:       cfg.S3UseSSL,
			ContentType:  "text/plain",
		})
		if err != nil {
			return nil, fmt.Errorf("archive: init s3 uploader: %w", err)
		}
		uploader = s3u
	}

	m := newManager(source, cfg, uploader)

	// Startup snapshot captures whatever survived the previous run.
	if err := m.RunOnce(m.ctx); err != nil {
		log.Printf("archive: startup snapshot failed: %v", err)
	}
	return m, nil
}

func newManager(source Snapshotter, cfg Config, uploader Uploader) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		source:   source,
		cfg:      cfg,
		uploader: uploader,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Run snapshots on every interval tick until ctx is canceled or Stop is called.
// A failed snapshot is logged and retried on the next tick.
func (m *Manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(m.ctx, cancel)
	defer stop()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.RunOnce(ctx); err != nil {
				log.Printf("archive: periodic snapshot failed: %v", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// RunOnce creates one local snapshot, uploads it when configured, and prunes old local copies.
// A prediction log that was never written is skipped without error.
func (m *Manager) RunOnce(ctx context.Context) error {
	fileName := filePrefix + time.Now().UTC().Format(fileTimeLayout) + fileSuffix
	localPath := filepath.Join(m.cfg.LocalDir, fileName)

	if err := m.source.SnapshotTo(localPath); err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			log.Printf("archive: %s does not exist yet, nothing to snapshot", m.source.Path())
			return nil
		}
		return fmt.Errorf("snapshot: %w", err)
	}
	log.Printf("archive: created snapshot %s", localPath)

	if m.uploader != nil {
		if err := m.uploader.UploadFile(ctx, localPath); err != nil {
			return fmt.Errorf("upload: %w", err)
		}
		log.Printf("archive: uploaded snapshot %s", filepath.Base(localPath))
	}

	if err := pruneLocalSnapshots(m.cfg.LocalDir, m.cfg.KeepLast); err != nil {
		return fmt.Errorf("prune local snapshots: %w", err)
	}
	return nil
}

// Stop ends Run and cancels an in-flight upload.
func (m *Manager) Stop() {
	m.once.Do(m.cancel)
}

func pruneLocalSnapshots(localDir string, keepLast int) error {
	if keepLast <= 0 {
		return nil
	}

	matches, err := filepath.Glob(filepath.Join(localDir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return err
	}
	if len(matches) <= keepLast {
		return nil
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i] > matches[j]
	})

	for _, oldPath := range matches[keepLast:] {
		if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
