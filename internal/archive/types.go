package archive

import (
	"context"
	"time"
)

// Config controls periodic snapshots of the prediction log.
type Config struct {
	Enabled   bool
	Interval  time.Duration
	LocalDir  string
	KeepLast  int
	BucketURL string

	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3SessionToken string
	S3UseSSL       bool
}

// Snapshotter is the minimal log snapshot contract used by Manager.
type Snapshotter interface {
	Path() string
	SnapshotTo(dstPath string) error
}

// Uploader uploads one archive artifact.
type Uploader interface {
	UploadFile(ctx context.Context, localPath string) error
}
