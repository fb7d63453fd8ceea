package archive

import (
	"context"
	"time"
)

// Package archive provides the optional S3-compatible store that keeps a
// copy of successfully converted artifacts. Archiving is strictly
// best-effort: the gateway's responses never depend on it.

// Artifact describes an archived conversion output.
type Artifact struct {
	Key         string
	Size        int64
	ContentType string
	StoredAt    time.Time
}

// Archiver stores conversion artifacts in an object store.
type Archiver interface {
	// Store writes the artifact bytes under key and returns its info.
	Store(ctx context.Context, key string, data []byte, contentType string) (Artifact, error)
	// PresignGet returns a time-limited download URL for an artifact.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	// Enabled reports whether artifacts are actually persisted.
	Enabled() bool
}

// disabled is the no-op archiver used when no object store is configured.
type disabled struct{}

// Disabled returns an Archiver that keeps nothing.
func Disabled() Archiver { return disabled{} }

func (disabled) Store(_ context.Context, key string, data []byte, contentType string) (Artifact, error) {
	return Artifact{Key: key, Size: int64(len(data)), ContentType: contentType, StoredAt: time.Now().UTC()}, nil
}

func (disabled) PresignGet(context.Context, string, time.Duration) (string, error) {
	return "", nil
}

func (disabled) Enabled() bool { return false }
