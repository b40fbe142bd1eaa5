// Package storage holds object-storage backends for avatar uploads.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pandoras-vault/apiserver/config"
)

// ObjectStorage defines the operations avatar handling needs. Avatars are
// served via a public base URL, so there is no read path here.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// AvatarStore wraps a backend and knows how uploaded avatars become URLs.
type AvatarStore struct {
	backend       ObjectStorage
	publicBaseURL string
}

// New selects and constructs an avatar store from config. An empty driver
// returns nil: avatar upload is optional.
func New(ctx context.Context, cfg config.StorageConfig) (*AvatarStore, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch cfg.Driver {
	case "":
		return nil, nil
	case "minio":
		backend, err = NewMinioClient(cfg.Minio)
	case "gcs":
		backend, err = NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return &AvatarStore{backend: backend, publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/")}, nil
}

// PutAvatar uploads the avatar for the given user and returns its public URL.
func (s *AvatarStore) PutAvatar(ctx context.Context, userID string, r io.Reader, size int64, contentType string) (string, error) {
	key := "avatars/" + userID
	if err := s.backend.Put(ctx, key, r, size, contentType); err != nil {
		return "", err
	}
	return s.URLFor(key), nil
}

// DeleteAvatar removes a previously uploaded avatar.
func (s *AvatarStore) DeleteAvatar(ctx context.Context, userID string) error {
	return s.backend.Delete(ctx, "avatars/"+userID)
}

// URLFor maps an object key to its public URL.
func (s *AvatarStore) URLFor(key string) string {
	if s.publicBaseURL == "" {
		return fmt.Sprintf("/%s/%s", s.backend.Bucket(), key)
	}
	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.backend.Bucket(), key)
}
