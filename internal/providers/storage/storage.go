// Package storage persists exported artifacts.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lightningshop/jobtrack/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidKey = errors.New("invalid_artifact_key")

// Artifact describes a stored object.
type Artifact struct {
	Key         string `json:"key"`
	Location    string `json:"location"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

type Store interface {
	Put(ctx context.Context, key, contentType string, body []byte) (Artifact, error)
	Driver() string
}

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

// New picks the store configured by EXPORT_DRIVER.
func New(p Params) (Store, error) {
	cfg := p.Config.Export
	switch cfg.Driver {
	case config.ExportDriverS3:
		store, err := NewS3Store(cfg)
		if err != nil {
			return nil, err
		}
		p.Log.Info("artifact store ready", zap.String("driver", cfg.Driver), zap.String("bucket", cfg.S3Bucket))
		return store, nil
	default:
		p.Log.Info("artifact store ready", zap.String("driver", config.ExportDriverLocal), zap.String("dir", cfg.Dir))
		return NewLocalStore(cfg.Dir), nil
	}
}

var Module = fx.Module("storage",
	fx.Provide(New),
)

// LocalStore writes artifacts below a directory.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) *LocalStore {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	return &LocalStore{dir: dir}
}

func (s *LocalStore) Driver() string { return config.ExportDriverLocal }

func (s *LocalStore) Put(ctx context.Context, key, contentType string, body []byte) (Artifact, error) {
	if err := validKey(key); err != nil {
		return Artifact{}, err
	}
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Artifact{}, fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return Artifact{}, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return Artifact{}, fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return Artifact{}, fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return Artifact{}, fmt.Errorf("publish artifact: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return Artifact{
		Key:         key,
		Location:    abs,
		Size:        int64(len(body)),
		ContentType: contentType,
	}, nil
}

// validKey rejects empty keys and keys that climb out of the store root.
func validKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}
