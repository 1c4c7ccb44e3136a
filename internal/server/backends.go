package server

import (
	"github.com/8848connie/drawing-room/internal/config"
	"github.com/8848connie/drawing-room/internal/photos"
	"github.com/8848connie/drawing-room/internal/storage"
)

// Backends constructs the external collaborators for one invocation.
// Constructors must not perform network I/O.
type Backends interface {
	Store(cfg config.Config) (photos.Store, error)
	Media(cfg config.Config) (storage.MediaStore, error)
}

// DefaultBackends picks implementations from the configured drivers.
type DefaultBackends struct{}

func (DefaultBackends) Store(cfg config.Config) (photos.Store, error) {
	if cfg.DBDriver == config.DriverSQLite {
		return photos.NewSQLiteStore(cfg.SQLitePath)
	}
	return photos.NewPostgresStore(cfg.DatabaseURL)
}

func (DefaultBackends) Media(cfg config.Config) (storage.MediaStore, error) {
	return storage.New(cfg.Storage)
}
