package cache

import (
	"log/slog"
	"path/filepath"

	"refrigee/internal/config"
)

func MakeCache(cfg *config.Config) (ListCache, error) {
	if cfg.Azure.Enabled() {
		slog.Info("Using Azure Blob Storage for cache", "container", cfg.Azure.Container)
		return NewBlobCache(cfg.Azure.AccountName, cfg.Azure.AccountKey, cfg.Azure.Container)
	}
	dir := filepath.Join(cfg.DataDir, "store")
	slog.Info("Using file cache", "dir", dir)
	return NewFileCache(dir), nil
}
