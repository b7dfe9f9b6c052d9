package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/hyperjump/biblio/internal/models"
)

// sidecarSuffixes are the files SQLite keeps next to a WAL-mode database.
var sidecarSuffixes = []string{"", "-wal", "-shm"}

// DiskUsageBytes returns the size in bytes of the database at dbPath together
// with its WAL and shared-memory files. Missing files contribute 0.
func DiskUsageBytes(dbPath string) (int64, error) {
	if dbPath == "" {
		return 0, nil
	}
	var total int64
	for _, suffix := range sidecarSuffixes {
		info, err := os.Stat(dbPath + suffix)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
	}
	return total, nil
}

// CollectStatus counts documents and pages in s and measures the database at dbPath.
func CollectStatus(ctx context.Context, s Storage, dbPath, driver string) (*models.CorpusStatus, error) {
	docs, err := s.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	pages, err := s.CountPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}
	usage, err := DiskUsageBytes(dbPath)
	if err != nil {
		return nil, fmt.Errorf("disk usage: %w", err)
	}
	return &models.CorpusStatus{
		Documents:      docs,
		Pages:          pages,
		DatabasePath:   dbPath,
		Driver:         driver,
		DiskUsageBytes: usage,
	}, nil
}
