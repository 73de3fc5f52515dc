package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockcast/internal/service"
)

// IngestService downloads sales exports and runs them through the dataset
// pipeline into the observation store. One bad file stops the sync; partial
// files never reach the database because ingestion is transactional per file.
type IngestService struct {
	driveService *Service
	forecasts    *service.ForecastService
	downloadDir  string
}

func NewIngestService(driveService *Service, forecasts *service.ForecastService, downloadDir string) *IngestService {
	return &IngestService{
		driveService: driveService,
		forecasts:    forecasts,
		downloadDir:  downloadDir,
	}
}

// IngestFile downloads one Drive file and ingests it.
func (s *IngestService) IngestFile(ctx context.Context, fileID, name string) (int, error) {
	path, err := s.download(ctx, fileID, name)
	if err != nil {
		return 0, err
	}
	defer os.Remove(path)

	return s.forecasts.IngestCSV(ctx, path)
}

// SyncFolder downloads every CSV export in a folder and ingests each one.
// Returns the number of files processed and total rows stored.
func (s *IngestService) SyncFolder(ctx context.Context, folderID string) (files, rows int, err error) {
	exports, err := s.driveService.ListCSVFiles(ctx, folderID)
	if err != nil {
		return 0, 0, err
	}

	for _, f := range exports {
		select {
		case <-ctx.Done():
			return files, rows, ctx.Err()
		default:
		}

		n, err := s.IngestFile(ctx, f.ID, f.Name)
		if err != nil {
			return files, rows, fmt.Errorf("ingest %s: %w", f.Name, err)
		}

		log.Info().Str("file", f.Name).Int("rows", n).Msg("drive export ingested")
		files++
		rows += n
	}

	return files, rows, nil
}

func (s *IngestService) download(ctx context.Context, fileID, name string) (string, error) {
	if err := os.MkdirAll(s.downloadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download dir: %w", err)
	}

	path := filepath.Join(s.downloadDir, filepath.Base(name))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create local file %s: %w", path, err)
	}

	if err := s.driveService.DownloadFile(ctx, fileID, out); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to download %s: %w", name, err)
	}
	return path, out.Close()
}
