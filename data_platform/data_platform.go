// Package dataplatform streams persisted readings and alerts up to Supabase,
// where the dashboard reads them. Rows stay in the local SQLite store (the
// baseline queries need them); they are only marked as uploaded.
package dataplatform

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/cepro/campuswatch/repository"
	"github.com/cepro/campuswatch/supabase"
)

// uploadChunkLimit defines how many rows we upload in one supabase HTTP request
const uploadChunkLimit = 100

// DataPlatform periodically uploads pending rows from the repository to Supabase.
type DataPlatform struct {
	repository *repository.Repository
	supaClient *supabase.Client
	logger     *slog.Logger
}

func New(supaClient *supabase.Client, repo *repository.Repository) *DataPlatform {
	return &DataPlatform{
		repository: repo,
		supaClient: supaClient,
		logger:     slog.Default().With("component", "data_platform"),
	}
}

// Run loops forever, attempting an upload on every tick. Exits when the
// context is cancelled.
func (d *DataPlatform) Run(ctx context.Context, uploadInterval time.Duration) {

	uploadTicker := time.NewTicker(uploadInterval)
	defer uploadTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-uploadTicker.C:
			d.attemptUpload()
		}
	}
}

// attemptUpload pushes pending rows to Supabase: first rows that have never
// been tried, then rows that have already failed at least once.
func (d *DataPlatform) attemptUpload() {

	for _, fresh := range []bool{true, false} {
		readings, err := d.repository.GetPendingReadings(uploadChunkLimit, fresh)
		if err != nil {
			d.logger.Error("failed to query pending readings", "fresh", fresh, "error", err)
		} else if len(readings) > 0 {
			if err := d.handleRows(convertReadings(readings), "readings", readings); err != nil {
				d.logger.Error("failed to upload readings", "fresh", fresh, "error", err)
			}
		}

		alerts, err := d.repository.GetPendingAlerts(uploadChunkLimit, fresh)
		if err != nil {
			d.logger.Error("failed to query pending alerts", "fresh", fresh, "error", err)
		} else if len(alerts) > 0 {
			if err := d.handleRows(convertAlerts(alerts), "alerts", alerts); err != nil {
				d.logger.Error("failed to upload alerts", "fresh", fresh, "error", err)
			}
		}
	}
}

// handleRows attempts to upload the given rows. On success they are marked as
// uploaded; on failure the attempt count is incremented so they are retried in
// a later, lower-priority round.
func (d *DataPlatform) handleRows(converted interface{}, tableName string, rows interface{}) error {

	uploadErr := d.supaClient.InsertRows(tableName, converted)
	if uploadErr != nil {
		uploadErr = fmt.Errorf("upload failed: %w", uploadErr)
		if errInc := d.repository.IncrementUploadAttemptCount(rows); errInc != nil {
			return fmt.Errorf("%w: increment upload attempt count: %w", uploadErr, errInc)
		}
		return uploadErr
	}

	if err := d.repository.MarkUploaded(rows); err != nil {
		return fmt.Errorf("mark rows uploaded: %w", err)
	}

	d.logger.Info("Uploaded rows", "db_table", tableName, "db_records", reflect.ValueOf(rows).Len())
	return nil
}
