package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/defenseunicorns/uds-cxone-report/internal/checkmarx"
	"github.com/defenseunicorns/uds-cxone-report/internal/data/db"
	"github.com/defenseunicorns/uds-cxone-report/internal/data/model"
	"github.com/defenseunicorns/uds-cxone-report/internal/sql"
)

// historyRecorder stores every submitted report request.
type historyRecorder struct {
	db *gorm.DB
}

// openHistory connects to and migrates the history database. It returns nil when history is disabled.
func openHistory(ctx context.Context, opts sql.Options) (*historyRecorder, error) {
	connector, err := sql.CreateDBConnector(opts)
	if err != nil {
		return nil, fmt.Errorf("error creating history database connector: %w", err)
	}
	if connector == nil {
		return nil, nil
	}
	database, err := connector.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("error connecting to history database: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		return nil, fmt.Errorf("error migrating history database: %w", err)
	}
	return &historyRecorder{db: database}, nil
}

// Record stores the request together with its outcome.
func (h *historyRecorder) Record(report *checkmarx.ReportRequest, response map[string]interface{}, reportErr error) error {
	raw, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("error encoding report response: %w", err)
	}

	var scanID string
	if len(report.Entities) > 0 && len(report.Entities[0].IDs) > 0 {
		scanID = report.Entities[0].IDs[0]
	}
	request := &model.ReportRequest{
		ScanID:     scanID,
		ReportName: report.ReportName,
		ReportType: report.ReportType,
		FileFormat: report.FileFormat,
		Emails:     strings.Join(report.Emails, ","),
		Response:   raw,
		Succeeded:  reportErr == nil,
	}
	if reportErr != nil {
		request.Error = reportErr.Error()
	}
	if err := db.InsertReportRequest(h.db, request); err != nil {
		return fmt.Errorf("error inserting report request: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (h *historyRecorder) Close() {
	if sqlDB, err := h.db.DB(); err == nil {
		_ = sqlDB.Close() //nolint:errcheck
	}
}
