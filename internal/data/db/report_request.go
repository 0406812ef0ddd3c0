package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/defenseunicorns/uds-cxone-report/internal/data/model"
)

// Migrate creates or updates the report request history table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.ReportRequest{}); err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}
	return nil
}

// InsertReportRequest inserts a new report request into the database.
func InsertReportRequest(db *gorm.DB, request *model.ReportRequest) error {
	return db.Create(request).Error
}

// GetReportRequest retrieves a report request by its ID from the database.
func GetReportRequest(db *gorm.DB, id uint) (*model.ReportRequest, error) {
	var request model.ReportRequest
	if err := db.First(&request, id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// ListReportRequestsByScan returns every request made for scanID, newest first.
func ListReportRequestsByScan(db *gorm.DB, scanID string) ([]model.ReportRequest, error) {
	var requests []model.ReportRequest
	err := db.Where("scan_id = ?", scanID).Order("id desc").Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}
