package model

import (
	"encoding/json"
	"time"
)

// ReportRequest records one submission to /reports/v2.
type ReportRequest struct {
	CreatedAt  time.Time       `json:"CreatedAt" gorm:"autoCreateTime"`
	ScanID     string          `json:"ScanID" gorm:"not null;index:idx_report_requests_scan_id"`
	ReportName string          `json:"ReportName" gorm:"not null"`
	ReportType string          `json:"ReportType"`
	FileFormat string          `json:"FileFormat"`
	Emails     string          `json:"Emails"`
	Error      string          `json:"Error"`
	Response   json.RawMessage `json:"Response" gorm:"type:jsonb"`
	ID         uint            `json:"ID" gorm:"primaryKey;autoIncrement"`
	Succeeded  bool            `json:"Succeeded"`
}
