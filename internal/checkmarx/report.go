package checkmarx

// ImprovedScanReportName is the only report name /reports/v2 accepts for scan reports.
const ImprovedScanReportName = "improved-scan-report"

// Report types accepted by /reports/v2.
const (
	ReportTypeCLI   = "cli"
	ReportTypeUI    = "ui"
	ReportTypeEmail = "email"
)

// File formats accepted by /reports/v2.
const (
	FileFormatPDF  = "pdf"
	FileFormatJSON = "json"
	FileFormatCSV  = "csv"
)

// EntityScan is the only entity an improved scan report can reference.
const EntityScan = "scan"

// ReportRequest is the body of POST /reports/v2.
type ReportRequest struct {
	ReportName     string        `json:"reportName"`
	ReportType     string        `json:"reportType"`
	FileFormat     string        `json:"fileFormat"`
	ReportFilename string        `json:"reportFilename"`
	Sections       []string      `json:"sections"`
	Emails         []string      `json:"emails"`
	Entities       []Entity      `json:"entities"`
	Filters        ReportFilters `json:"filters"`
}

// Entity names what a report covers.
type Entity struct {
	Entity string   `json:"entity"`
	IDs    []string `json:"ids"`
}

// ReportFilters narrows the results included in a report.
type ReportFilters struct {
	Scanners   []string `json:"scanners"`
	Severities []string `json:"severities"`
	States     []string `json:"states"`
	Status     []string `json:"status"`
}

// NewImprovedScanReport builds an emailed PDF report request for a single scan.
// An empty filename lets the server pick one.
func NewImprovedScanReport(scanID string, emails []string) *ReportRequest {
	if emails == nil {
		emails = []string{}
	}
	return &ReportRequest{
		ReportName:     ImprovedScanReportName,
		ReportType:     ReportTypeEmail,
		FileFormat:     FileFormatPDF,
		ReportFilename: "",
		Sections: []string{
			"scan-information",
			"results-overview",
			"scan-results",
			"resolved-results",
			"categories",
			"vulnerability-details",
		},
		Emails: emails,
		Entities: []Entity{
			{Entity: EntityScan, IDs: []string{scanID}},
		},
		Filters: ReportFilters{
			Scanners:   []string{"sast", "sca", "iac", "containers", "microengines"},
			Severities: []string{"critical", "high", "medium"},
			States:     []string{"urgent", "confirmed", "to-verify"},
			Status:     []string{"new", "recurrent"},
		},
	}
}
