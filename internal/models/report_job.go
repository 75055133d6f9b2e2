package models

import "time"

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportStatus captures background job lifecycle states.
type ReportStatus string

const (
	ReportStatusQueued   ReportStatus = "QUEUED"
	ReportStatusFinished ReportStatus = "FINISHED"
	ReportStatusFailed   ReportStatus = "FAILED"
)

// ReportJob tracks one asynchronous approvals export. The rendered document is
// held in memory on the job itself; there is no file storage.
type ReportJob struct {
	ID           string         `json:"id"`
	Format       ReportFormat   `json:"format"`
	Filter       ApprovalFilter `json:"-"`
	Status       ReportStatus   `json:"status"`
	RequestedBy  Identity       `json:"requested_by"`
	CreatedAt    time.Time      `json:"created_at"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Result       []byte         `json:"-"`
}
