package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/face-attendance-api/internal/models"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
	"github.com/noah-isme/face-attendance-api/pkg/export"
	"github.com/noah-isme/face-attendance-api/pkg/storage"
)

type reportAttendanceRepository interface {
	RecordsForIdentity(ctx context.Context, identityID int64) ([]models.AttendanceRecord, error)
	Summaries(ctx context.Context) ([]models.AttendanceSummary, error)
}

type reportIdentityReader interface {
	FindByID(ctx context.Context, id int64) (*models.Identity, error)
}

// Report export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

// ReportService builds per-identity attendance reports and renders
// downloadable artifacts.
type ReportService struct {
	attendance reportAttendanceRepository
	identities reportIdentityReader
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	archive    *storage.LocalStorage
	logger     *zap.Logger
	now        func() time.Time
}

// NewReportService constructs the report service. The archive store is
// optional; when set every rendered export is also written there.
func NewReportService(attendance reportAttendanceRepository, identities reportIdentityReader, archive *storage.LocalStorage, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		attendance: attendance,
		identities: identities,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		archive:    archive,
		logger:     logger,
		now:        time.Now,
	}
}

// Summaries lists every identity with its total present days.
func (s *ReportService) Summaries(ctx context.Context) ([]models.AttendanceSummary, error) {
	rows, err := s.attendance.Summaries(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate report")
	}
	return rows, nil
}

// Records returns one identity's history, newest first.
func (s *ReportService) Records(ctx context.Context, identityID int64) ([]models.AttendanceRecord, error) {
	if _, err := s.identity(ctx, identityID); err != nil {
		return nil, err
	}
	rows, err := s.attendance.RecordsForIdentity(ctx, identityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list records")
	}
	return rows, nil
}

// ReportDetail bundles one identity's report payload.
type ReportDetail struct {
	Identity *models.Identity          `json:"identity"`
	Records  []models.AttendanceRecord `json:"records"`
	Stats    models.ReportStats        `json:"stats"`
}

// Detail returns one identity's records together with computed statistics.
func (s *ReportService) Detail(ctx context.Context, identityID int64) (*ReportDetail, error) {
	ident, err := s.identity(ctx, identityID)
	if err != nil {
		return nil, err
	}
	records, err := s.attendance.RecordsForIdentity(ctx, identityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list records")
	}
	return &ReportDetail{
		Identity: ident,
		Records:  records,
		Stats:    s.Stats(ident, records),
	}, nil
}

// Stats computes summary statistics: total present days and attendance
// percentage since registration. Days since registration is floored at one
// and the percentage capped at 100.
func (s *ReportService) Stats(ident *models.Identity, records []models.AttendanceRecord) models.ReportStats {
	totalPresent := len(records)

	daysSince := int(s.now().Sub(ident.RegisteredAt).Hours() / 24)
	if daysSince < 1 {
		daysSince = 1
	}
	percentage := float64(totalPresent) / float64(daysSince) * 100
	if percentage > 100 {
		percentage = 100
	}

	return models.ReportStats{
		TotalPresent: totalPresent,
		Percentage:   math.Round(percentage*10) / 10,
	}
}

// ExportArtifact is one rendered report download.
type ExportArtifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Export renders one identity's report in the requested format.
func (s *ReportService) Export(ctx context.Context, identityID int64, format string) (*ExportArtifact, error) {
	ident, err := s.identity(ctx, identityID)
	if err != nil {
		return nil, err
	}
	records, err := s.attendance.RecordsForIdentity(ctx, identityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list records")
	}

	dataset := s.dataset(records)
	stats := s.Stats(ident, records)
	safeName := sanitizeFilename(ident.Name)

	switch format {
	case FormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return s.artifact(fmt.Sprintf("Report_%s.csv", safeName), "text/csv", data), nil
	case FormatPDF:
		summary := []export.SummaryLine{
			{Label: "Name", Value: ident.Name},
			{Label: "Role", Value: ident.Role},
			{Label: "Total Present Days", Value: fmt.Sprintf("%d", stats.TotalPresent)},
			{Label: "Attendance", Value: fmt.Sprintf("%.1f%%", stats.Percentage)},
			{Label: "Generated", Value: s.now().Format(models.DateLayout)},
		}
		data, err := s.pdf.Render(dataset, "Attendance Report", summary)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return s.artifact(fmt.Sprintf("Report_%s.pdf", safeName), "application/pdf", data), nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// artifact keeps a best-effort archive copy before handing the bytes back.
func (s *ReportService) artifact(filename, contentType string, data []byte) *ExportArtifact {
	if s.archive != nil {
		if _, err := s.archive.Save(filename, data); err != nil {
			s.logger.Sugar().Warnw("failed to archive report", "filename", filename, "error", err)
		}
	}
	return &ExportArtifact{Filename: filename, ContentType: contentType, Data: data}
}

func (s *ReportService) identity(ctx context.Context, identityID int64) (*models.Identity, error) {
	ident, err := s.identities.FindByID(ctx, identityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch identity")
	}
	if ident == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "identity not found")
	}
	return ident, nil
}

func (s *ReportService) dataset(records []models.AttendanceRecord) export.Dataset {
	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		checkOut := "-"
		if rec.CheckOut != nil {
			checkOut = rec.CheckOut.Format("15:04:05")
		}
		rows = append(rows, map[string]string{
			"Date":      rec.Date,
			"Check-in":  rec.CheckIn.Format("15:04:05"),
			"Check-out": checkOut,
		})
	}
	return export.Dataset{
		Headers: []string{"Date", "Check-in", "Check-out"},
		Rows:    rows,
	}
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "identity"
	}
	return b.String()
}
