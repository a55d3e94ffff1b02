package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-registry-api/internal/dto"
	"github.com/noah-isme/course-registry-api/pkg/export"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

// Roster export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type courseDetailProvider interface {
	GetCourseDetails(ctx context.Context, id int64) (*dto.CourseDetail, error)
}

// ExportResult is a rendered roster ready to download.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders the active roster of a course as CSV or PDF.
type ExportService struct {
	courses   courseDetailProvider
	exporters map[string]export.Exporter
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. Nil exporters fall back to
// the defaults from pkg/export.
func NewExportService(courses courseDetailProvider, logger *zap.Logger, csv, pdf export.Exporter) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		courses:   courses,
		exporters: map[string]export.Exporter{ExportFormatCSV: csv, ExportFormatPDF: pdf},
		logger:    logger,
		now:       time.Now,
	}
}

// ExportRoster renders the active roster of a course in the requested format.
func (s *ExportService) ExportRoster(ctx context.Context, courseID int64, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	exporter, ok := s.exporters[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	detail, err := s.courses.GetCourseDetails(ctx, courseID)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]string, 0, len(detail.Students))
	for i, student := range detail.Students {
		rows = append(rows, map[string]string{
			"No":   fmt.Sprintf("%d", i+1),
			"Name": student.Name,
			"SSN":  student.SSN,
		})
	}
	dataset := export.Dataset{
		Title:    fmt.Sprintf("%s (%s)", detail.Name, detail.TemplateID),
		Subtitle: fmt.Sprintf("Semester %s, %d of %d seats taken", detail.Semester, detail.StudentCount, detail.MaxStudents),
		Headers:  []string{"No", "Name", "SSN"},
		Rows:     rows,
	}

	body, err := exporter.Render(dataset)
	if err != nil {
		s.logger.Error("roster export failed", zap.Int64("course_id", courseID), zap.String("format", format), zap.Error(err))
		return nil, internalError(err, "failed to render roster")
	}

	filename := fmt.Sprintf("roster_%s_%s_%d_%s.%s",
		sanitizeFilename(detail.TemplateID),
		sanitizeFilename(detail.Semester),
		detail.ID,
		s.now().UTC().Format("20060102_150405"),
		exporter.Extension(),
	)
	return &ExportResult{Filename: filename, ContentType: exporter.ContentType(), Body: body}, nil
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
