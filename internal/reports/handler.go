package reports

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"medreport-backend/internal/extract"
	"medreport-backend/internal/llm"
	"medreport-backend/internal/shared/server/middleware"
	"medreport-backend/internal/shared/server/respond"
	"medreport-backend/internal/shared/util"
)

const apiKeyHeader = "X-LLM-Api-Key"

// ReportReader lists a session's stored reports, newest first.
type ReportReader interface {
	ListReports(ctx context.Context, sessionID string) ([]MedicalReport, error)
	GetReport(ctx context.Context, sessionID, reportID string) (MedicalReport, error)
}

// Handler serves the report endpoints.
type Handler struct {
	pipeline       *Pipeline
	reader         ReportReader
	defaultAPIKey  string
	maxUploadBytes int64
}

func NewHandler(pipeline *Pipeline, reader ReportReader, defaultAPIKey string, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 20 << 20
	}
	return &Handler{
		pipeline:       pipeline,
		reader:         reader,
		defaultAPIKey:  strings.TrimSpace(defaultAPIKey),
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reports", h.upload)
	rg.GET("/reports", h.list)
	rg.GET("/reports/latest", h.latest)
	rg.GET("/reports/trends", h.trends)
	rg.GET("/reports/export", h.export)
	rg.GET("/reports/:id", h.get)
}

func (h *Handler) upload(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "File exceeds the upload limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "A PDF file is required in the 'file' field", nil)
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "File exceeds the upload limit", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Unable to read uploaded file", nil)
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(file, h.maxUploadBytes+1)); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Unable to read uploaded file", nil)
		return
	}
	if int64(buf.Len()) > h.maxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "File exceeds the upload limit", nil)
		return
	}

	fileName, err := util.SanitizeFileName(fileHeader.Filename)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid file name", nil)
		return
	}

	apiKey := strings.TrimSpace(c.GetHeader(apiKeyHeader))
	if apiKey == "" {
		apiKey = h.defaultAPIKey
	}

	result, err := h.pipeline.Process(c.Request.Context(), Upload{
		SessionID: sessionID,
		FileName:  fileName,
		MimeType:  fileHeader.Header.Get("Content-Type"),
		Data:      buf.Bytes(),
		APIKey:    apiKey,
	})
	if err != nil {
		c.Set("failedStage", Stage(err))
		writeError(c, err)
		return
	}
	c.Set("reportId", result.ID)
	respond.Created(c, result)
}

func (h *Handler) list(c *gin.Context) {
	reports, err := h.reader.ListReports(c.Request.Context(), middleware.SessionIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"reports": reports})
}

func (h *Handler) latest(c *gin.Context) {
	reports, err := h.reader.ListReports(c.Request.Context(), middleware.SessionIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if len(reports) == 0 {
		respond.Error(c, http.StatusNotFound, "not_found", "No reports yet", nil)
		return
	}
	respond.OK(c, reports[0])
}

func (h *Handler) get(c *gin.Context) {
	report, err := h.reader.GetReport(c.Request.Context(), middleware.SessionIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, report)
}

func (h *Handler) trends(c *gin.Context) {
	reports, err := h.reader.ListReports(c.Request.Context(), middleware.SessionIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"trends": BuildTrends(reports)})
}

func (h *Handler) export(c *gin.Context) {
	reports, err := h.reader.ListReports(c.Request.Context(), middleware.SessionIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, reports); err != nil {
		writeError(c, err)
		return
	}
	respond.Attachment(c, WorkbookContentType, "medical-reports.xlsx", buf.Bytes())
}

func writeError(c *gin.Context, err error) {
	var (
		docErr    *extract.DocumentParseError
		preErr    *PreconditionError
		extErr    *llm.ExternalServiceError
		parseErr  *ResponseParseError
		schemaErr *SchemaValidationError
	)
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Report not found", nil)
	case errors.Is(err, ErrUploadInFlight):
		respond.Error(c, http.StatusConflict, "upload_in_progress", "Another upload is still being processed", nil)
	case errors.As(err, &docErr):
		respond.Error(c, http.StatusUnprocessableEntity, "document_parse_error", "Could not read text from the document", gin.H{"reason": docErr.Error()})
	case errors.As(err, &preErr):
		respond.Error(c, http.StatusBadRequest, "precondition_failed", preErr.Reason, gin.H{"field": preErr.Field})
	case errors.As(err, &extErr):
		details := gin.H{}
		if extErr.StatusCode > 0 {
			details["upstream_status"] = extErr.StatusCode
		}
		respond.Error(c, http.StatusBadGateway, "external_service_error", "The language model service request failed", details)
	case errors.As(err, &parseErr):
		respond.Error(c, http.StatusBadGateway, "response_parse_error", "The language model returned an unreadable response", nil)
	case errors.As(err, &schemaErr):
		respond.Error(c, http.StatusBadGateway, "schema_validation_error", "The language model response was incomplete", gin.H{"field": schemaErr.Field, "reason": schemaErr.Reason})
	case errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusGatewayTimeout, "timeout", "Processing took too long", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
	}
}
