package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/refacekit/leadops/engine/infra/server/appstate"
	"github.com/refacekit/leadops/engine/infra/server/router"
	"github.com/refacekit/leadops/engine/job"
	"github.com/refacekit/leadops/engine/lead"
	"github.com/refacekit/leadops/pkg/logger"
)

const (
	csvFormField = "file"
	csvExtension = ".csv"

	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// CreateIngestCSVHandler accepts a multipart CSV upload, cleans it and
// queues the result for conversion.
func CreateIngestCSVHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		state, err := appstate.GetState(ctx)
		if err != nil {
			router.RespondProblemWithCode(c, http.StatusInternalServerError, router.ErrInternalCode, err.Error())
			return
		}
		metrics := state.Metrics()
		reject := func(status int, code, detail string) {
			outcome := outcomeRejected
			if status >= http.StatusInternalServerError {
				outcome = outcomeFailed
			}
			metrics.RecordIngest(ctx, outcome)
			router.RespondProblemWithCode(c, status, code, detail)
		}

		upload, err := c.FormFile(csvFormField)
		if err != nil {
			if isBodyTooLarge(err) {
				reject(http.StatusRequestEntityTooLarge, router.ErrPayloadTooLargeCode, "upload exceeds the size limit")
				return
			}
			reject(http.StatusBadRequest, router.IngestErrMissingFileCode,
				fmt.Sprintf("multipart field %q with a CSV file is required", csvFormField))
			return
		}
		if !strings.EqualFold(filepath.Ext(upload.Filename), csvExtension) {
			reject(http.StatusBadRequest, router.IngestErrInvalidTypeCode, "File must be a CSV")
			return
		}
		data, err := readUpload(upload)
		if err != nil {
			reject(http.StatusInternalServerError, router.ErrInternalCode, "Internal server error processing CSV")
			logger.FromContext(ctx).Error("Failed to read upload", "filename", upload.Filename, "error", err)
			return
		}
		if len(bytes.TrimSpace(data)) == 0 {
			reject(http.StatusBadRequest, router.IngestErrEmptyFileCode, "CSV file is empty")
			return
		}
		if !isTextUpload(data) {
			reject(http.StatusBadRequest, router.IngestErrInvalidTypeCode, "File content is not UTF-8 text")
			return
		}

		result, err := cleanUpload(data)
		if err != nil {
			status, code := classifyCleanError(err)
			reject(status, code, cleanErrorDetail(err))
			return
		}
		log := logger.FromContext(ctx).With("filename", upload.Filename)
		log.Info("Cleaned CSV upload",
			"input_rows", result.Stats.InputRows,
			"invalid_phone", result.Stats.InvalidPhone,
			"duplicates", result.Stats.Duplicates,
			"output_rows", result.Stats.OutputRows,
			"columns", result.Table.Columns(),
		)
		if len(result.CollapsedColumns) > 0 {
			log.Warn("Multiple input columns mapped to the same field; kept the first",
				"fields", result.CollapsedColumns)
		}
		metrics.RecordPipeline(ctx, result.Stats)

		csvData, err := result.Table.EncodeCSV()
		if err != nil {
			log.Error("Failed to serialize cleaned CSV", "error", err)
			reject(http.StatusInternalServerError, router.ErrInternalCode, "Internal server error processing CSV")
			return
		}
		j := job.New(upload.Filename, csvData, result.Table.Len(), time.Now())
		if err := state.Queue.Enqueue(ctx, j); err != nil {
			log.Error("Failed to queue job", "job_id", j.ID, "error", err)
			if errors.Is(err, job.ErrUnavailable) {
				reject(http.StatusServiceUnavailable, router.IngestErrQueueDownCode, "Job queue is unavailable")
				return
			}
			reject(http.StatusInternalServerError, router.ErrInternalCode, "Internal server error processing CSV")
			return
		}
		metrics.RecordJobEnqueued(ctx)
		metrics.RecordIngest(ctx, outcomeAccepted)
		log.Info("Queued job", "job_id", j.ID, "rows", j.Rows)

		c.JSON(http.StatusOK, gin.H{
			"status":         "success",
			"message":        "CSV processed and queued successfully",
			"rows_processed": j.Rows,
			"job_id":         j.ID,
		})
	}
}

func readUpload(upload *multipart.FileHeader) ([]byte, error) {
	f, err := upload.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}

// isTextUpload accepts UTF-8 content that sniffs as some text/plain type.
// CSV detection is heuristic, so any text subtype passes.
func isTextUpload(data []byte) bool {
	if !utf8.Valid(data) {
		return false
	}
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func cleanUpload(data []byte) (*lead.Result, error) {
	raw, err := lead.ReadCSV(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return lead.Clean(raw)
}

func classifyCleanError(err error) (int, string) {
	switch {
	case errors.Is(err, lead.ErrEmptyInput):
		return http.StatusBadRequest, router.IngestErrEmptyFileCode
	case errors.Is(err, lead.ErrNoValidRecords):
		return http.StatusBadRequest, router.IngestErrNoValidRecordsCode
	case errors.Is(err, lead.ErrMalformedCSV):
		return http.StatusBadRequest, router.IngestErrMalformedCode
	default:
		return http.StatusInternalServerError, router.ErrInternalCode
	}
}

func cleanErrorDetail(err error) string {
	switch {
	case errors.Is(err, lead.ErrEmptyInput):
		return "CSV file is empty"
	case errors.Is(err, lead.ErrNoValidRecords):
		return "No valid records found after processing"
	case errors.Is(err, lead.ErrMalformedCSV):
		return err.Error()
	default:
		return "Internal server error processing CSV"
	}
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
