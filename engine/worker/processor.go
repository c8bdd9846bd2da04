package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/refacekit/leadops/engine/job"
	"github.com/refacekit/leadops/engine/lead"
	"github.com/refacekit/leadops/engine/vicidial"
	"github.com/refacekit/leadops/pkg/logger"
)

// ErrorKind classifies why a job was dropped.
type ErrorKind string

const (
	KindBadPayload   ErrorKind = "bad_payload"
	KindEmptyPayload ErrorKind = "empty_payload"
	KindNoRecords    ErrorKind = "no_records"
	KindWriteFailed  ErrorKind = "write_failed"
)

// ProcessError is a job-level failure. The job is dropped; the loop goes on.
type ProcessError struct {
	Kind  ErrorKind
	JobID string
	Err   error
}

func (e *ProcessError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("job %s: %s", e.JobID, e.Kind)
	}
	return fmt.Sprintf("job %s: %s: %v", e.JobID, e.Kind, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a ProcessError in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var perr *ProcessError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return ""
}

// Outcome describes a successfully exported job.
type Outcome struct {
	Path    string
	Records int
	Stats   vicidial.MapStats
}

// Processor turns a job's cleaned CSV into a dialer list file.
type Processor struct {
	mapper *vicidial.Mapper
	writer *vicidial.Writer
}

func NewProcessor(mapper *vicidial.Mapper, writer *vicidial.Writer) *Processor {
	return &Processor{mapper: mapper, writer: writer}
}

// Process decodes, maps and writes j. Every failure is a *ProcessError.
func (p *Processor) Process(ctx context.Context, j *job.Job) (*Outcome, error) {
	log := logger.FromContext(ctx)
	id := j.DisplayID()
	if strings.TrimSpace(j.CSVData) == "" {
		return nil, &ProcessError{Kind: KindEmptyPayload, JobID: id}
	}
	table, err := lead.ParseTable(strings.NewReader(j.CSVData))
	if err != nil {
		return nil, &ProcessError{Kind: KindBadPayload, JobID: id, Err: err}
	}
	if table.Len() == 0 {
		return nil, &ProcessError{Kind: KindEmptyPayload, JobID: id}
	}

	records, stats := p.mapper.Map(table)
	log.Info("Converted rows to dialer records",
		"input_rows", stats.InputRows,
		"output_rows", stats.OutputRows,
		"phone_column", stats.PhoneColumn,
	)
	if len(records) == 0 {
		return nil, &ProcessError{Kind: KindNoRecords, JobID: id}
	}

	path, err := p.writer.Write(j.Suffix(), records)
	if err != nil {
		return nil, &ProcessError{Kind: KindWriteFailed, JobID: id, Err: err}
	}
	return &Outcome{Path: path, Records: len(records), Stats: stats}, nil
}
