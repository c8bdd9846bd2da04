package job

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/ksuid"
)

const (
	idPrefix     = "csv_job_"
	idTimeLayout = "20060102_150405"
	// naiveTimeLayout accepts ISO-8601 timestamps written without a zone.
	naiveTimeLayout = "2006-01-02T15:04:05.999999"

	unknownID       = "unknown"
	unknownFilename = "unknown.csv"
)

// Job is one uploaded file awaiting conversion.
type Job struct {
	ID          string
	Filename    string
	CSVData     string
	SubmittedAt time.Time
	Rows        int
}

// wire is the queue payload shape shared by producers and consumers.
type wire struct {
	JobID     string `json:"job_id"`
	Filename  string `json:"filename"`
	CSVData   string `json:"csv_data"`
	Timestamp string `json:"timestamp"`
	Rows      int    `json:"rows"`
}

// New builds a job submitted at now with a fresh id.
func New(filename, csvData string, rows int, now time.Time) *Job {
	return &Job{
		ID:          NewID(now),
		Filename:    filename,
		CSVData:     csvData,
		SubmittedAt: now,
		Rows:        rows,
	}
}

// NewID returns csv_job_<YYYYMMDD_HHMMSS>_<ksuid>. Ids sort by submission
// second and stay unique across producers within the same second.
func NewID(now time.Time) string {
	return idPrefix + now.Format(idTimeLayout) + "_" + ksuid.New().String()
}

// Suffix returns the unique tail of the job id, or the sanitized id when it
// does not follow the NewID layout.
func (j *Job) Suffix() string {
	id := j.DisplayID()
	if i := strings.LastIndexByte(id, '_'); i >= 0 && i < len(id)-1 {
		id = id[i+1:]
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '-'
		}
	}, id)
}

// DisplayID returns the id, or "unknown" when the payload carried none.
func (j *Job) DisplayID() string {
	if j.ID == "" {
		return unknownID
	}
	return j.ID
}

// DisplayFilename returns the filename, or "unknown.csv" when the payload
// carried none.
func (j *Job) DisplayFilename() string {
	if j.Filename == "" {
		return unknownFilename
	}
	return j.Filename
}

// Encode returns the JSON queue payload.
func (j *Job) Encode() ([]byte, error) {
	w := wire{
		JobID:    j.ID,
		Filename: j.Filename,
		CSVData:  j.CSVData,
		Rows:     j.Rows,
	}
	if !j.SubmittedAt.IsZero() {
		w.Timestamp = j.SubmittedAt.Format(time.RFC3339Nano)
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encoding job %s: %w", j.ID, err)
	}
	return data, nil
}

// Decode parses a queue payload. Missing keys leave zero values; an
// unparseable timestamp leaves SubmittedAt zero.
func Decode(data []byte) (*Job, error) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedJob, err)
	}
	return &Job{
		ID:          w.JobID,
		Filename:    w.Filename,
		CSVData:     w.CSVData,
		SubmittedAt: parseTimestamp(w.Timestamp),
		Rows:        w.Rows,
	}, nil
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.ParseInLocation(naiveTimeLayout, s, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
