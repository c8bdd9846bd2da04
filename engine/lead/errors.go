package lead

import "errors"

var (
	ErrEmptyInput     = errors.New("empty input")
	ErrNoValidRecords = errors.New("no valid records")
	ErrMalformedCSV   = errors.New("malformed csv")
)
