package extract

import (
	"fmt"
	"strings"

	perr "impfmon/internal/platform/errors"
	ptime "impfmon/internal/platform/time"
)

// SignatureNotFoundError means no table in the document carries the expected header
type SignatureNotFoundError struct {
	Format   string
	Expected []string
	Tables   int
}

func (e *SignatureNotFoundError) Error() string {
	return fmt.Sprintf("%s: no table matches the expected header (searched %d tables): %s",
		e.Format, e.Tables, strings.Join(e.Expected, "; "))
}

// Code classifies the error
func (e *SignatureNotFoundError) Code() perr.ErrorCode { return perr.ErrorCodeExtraction }

// UnknownRegionError is a region label absent from the registry
type UnknownRegionError struct {
	Label      string
	Row        int
	Suggestion string
}

func (e *UnknownRegionError) Error() string {
	msg := fmt.Sprintf("row %d: unknown region %q", e.Row, e.Label)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

// Code classifies the error
func (e *UnknownRegionError) Code() perr.ErrorCode { return perr.ErrorCodeExtraction }

// MalformedValueError is a cell that should hold a number or date but does not
type MalformedValueError struct {
	Row    int
	Col    int
	Column string
	Raw    string
	Reason string
}

func (e *MalformedValueError) Error() string {
	return fmt.Sprintf("row %d col %d (%s): %s %q", e.Row, e.Col, e.Column, e.Reason, e.Raw)
}

// Code classifies the error
func (e *MalformedValueError) Code() perr.ErrorCode { return perr.ErrorCodeExtraction }

// DuplicateRecordError is a second row for the same date and region
type DuplicateRecordError struct {
	Region   string
	Date     ptime.Day
	Row      int
	FirstRow int
}

func (e *DuplicateRecordError) Error() string {
	return fmt.Sprintf("row %d: duplicate record %s %s (first seen in row %d)", e.Row, e.Date, e.Region, e.FirstRow)
}

// Code classifies the error
func (e *DuplicateRecordError) Code() perr.ErrorCode { return perr.ErrorCodeExtraction }

func quoteAny(labels []string) string {
	q := make([]string, len(labels))
	for i, l := range labels {
		q[i] = fmt.Sprintf("%q", l)
	}
	return strings.Join(q, " | ")
}
