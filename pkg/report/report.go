// Package report exports scan records as CSV.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/agroscan/agroscan/pkg/storage"
	"github.com/gocarina/gocsv"
)

const (
	DateLayout = "2006-01-02 15:04:05"
	missing    = "N/A"
)

// Row is one exported record. Column order follows field order.
type Row struct {
	Date       string `csv:"Date"`
	Diagnosis  string `csv:"Diagnosis"`
	Confidence string `csv:"Confidence"`
	Status     string `csv:"Status"`
	NDVI       string `csv:"NDVI"`
	Advice     string `csv:"Advice"`
}

func orMissing(s string) string {
	if strings.TrimSpace(s) == "" {
		return missing
	}
	return s
}

func RowFor(r storage.ScanRecord) Row {
	row := Row{
		Date:       missing,
		Diagnosis:  orMissing(r.Result),
		Confidence: strconv.Itoa(r.Confidence) + "%",
		Status:     orMissing(r.Status),
		NDVI:       missing,
		Advice:     orMissing(r.Advice),
	}
	if !r.Timestamp.IsZero() {
		row.Date = r.Timestamp.UTC().Format(DateLayout)
	}
	if r.NDVI != nil {
		row.NDVI = strconv.FormatFloat(*r.NDVI, 'f', -1, 64)
	}
	return row
}

// WriteCSV writes a header and one row per record. Every field is quoted.
func WriteCSV(w io.Writer, records []storage.ScanRecord) error {
	rows := make([]*Row, 0, len(records))
	for _, r := range records {
		row := RowFor(r)
		rows = append(rows, &row)
	}
	qw := newQuotingWriter(w)
	if err := gocsv.MarshalCSV(&rows, qw); err != nil {
		return err
	}
	return qw.Error()
}

// FileName is the export name for a given moment.
func FileName(at time.Time) string {
	return "maize_reports_" + at.UTC().Format("20060102T150405Z") + ".csv"
}

// ExportFile writes records into a new CSV file under dir and returns its path.
func ExportFile(dir string, records []storage.ScanRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(time.Now()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, f.Close()
}

// quotingWriter satisfies gocsv.CSVWriter. Unlike encoding/csv it quotes every field,
// which is the format the mobile app exported.
type quotingWriter struct {
	w   *bufio.Writer
	err error
}

func newQuotingWriter(w io.Writer) *quotingWriter {
	return &quotingWriter{w: bufio.NewWriter(w)}
}

func (q *quotingWriter) Write(record []string) error {
	if q.err != nil {
		return q.err
	}
	for i, field := range record {
		if i > 0 {
			q.w.WriteByte(',')
		}
		q.w.WriteByte('"')
		q.w.WriteString(strings.ReplaceAll(field, `"`, `""`))
		q.w.WriteByte('"')
	}
	_, q.err = q.w.WriteString("\n")
	return q.err
}

func (q *quotingWriter) Flush() {
	if err := q.w.Flush(); err != nil && q.err == nil {
		q.err = err
	}
}

func (q *quotingWriter) Error() error {
	return q.err
}
