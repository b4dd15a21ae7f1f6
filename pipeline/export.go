package pipeline

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05.999999999"

	dataURIPrefix = "data:file/csv;base64,"
)

var (
	ExportHeader = []string{"ds", "yhat", "yhat_lower", "yhat_upper"}

	ErrUnexpectedHeader = errors.New("unexpected forecast csv header")
	ErrMalformedRow     = errors.New("malformed forecast csv row")
)

// Export is the forecast CSV along with its base64 encoding for a data URI download link
type Export struct {
	CSV     []byte `json:"-"`
	Base64  string `json:"base64"`
	DataURI string `json:"data_uri"`
}

// Href returns the data URI as a URL trusted by html/template
func (e *Export) Href() template.URL {
	return template.URL(e.DataURI)
}

// NewExport encodes rows as CSV with a header and no index column. Timestamps are written as
// dates when every row falls on midnight UTC and as date times otherwise, keeping any
// fractional seconds.
func NewExport(rows []ForecastRow) (*Export, error) {
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, rows); err != nil {
		return nil, err
	}
	b64 := base64.StdEncoding.EncodeToString(buf.Bytes())
	return &Export{
		CSV:     buf.Bytes(),
		Base64:  b64,
		DataURI: dataURIPrefix + b64,
	}, nil
}

// EncodeCSV writes rows to w in the export format
func EncodeCSV(w io.Writer, rows []ForecastRow) error {
	layout := dateLayout
	for _, r := range rows {
		if !isMidnightUTC(r.Timestamp) {
			layout = dateTimeLayout
			break
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("unable to write csv header, %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.Timestamp.UTC().Format(layout),
			formatFloat(r.Predicted),
			formatFloat(r.Lower),
			formatFloat(r.Upper),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("unable to write csv row, %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func isMidnightUTC(t time.Time) bool {
	u := t.UTC()
	return u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// DecodeCSV reads rows written by EncodeCSV
func DecodeCSV(r io.Reader) ([]ForecastRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(ExportHeader)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read csv header, %w", err)
	}
	for i, col := range ExportHeader {
		if header[i] != col {
			return nil, fmt.Errorf("got %v, %w", header, ErrUnexpectedHeader)
		}
	}

	var rows []ForecastRow
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read csv row %d, %w", len(rows)+2, err)
		}

		var row ForecastRow
		row.Timestamp, err = time.Parse(dateLayout, record[0])
		if err != nil {
			row.Timestamp, err = time.Parse(dateTimeLayout, record[0])
			if err != nil {
				return nil, fmt.Errorf("row %d timestamp %q, %w", len(rows)+2, record[0], ErrMalformedRow)
			}
		}
		vals := make([]float64, 3)
		for i := range vals {
			vals[i], err = strconv.ParseFloat(record[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d %s %q, %w", len(rows)+2, ExportHeader[i+1], record[i+1], ErrMalformedRow)
			}
		}
		row.Predicted, row.Lower, row.Upper = vals[0], vals[1], vals[2]
		rows = append(rows, row)
	}
	return rows, nil
}
