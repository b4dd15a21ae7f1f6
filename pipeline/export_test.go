package pipeline

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExport(t *testing.T) {
	testData := map[string]struct {
		rows     []ForecastRow
		expected string
	}{
		"dates": {
			rows: []ForecastRow{
				{Timestamp: date(2020, 1, 3), Predicted: 14, Lower: 13.5, Upper: 14.5},
				{Timestamp: date(2020, 1, 4), Predicted: 16.25, Lower: 15, Upper: 17.5},
			},
			expected: "ds,yhat,yhat_lower,yhat_upper\n2020-01-03,14,13.5,14.5\n2020-01-04,16.25,15,17.5\n",
		},
		"date times": {
			rows: []ForecastRow{
				{Timestamp: date(2020, 1, 3), Predicted: 1, Lower: 0, Upper: 2},
				{Timestamp: time.Date(2020, 1, 3, 1, 0, 0, 0, time.UTC), Predicted: 0.1, Lower: -0.2, Upper: 0.4},
			},
			expected: "ds,yhat,yhat_lower,yhat_upper\n2020-01-03 00:00:00,1,0,2\n2020-01-03 01:00:00,0.1,-0.2,0.4\n",
		},
		"no rows": {
			expected: "ds,yhat,yhat_lower,yhat_upper\n",
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			export, err := NewExport(td.rows)
			require.Nil(t, err)
			assert.Equal(t, td.expected, string(export.CSV))

			decoded, err := base64.StdEncoding.DecodeString(export.Base64)
			require.Nil(t, err)
			assert.Equal(t, td.expected, string(decoded))
			assert.True(t, strings.HasPrefix(export.DataURI, "data:file/csv;base64,"))
			assert.Equal(t, export.DataURI, string(export.Href()))
		})
	}
}

func TestExportRoundTrip(t *testing.T) {
	testData := map[string]struct {
		rows     []ForecastRow
		firstDS  string
		secondDS string
	}{
		"date times": {
			rows: []ForecastRow{
				{Timestamp: time.Date(2021, 3, 1, 6, 30, 0, 0, time.UTC), Predicted: 1.0 / 3.0, Lower: -0.123456789, Upper: 1e-9},
				{Timestamp: time.Date(2021, 3, 1, 7, 30, 0, 0, time.UTC), Predicted: 12345.678, Lower: 12000, Upper: 13000.5},
			},
			firstDS:  "2021-03-01 06:30:00",
			secondDS: "2021-03-01 07:30:00",
		},
		"sub second": {
			rows: []ForecastRow{
				{Timestamp: time.Date(2020, 1, 1, 0, 0, 2, 0, time.UTC), Predicted: 1, Lower: 0, Upper: 2},
				{Timestamp: time.Date(2020, 1, 1, 0, 0, 2, 500_000_000, time.UTC), Predicted: 2, Lower: 1, Upper: 3},
			},
			firstDS:  "2020-01-01 00:00:02",
			secondDS: "2020-01-01 00:00:02.5",
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			export, err := NewExport(td.rows)
			require.Nil(t, err)

			lines := strings.Split(strings.TrimSpace(string(export.CSV)), "\n")
			require.Len(t, lines, len(td.rows)+1)
			assert.True(t, strings.HasPrefix(lines[1], td.firstDS+","), lines[1])
			assert.True(t, strings.HasPrefix(lines[2], td.secondDS+","), lines[2])

			decoded, err := DecodeCSV(bytes.NewReader(export.CSV))
			require.Nil(t, err)
			assert.Equal(t, td.rows, decoded)
		})
	}
}

func TestDecodeCSVErrors(t *testing.T) {
	testData := map[string]struct {
		input string
		err   error
	}{
		"empty": {
			input: "",
			err:   ErrEmptyInput,
		},
		"wrong header": {
			input: "ds,y,lower,upper\n",
			err:   ErrUnexpectedHeader,
		},
		"bad timestamp": {
			input: "ds,yhat,yhat_lower,yhat_upper\nabc,1,0,2\n",
			err:   ErrMalformedRow,
		},
		"bad value": {
			input: "ds,yhat,yhat_lower,yhat_upper\n2020-01-01,one,0,2\n",
			err:   ErrMalformedRow,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCSV(strings.NewReader(td.input))
			assert.ErrorIs(t, err, td.err)
		})
	}
}
