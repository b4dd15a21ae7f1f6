package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aouyang1/go-forecaster-studio/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `log_level: warn
changepoints: 0
regularization: 0
outlier_passes: 0
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.Nil(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestForecastAndInspect(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", testConfig)
	input := writeFile(t, dir, "data.csv", "ds,y\n2020-01-01,10\n2020-01-02,12\n")
	output := filepath.Join(dir, "forecast.csv")
	model := filepath.Join(dir, "model.json")

	stdout, err := execute(t, "forecast", "--config", cfgPath, "--input", input, "--horizon", "2",
		"--output", output, "--model", model, "--data-uri")
	require.Nil(t, err)
	assert.True(t, strings.HasPrefix(stdout, "data:file/csv;base64,"))

	f, err := os.Open(output)
	require.Nil(t, err)
	defer f.Close()
	rows, err := pipeline.DecodeCSV(f)
	require.Nil(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2020-01-03", rows[0].Timestamp.Format("2006-01-02"))
	assert.Equal(t, "2020-01-04", rows[1].Timestamp.Format("2006-01-02"))

	b, err := os.ReadFile(model)
	require.Nil(t, err)
	assert.Contains(t, string(b), `"series_model"`)

	stdout, err = execute(t, "inspect", "--config", cfgPath, "--input", output)
	require.Nil(t, err)
	assert.True(t, strings.HasPrefix(stdout, "2 rows from 2020-01-03 00:00:00 to 2020-01-04 00:00:00\n"))
}

func TestForecastToStdout(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", testConfig)
	input := writeFile(t, dir, "data.csv", "ds,y\n2020-01-01,10\n2020-01-02,12\n")

	stdout, err := execute(t, "forecast", "--config", cfgPath, "--input", input)
	require.Nil(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ds,yhat,yhat_lower,yhat_upper", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2020-01-03,"))
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", testConfig)
	input := writeFile(t, dir, "data.csv", "ds,y\n2020-01-01,10\n2020-01-02,12\n")
	notForecast := writeFile(t, dir, "other.csv", "a,b,c,d\n1,2,3,4\n")

	testData := map[string]struct {
		args     []string
		expected error
	}{
		"horizon too large": {
			args:     []string{"forecast", "--config", cfgPath, "--input", input, "--horizon", "366"},
			expected: pipeline.ErrHorizonOutOfRange,
		},
		"inspect wrong header": {
			args:     []string{"inspect", "--config", cfgPath, "--input", notForecast},
			expected: pipeline.ErrUnexpectedHeader,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, td.args...)
			assert.ErrorIs(t, err, td.expected)
		})
	}

	_, err := execute(t, "forecast", "--config", cfgPath)
	assert.NotNil(t, err)

	_, err = execute(t, "forecast", "--config", cfgPath, "--input", input, "--log-level", "loud")
	assert.NotNil(t, err)
}
