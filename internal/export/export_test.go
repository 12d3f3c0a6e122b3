package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/cpkgen/internal/model"
	"github.com/verte-zerg/cpkgen/internal/stats"
)

func sampleDocument(t *testing.T) Document {
	t.Helper()
	lsl, usl := 10.0, 20.0
	rec := model.RunRecord{
		ID:        7,
		UUID:      "7f1c2a0e-0000-4000-8000-000000000000",
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Config: model.Config{
			Spec:         model.NewSpecification(model.Bilateral, &lsl, &usl),
			TargetCpk:    1.33,
			SampleSize:   6,
			SubgroupSize: 1,
			Decimals:     2,
			MinVal:       8,
			MaxVal:       22,
			ForceRange:   true,
		},
		Status:   model.StatusConverged,
		Attempts: 12,
		Values:   []float64{14.5, 15, 15.25, 14.75, 15.5, 15.1},
	}
	report, err := stats.Capability(rec.Values, rec.Config.Spec, rec.Config.SubgroupSize)
	require.NoError(t, err)
	return NewDocument(rec, report)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []float64{1, 2.5, 3.14159}, 3))
	assert.Equal(t, "Value\n1.000\n2.500\n3.142\n", buf.String())
}

func TestWriteCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", DefaultCSVName)
	require.NoError(t, WriteCSVFile(path, []float64{10, 11}, 0))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Value\n10\n11\n", string(data))
}

func TestWriteJSON(t *testing.T) {
	doc := sampleDocument(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, doc))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "converged", decoded["status"])
	assert.Equal(t, true, decoded["converged"])
	settings := decoded["settings"].(map[string]any)
	assert.Equal(t, "restricted", settings["mode"])
	report := decoded["report"].(map[string]any)
	assert.InDelta(t, doc.Report.Cpk.Value, report["cpk"].(float64), 1e-9)
	assert.Len(t, decoded["values"], 6)
}

func TestWriteYAML(t *testing.T) {
	doc := sampleDocument(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, doc))

	var decoded struct {
		UUID     string    `yaml:"uuid"`
		Attempts int       `yaml:"attempts"`
		Values   []float64 `yaml:"values"`
		Report   struct {
			SpecType string `yaml:"spec_type"`
		} `yaml:"report"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, doc.UUID, decoded.UUID)
	assert.Equal(t, 12, decoded.Attempts)
	assert.Equal(t, doc.Values, decoded.Values)
	assert.Equal(t, "bilateral", decoded.Report.SpecType)
}

func TestWriteTextUnsupported(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, FormatText, Document{}))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "JSON": FormatJSON, "yml": FormatYAML, "csv": FormatCSV} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestJoinValues(t *testing.T) {
	assert.Equal(t, "1.0\n2.5", JoinValues([]float64{1, 2.5}, 1))
	assert.Equal(t, "", JoinValues(nil, 2))
}
