// Package export writes generated samples and their reports to files,
// stdout or the clipboard.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/cpkgen/internal/model"
	"github.com/verte-zerg/cpkgen/internal/stats"
)

// DefaultCSVName is the file name used when exporting without a path.
const DefaultCSVName = "cpk_generated_values.csv"

// ErrClipboardUnavailable is returned when no clipboard backend exists.
var ErrClipboardUnavailable = errors.New("clipboard is not available on this system")

// Format selects a document encoding.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// ParseFormat maps user input to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML, FormatCSV:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json, yaml or csv)", s)
	}
}

// Settings is the serialisable form of a generation request.
type Settings struct {
	SpecType      model.SpecType `json:"spec_type" yaml:"spec_type"`
	LSL           *float64       `json:"lsl,omitempty" yaml:"lsl,omitempty"`
	USL           *float64       `json:"usl,omitempty" yaml:"usl,omitempty"`
	TargetCpk     float64        `json:"target_cpk" yaml:"target_cpk"`
	SampleSize    int            `json:"sample_size" yaml:"sample_size"`
	SubgroupSize  int            `json:"subgroup_size" yaml:"subgroup_size"`
	Decimals      int            `json:"decimals" yaml:"decimals"`
	MinVal        float64        `json:"min_val" yaml:"min_val"`
	MaxVal        float64        `json:"max_val" yaml:"max_val"`
	SigmaPercent  float64        `json:"sigma_percent" yaml:"sigma_percent"`
	CenterPercent float64        `json:"center_percent" yaml:"center_percent"`
	Mode          string         `json:"mode" yaml:"mode"`
	AutoAdjust    bool           `json:"auto_adjust" yaml:"auto_adjust"`
	MaxAttempts   int            `json:"max_attempts" yaml:"max_attempts"`
	Tolerance     float64        `json:"tolerance" yaml:"tolerance"`
	AdjFactor     float64        `json:"adj_factor" yaml:"adj_factor"`
	Seed          int64          `json:"seed" yaml:"seed"`
}

// Document is a run together with its capability report.
type Document struct {
	ID         int64        `json:"id,omitempty" yaml:"id,omitempty"`
	UUID       string       `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	CreatedAt  time.Time    `json:"created_at" yaml:"created_at"`
	Status     model.Status `json:"status" yaml:"status"`
	Converged  bool         `json:"converged" yaml:"converged"`
	Attempts   int          `json:"attempts" yaml:"attempts"`
	FinalSigma float64      `json:"final_sigma" yaml:"final_sigma"`
	DurationMs int64        `json:"duration_ms" yaml:"duration_ms"`
	Settings   Settings     `json:"settings" yaml:"settings"`
	Report     stats.Report `json:"report" yaml:"report"`
	Values     []float64    `json:"values" yaml:"values"`
}

// NewDocument builds a Document from a run and the report of its sample.
func NewDocument(rec model.RunRecord, report stats.Report) Document {
	cfg := rec.Config
	return Document{
		ID:         rec.ID,
		UUID:       rec.UUID,
		CreatedAt:  rec.CreatedAt,
		Status:     rec.Status,
		Converged:  rec.Status == model.StatusConverged,
		Attempts:   rec.Attempts,
		FinalSigma: rec.FinalSigma,
		DurationMs: rec.DurationMs,
		Settings: Settings{
			SpecType:      cfg.Spec.Type,
			LSL:           cfg.Spec.LSL,
			USL:           cfg.Spec.USL,
			TargetCpk:     cfg.TargetCpk,
			SampleSize:    cfg.SampleSize,
			SubgroupSize:  cfg.SubgroupSize,
			Decimals:      cfg.Decimals,
			MinVal:        cfg.MinVal,
			MaxVal:        cfg.MaxVal,
			SigmaPercent:  cfg.SigmaPercent,
			CenterPercent: cfg.CenterPercent,
			Mode:          cfg.Mode(),
			AutoAdjust:    cfg.AutoAdjust,
			MaxAttempts:   cfg.MaxAttempts,
			Tolerance:     cfg.Tolerance,
			AdjFactor:     cfg.AdjFactor,
			Seed:          cfg.Seed,
		},
		Report: report,
		Values: rec.Values,
	}
}

// Write encodes doc in the given format. FormatText is not handled here.
func Write(w io.Writer, format Format, doc Document) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatCSV:
		return WriteCSV(w, doc.Values, doc.Settings.Decimals)
	default:
		return fmt.Errorf("format %q cannot be written as a document", format)
	}
}

// FormatValue renders v with a fixed number of decimals.
func FormatValue(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// WriteCSV writes a single "Value" column.
func WriteCSV(w io.Writer, values []float64, decimals int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Value"}); err != nil {
		return err
	}
	for _, v := range values {
		if err := cw.Write([]string{FormatValue(v, decimals)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes values to path, creating parent directories. An
// existing file is overwritten.
func WriteCSVFile(path string, values []float64, decimals int) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return WriteCSV(f, values, decimals)
}

// JoinValues renders one value per line.
func JoinValues(values []float64, decimals int) string {
	lines := make([]string, len(values))
	for i, v := range values {
		lines[i] = FormatValue(v, decimals)
	}
	return strings.Join(lines, "\n")
}

// CopyValues places the values on the system clipboard, one per line.
func CopyValues(values []float64, decimals int) error {
	if clipboard.Unsupported {
		return ErrClipboardUnavailable
	}
	return clipboard.WriteAll(JoinValues(values, decimals))
}
