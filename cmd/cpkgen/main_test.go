package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/cpkgen/internal/config"
	"github.com/verte-zerg/cpkgen/internal/model"
	"github.com/verte-zerg/cpkgen/internal/search"
	"github.com/verte-zerg/cpkgen/internal/stats"
)

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Nil(t, cfg.Generate.TargetCpk)
	assert.Nil(t, cfg.Output.Format)

	uncommented := strings.ReplaceAll(defaultConfigTemplate(), "# target = ", "target = ")
	require.NoError(t, os.WriteFile(path, []byte(uncommented), 0o644))
	cfg, err = config.LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Generate.TargetCpk)
	assert.InDelta(t, defaultTargetCpk, *cfg.Generate.TargetCpk, 1e-9)
}

func TestBuildConfigDefaultsRangeToLimits(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Set("lsl", "10"))
	require.NoError(t, cmd.Flags().Set("usl", "20,5"))
	require.NoError(t, cmd.Flags().Set("seed", "7"))

	cfg, err := buildConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, model.Bilateral, cfg.Spec.Type)
	assert.Equal(t, 10.0, cfg.MinVal)
	assert.Equal(t, 20.5, cfg.MaxVal)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, defaultSampleSize, cfg.SampleSize)
}

func TestBuildConfigUnilateralNeedsRange(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Set("spec-type", "unilateral_lsl"))
	require.NoError(t, cmd.Flags().Set("lsl", "10"))

	_, err := buildConfig(cmd)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)

	require.NoError(t, cmd.Flags().Set("min", "8"))
	require.NoError(t, cmd.Flags().Set("max", "14"))
	cfg, err := buildConfig(cmd)
	require.NoError(t, err)
	assert.Nil(t, cfg.Spec.USL)
}

func TestApplyConfigKeepsExplicitFlags(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Set("samples", "50"))

	fromFile := 200
	applyIntConfig(cmd, "samples", &genSampleSize, &fromFile)
	assert.Equal(t, 50, genSampleSize)

	limit := 12.5
	applyLimitConfig(cmd, "max", &genMax, &limit)
	assert.Equal(t, "12.5", genMax)
}

func TestWriteSummaryReportsStatus(t *testing.T) {
	lsl, usl := 10.0, 20.0
	cfg := model.Config{
		Spec:        model.NewSpecification(model.Bilateral, &lsl, &usl),
		TargetCpk:   1.33,
		Decimals:    2,
		MinVal:      lsl,
		MaxVal:      usl,
		ForceRange:  true,
		MaxAttempts: 10,
	}
	var buf bytes.Buffer
	err := writeSummary(&buf, cfg, search.Outcome{
		Status:   model.StatusExhausted,
		Attempts: 10,
		Cpk:      stats.FiniteIndex(1.2),
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "exhausted after 10/10 attempts")
	assert.Contains(t, out, "All values are within [10, 20]")
	assert.Contains(t, out, "Target not reached")
}

func TestWriteSummaryCountsOutOfRangeWhenClipping(t *testing.T) {
	lsl, usl := 0.04, 1.04
	cfg := model.Config{
		Spec:        model.NewSpecification(model.Bilateral, &lsl, &usl),
		TargetCpk:   1.33,
		Decimals:    1,
		MinVal:      lsl,
		MaxVal:      usl,
		ForceRange:  true,
		MaxAttempts: 1,
	}
	var buf bytes.Buffer
	err := writeSummary(&buf, cfg, search.Outcome{
		Status:     model.StatusExhausted,
		Attempts:   1,
		Cpk:        stats.FiniteIndex(0.8),
		OutOfRange: 11,
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "11 values fall outside [0.04, 1.04]")
	assert.NotContains(t, out, "All values are within")
}
