// Package main provides the CLI entrypoint for cpkgen.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/cpkgen/internal/config"
	"github.com/verte-zerg/cpkgen/internal/export"
	"github.com/verte-zerg/cpkgen/internal/generator"
	"github.com/verte-zerg/cpkgen/internal/historyui"
	"github.com/verte-zerg/cpkgen/internal/logging"
	"github.com/verte-zerg/cpkgen/internal/model"
	"github.com/verte-zerg/cpkgen/internal/search"
	"github.com/verte-zerg/cpkgen/internal/stats"
	"github.com/verte-zerg/cpkgen/internal/store"
	"github.com/verte-zerg/cpkgen/internal/tui"
)

const (
	defaultSpecType      = "bilateral"
	defaultTargetCpk     = 1.33
	defaultSampleSize    = 100
	defaultSubgroupSize  = 5
	defaultDecimals      = 3
	defaultSigmaPercent  = 20.0
	defaultCenterPercent = 50.0
	defaultMaxAttempts   = 1000
	defaultTolerance     = 0.01
	defaultAdjFactor     = 0.95
	defaultTrendWindow   = 5
	defaultFormat        = "text"
	defaultLogLevel      = "info"
)

var (
	configPath string
	logLevel   string

	genSpecType      string
	genLSL           string
	genUSL           string
	genTargetCpk     float64
	genSampleSize    int
	genSubgroupSize  int
	genDecimals      int
	genMin           string
	genMax           string
	genSigmaPercent  float64
	genCenterPercent float64
	genForceRange    bool
	genAutoAdjust    bool
	genMaxAttempts   int
	genTolerance     float64
	genAdjFactor     float64
	genSeed          int
	genTUI           bool
	genCopy          bool
	genCSV           string
	genFormat        string
	genNoSave        bool

	historySpecType string
	historySince    string
	historyLast     int
	historyWindow   int
	historyPlain    bool

	showFormat string

	exportFormat string
	exportOutput string
	exportCopy   bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cpkgen",
		Short:         "Synthesize samples that hit a target Cpk",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runGenerateCmd,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/cpkgen/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	addGenerateFlags(rootCmd)

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the Cpk search and print the report",
		Args:  cobra.NoArgs,
		RunE:  runGenerateCmd,
	}
	addGenerateFlags(generateCmd)

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newExportCmd())

	return rootCmd
}

func addGenerateFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&genSpecType, "spec-type", defaultSpecType, "specification type (bilateral, unilateral_lsl, unilateral_usl)")
	flags.StringVar(&genLSL, "lsl", "", "lower specification limit")
	flags.StringVar(&genUSL, "usl", "", "upper specification limit")
	flags.Float64Var(&genTargetCpk, "target", defaultTargetCpk, "target Cpk")
	flags.IntVar(&genSampleSize, "samples", defaultSampleSize, "number of values to generate")
	flags.IntVar(&genSubgroupSize, "subgroup", defaultSubgroupSize, "rational subgroup size (1 uses moving ranges)")
	flags.IntVar(&genDecimals, "decimals", defaultDecimals, "decimal places of generated values")
	flags.StringVar(&genMin, "min", "", "lowest generated value (default: LSL for bilateral specs)")
	flags.StringVar(&genMax, "max", "", "highest generated value (default: USL for bilateral specs)")
	flags.Float64Var(&genSigmaPercent, "sigma-pct", defaultSigmaPercent, "initial spread as percent of the value range")
	flags.Float64Var(&genCenterPercent, "center-pct", defaultCenterPercent, "mean position as percent of the value range")
	flags.BoolVar(&genForceRange, "force-range", true, "clamp values into [min, max]")
	flags.BoolVar(&genAutoAdjust, "auto-adjust", true, "adjust sigma between attempts")
	flags.IntVar(&genMaxAttempts, "max-attempts", defaultMaxAttempts, "maximum number of attempts")
	flags.Float64Var(&genTolerance, "tolerance", defaultTolerance, "accepted |Cpk - target|")
	flags.Float64Var(&genAdjFactor, "adj-factor", defaultAdjFactor, "sigma adjustment factor per attempt")
	flags.IntVar(&genSeed, "seed", 0, "random seed (default: time based)")
	flags.BoolVar(&genTUI, "tui", false, "show live progress in a terminal UI")
	flags.BoolVar(&genCopy, "copy", false, "copy generated values to the clipboard")
	flags.StringVar(&genCSV, "csv", "", "also write values to this CSV file")
	flags.StringVar(&genFormat, "format", defaultFormat, "output format (text, json, yaml, csv)")
	flags.BoolVar(&genNoSave, "no-save", false, "do not store the run")
}

func loadFileConfig() (config.FileConfig, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	fileCfg, err := config.LoadConfig(path)
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	return fileCfg, nil
}

func setupLogging(cmd *cobra.Command, fileCfg config.FileConfig) {
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Output.LogLevel)
	if _, err := logging.Setup(logLevel); err != nil {
		slog.Warn("falling back to info logging", "err", err)
	}
}

func runGenerateCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	setupLogging(cmd, fileCfg)

	g := fileCfg.Generate
	applyStringConfig(cmd, "spec-type", &genSpecType, g.SpecType)
	applyLimitConfig(cmd, "lsl", &genLSL, g.LSL)
	applyLimitConfig(cmd, "usl", &genUSL, g.USL)
	applyFloatConfig(cmd, "target", &genTargetCpk, g.TargetCpk)
	applyIntConfig(cmd, "samples", &genSampleSize, g.SampleSize)
	applyIntConfig(cmd, "subgroup", &genSubgroupSize, g.SubgroupSize)
	applyIntConfig(cmd, "decimals", &genDecimals, g.Decimals)
	applyLimitConfig(cmd, "min", &genMin, g.MinVal)
	applyLimitConfig(cmd, "max", &genMax, g.MaxVal)
	applyFloatConfig(cmd, "sigma-pct", &genSigmaPercent, g.SigmaPercent)
	applyFloatConfig(cmd, "center-pct", &genCenterPercent, g.CenterPercent)
	applyBoolConfig(cmd, "force-range", &genForceRange, g.ForceRange)
	applyBoolConfig(cmd, "auto-adjust", &genAutoAdjust, g.AutoAdjust)
	applyIntConfig(cmd, "max-attempts", &genMaxAttempts, g.MaxAttempts)
	applyFloatConfig(cmd, "tolerance", &genTolerance, g.Tolerance)
	applyFloatConfig(cmd, "adj-factor", &genAdjFactor, g.AdjFactor)
	applyIntConfig(cmd, "seed", &genSeed, g.Seed)
	applyStringConfig(cmd, "format", &genFormat, fileCfg.Output.Format)
	applyBoolConfig(cmd, "tui", &genTUI, fileCfg.Output.TUI)

	format, err := export.ParseFormat(genFormat)
	if err != nil {
		return err
	}
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	slog.Debug("starting search",
		"spec", cfg.Spec.Type,
		"target", cfg.TargetCpk,
		"samples", cfg.SampleSize,
		"mode", cfg.Mode(),
		"seed", cfg.Seed,
	)

	started := time.Now()
	outcome, err := runSearch(cmd.Context(), cfg)
	duration := time.Since(started)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	if len(outcome.Sample) == 0 {
		return fmt.Errorf("search cancelled before any attempt finished")
	}

	rec := runRecord(cfg, outcome, duration)
	if !genNoSave {
		if id, err := saveRun(cmd.Context(), &rec); err != nil {
			slog.Error("failed to save run", "err", err)
		} else {
			slog.Info("run saved", "id", id, "uuid", rec.UUID)
		}
	}

	out := cmd.OutOrStdout()
	if err := writeOutcome(out, format, rec, outcome); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if genCSV != "" {
		if err := export.WriteCSVFile(genCSV, outcome.Sample, cfg.Decimals); err != nil {
			return fmt.Errorf("failed to write csv: %w", err)
		}
		slog.Info("values exported", "path", genCSV)
	}
	if genCopy {
		if err := export.CopyValues(outcome.Sample, cfg.Decimals); err != nil {
			slog.Warn("failed to copy values", "err", err)
		} else {
			slog.Info("values copied to clipboard", "count", len(outcome.Sample))
		}
	}
	return nil
}

func buildConfig(cmd *cobra.Command) (model.Config, error) {
	specType, err := model.ParseSpecType(genSpecType)
	if err != nil {
		return model.Config{}, err
	}
	lsl, err := parseOptional("lsl", genLSL)
	if err != nil {
		return model.Config{}, err
	}
	usl, err := parseOptional("usl", genUSL)
	if err != nil {
		return model.Config{}, err
	}
	spec := model.NewSpecification(specType, lsl, usl)

	minVal, err := parseOptional("min", genMin)
	if err != nil {
		return model.Config{}, err
	}
	maxVal, err := parseOptional("max", genMax)
	if err != nil {
		return model.Config{}, err
	}
	if minVal == nil && spec.LSL != nil && specType == model.Bilateral {
		minVal = spec.LSL
	}
	if maxVal == nil && spec.USL != nil && specType == model.Bilateral {
		maxVal = spec.USL
	}
	var rangeErrs []error
	if minVal == nil {
		rangeErrs = append(rangeErrs, &model.ValidationError{Field: "min", Reason: "required unless a bilateral lsl is set"})
		minVal = new(float64)
	}
	if maxVal == nil {
		rangeErrs = append(rangeErrs, &model.ValidationError{Field: "max", Reason: "required unless a bilateral usl is set"})
		maxVal = new(float64)
		*maxVal = *minVal + 1
	}

	seed := int64(genSeed)
	if !cmd.Flags().Changed("seed") && seed == 0 {
		seed = time.Now().UnixNano()
	}

	cfg := model.Config{
		Spec:          spec,
		TargetCpk:     genTargetCpk,
		SampleSize:    genSampleSize,
		SubgroupSize:  genSubgroupSize,
		Decimals:      genDecimals,
		MinVal:        *minVal,
		MaxVal:        *maxVal,
		SigmaPercent:  genSigmaPercent,
		CenterPercent: genCenterPercent,
		ForceRange:    genForceRange,
		AutoAdjust:    genAutoAdjust,
		MaxAttempts:   genMaxAttempts,
		Tolerance:     genTolerance,
		AdjFactor:     genAdjFactor,
		Seed:          seed,
	}
	if err := errors.Join(append(rangeErrs, model.Validate(cfg))...); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func parseOptional(field, text string) (*float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	v, err := model.ParseNumber(field, text)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func runSearch(ctx context.Context, cfg model.Config) (search.Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	gen := generator.NewSeeded(cfg.Seed)
	if genTUI && term.IsTerminal(int(os.Stdout.Fd())) {
		return tui.Run(ctx, cfg, gen)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	return search.Run(ctx, cfg, gen, func(s search.Snapshot) {
		if s.Attempt%search.ProgressInterval != 0 && !s.Status.Done() {
			return
		}
		slog.Debug("search progress",
			"attempt", s.Attempt,
			"max", s.MaxAttempts,
			"cpk", s.Cpk.Format(4),
			"best", s.BestCpk.Format(4),
			"diff", s.BestDiff,
			"sigma", s.Sigma,
		)
	})
}

func runRecord(cfg model.Config, outcome search.Outcome, duration time.Duration) model.RunRecord {
	rec := model.RunRecord{
		CreatedAt:  time.Now(),
		Config:     cfg,
		Status:     outcome.Status,
		Attempts:   outcome.Attempts,
		FinalSigma: outcome.Sigma,
		DurationMs: duration.Milliseconds(),
		Values:     outcome.Sample,
	}
	if outcome.Cpk.IsFinite() {
		v := outcome.Cpk.Value
		rec.AchievedCpk = &v
	}
	return rec
}

func saveRun(ctx context.Context, rec *model.RunRecord) (int64, error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return 0, fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	if ctx == nil {
		ctx = context.Background()
	}
	id, err := st.InsertRun(ctx, *rec)
	if err != nil {
		return 0, err
	}
	saved, err := st.GetRun(ctx, fmt.Sprint(id))
	if err != nil {
		return id, err
	}
	rec.ID = saved.ID
	rec.UUID = saved.UUID
	return id, nil
}

func writeOutcome(w io.Writer, format export.Format, rec model.RunRecord, outcome search.Outcome) error {
	if format != export.FormatText {
		return export.Write(w, format, export.NewDocument(rec, outcome.Report))
	}
	if err := writeTextReport(w, rec, outcome.Report); err != nil {
		return err
	}
	return writeSummary(w, rec.Config, outcome)
}

func writeTextReport(w io.Writer, rec model.RunRecord, report stats.Report) error {
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd())) && os.Getenv("NO_COLOR") == ""
	}
	if err := stats.RenderReport(w, report, stats.ReportOptions{Decimals: rec.Config.Decimals, Color: color}); err != nil {
		return err
	}
	return stats.RenderHistogram(w, rec.Values, report, rec.Config.Decimals, 0)
}

func writeSummary(w io.Writer, cfg model.Config, outcome search.Outcome) error {
	lines := []string{
		fmt.Sprintf("Status: %s after %d/%d attempts", outcome.Status, outcome.Attempts, cfg.MaxAttempts),
		fmt.Sprintf("Achieved Cpk %s for target %.3f (|diff| %.4f, sigma %.4f)",
			outcome.Cpk.Format(4), cfg.TargetCpk, outcome.Diff, outcome.Sigma),
	}
	rangeText := fmt.Sprintf("[%s, %s]", strconv.FormatFloat(cfg.MinVal, 'f', -1, 64), strconv.FormatFloat(cfg.MaxVal, 'f', -1, 64))
	switch {
	case outcome.OutOfRange == 0:
		lines = append(lines, "All values are within "+rangeText)
	case cfg.ForceRange:
		lines = append(lines, fmt.Sprintf("%d values fall outside %s despite clipping", outcome.OutOfRange, rangeText))
	default:
		lines = append(lines, fmt.Sprintf("%d values fall outside %s", outcome.OutOfRange, rangeText))
	}
	switch outcome.Status {
	case model.StatusExhausted:
		lines = append(lines, "Target not reached; the closest sample is shown.")
	case model.StatusCancelled:
		lines = append(lines, "Search cancelled; the closest sample so far is shown.")
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse stored runs",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historySpecType, "spec-type", "", "specification type filter")
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N runs")
	cmd.Flags().IntVar(&historyWindow, "window", defaultTrendWindow, "moving average window for the Cpk trend")
	cmd.Flags().BoolVar(&historyPlain, "plain", false, "print a table instead of the interactive browser")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	setupLogging(cmd, fileCfg)
	applyIntConfig(cmd, "last", &historyLast, fileCfg.History.Last)
	applyIntConfig(cmd, "window", &historyWindow, fileCfg.History.Window)

	var sinceTime *time.Time
	if historySince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", historySince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	var specType model.SpecType
	if historySpecType != "" {
		specType, err = model.ParseSpecType(historySpecType)
		if err != nil {
			return err
		}
	}
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if historyWindow < 1 {
		return fmt.Errorf("--window must be >= 1")
	}

	cfg := model.HistoryConfig{
		SpecType: specType,
		Since:    sinceTime,
		Last:     historyLast,
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if historyPlain || !term.IsTerminal(int(os.Stdout.Fd())) {
		h, err := stats.BuildHistory(cmd.Context(), st, cfg, historyWindow)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		width, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil {
			width = 0
		}
		return stats.RenderHistory(cmd.OutOrStdout(), h, width)
	}

	ui := historyui.NewModel(st, cfg, historyWindow)
	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run history TUI: %w", err)
	}
	return nil
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run>",
		Short: "Recompute and print the report of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  runShowCmd,
	}
	cmd.Flags().StringVar(&showFormat, "format", defaultFormat, "output format (text, json, yaml, csv)")
	return cmd
}

func runShowCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	setupLogging(cmd, fileCfg)
	applyStringConfig(cmd, "format", &showFormat, fileCfg.Output.Format)
	format, err := export.ParseFormat(showFormat)
	if err != nil {
		return err
	}
	rec, report, err := loadRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if format != export.FormatText {
		return export.Write(out, format, export.NewDocument(rec, report))
	}
	if _, err := fmt.Fprintf(out, "Run %d (%s) · %s · %s\n\n", rec.ID, rec.UUID, rec.CreatedAt.Local().Format("2006-01-02 15:04"), rec.Status); err != nil {
		return err
	}
	return writeTextReport(out, rec, report)
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run>",
		Short: "Export the values of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportFormat, "format", string(export.FormatCSV), "export format (csv, json, yaml)")
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output path, - for stdout (default: export dir)")
	cmd.Flags().BoolVar(&exportCopy, "copy", false, "also copy the values to the clipboard")
	return cmd
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	setupLogging(cmd, fileCfg)
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	if format == export.FormatText {
		return fmt.Errorf("--format must be csv, json or yaml")
	}
	rec, report, err := loadRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	path := exportOutput
	if path == "" {
		dir := config.DefaultExportDir()
		if fileCfg.Output.ExportDir != nil {
			dir = *fileCfg.Output.ExportDir
		}
		path = filepath.Join(dir, exportFileName(rec, format))
	}

	if path == "-" {
		if err := export.Write(cmd.OutOrStdout(), format, export.NewDocument(rec, report)); err != nil {
			return err
		}
	} else {
		if err := writeExportFile(path, format, export.NewDocument(rec, report)); err != nil {
			return fmt.Errorf("failed to export run: %w", err)
		}
		slog.Info("run exported", "path", path, "format", format)
	}

	if exportCopy {
		if err := export.CopyValues(rec.Values, rec.Config.Decimals); err != nil {
			slog.Warn("failed to copy values", "err", err)
		}
	}
	return nil
}

func exportFileName(rec model.RunRecord, format export.Format) string {
	if format == export.FormatCSV {
		return fmt.Sprintf("%d-%s", rec.ID, export.DefaultCSVName)
	}
	return fmt.Sprintf("%d-cpk_run.%s", rec.ID, format)
}

func writeExportFile(path string, format export.Format, doc export.Document) (err error) {
	if format == export.FormatCSV {
		return export.WriteCSVFile(path, doc.Values, doc.Settings.Decimals)
	}
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
	return export.Write(f, format, doc)
}

func loadRun(ctx context.Context, ref string) (model.RunRecord, stats.Report, error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return model.RunRecord{}, stats.Report{}, fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	if ctx == nil {
		ctx = context.Background()
	}
	rec, err := st.GetRun(ctx, ref)
	if err != nil {
		return model.RunRecord{}, stats.Report{}, err
	}
	report, err := stats.Capability(rec.Values, rec.Config.Spec, rec.Config.SubgroupSize)
	if err != nil {
		return model.RunRecord{}, stats.Report{}, fmt.Errorf("run %s: %w", ref, err)
	}
	return rec, report, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

// applyLimitConfig fills a string-typed numeric flag from a config number.
func applyLimitConfig(cmd *cobra.Command, name string, target *string, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = fmt.Sprint(*value)
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# cpkgen configuration
# Uncomment a value to enable it. CLI flags override config values.

[generate]
# spec-type = %q      # bilateral, unilateral_lsl or unilateral_usl
# lsl = 10.0                  # Lower specification limit
# usl = 20.0                  # Upper specification limit
# target = %.2f               # Target Cpk
# samples = %d               # Values per sample
# subgroup = %d                # Rational subgroup size (1 uses moving ranges)
# decimals = %d                # Decimal places of generated values
# min = 8.0                   # Lowest generated value
# max = 22.0                  # Highest generated value
# sigma-pct = %.0f             # Initial spread, percent of the value range
# center-pct = %.0f            # Mean position, percent of the value range
# force-range = true          # Clamp values into [min, max]
# auto-adjust = true          # Adjust sigma between attempts
# max-attempts = %d         # Attempt budget
# tolerance = %.2f            # Accepted |Cpk - target|
# adj-factor = %.2f           # Sigma adjustment factor
# seed = 42                   # Fixed random seed

[history]
# last = 20                   # Limit history to the last N runs
# window = %d                  # Moving average window for the Cpk trend

[output]
# format = %q              # text, json, yaml or csv
# log-level = %q             # debug, info, warn or error
# export-dir = "/tmp/cpk"     # Where export writes files
# tui = false                 # Show live search progress
`,
		defaultSpecType,
		defaultTargetCpk,
		defaultSampleSize,
		defaultSubgroupSize,
		defaultDecimals,
		defaultSigmaPercent,
		defaultCenterPercent,
		defaultMaxAttempts,
		defaultTolerance,
		defaultAdjFactor,
		defaultTrendWindow,
		defaultFormat,
		defaultLogLevel,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
