package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/kinsim/internal/analysis"
	"github.com/san-kum/kinsim/internal/automation"
	"github.com/san-kum/kinsim/internal/config"
	"github.com/san-kum/kinsim/internal/experiment"
	"github.com/san-kum/kinsim/internal/export"
	"github.com/san-kum/kinsim/internal/logging"
	"github.com/san-kum/kinsim/internal/optim"
	"github.com/san-kum/kinsim/internal/storage"
	"github.com/san-kum/kinsim/internal/tui"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	duration   float64
	integrator string
	rtol       float64
	atol       float64
	terminal   bool
	logLevel   string
	saveRun    bool
	saveSweep  bool
	temps      []float64
	workers    int
	svgFile    string
	outFile    string
	targetRun  string
	column     string
	rates      []string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "kinsim",
		Short:         "kinetic path integrator for partial-equilibrium chemistry",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".kinsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "integrate a kinetic path",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPath,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&terminal, "terminal", true, "print output rows while integrating")
	runCmd.Flags().BoolVar(&saveRun, "save", true, "store the run in the data directory")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "run one configuration at several temperatures",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().Float64SliceVar(&temps, "temps", nil, "temperatures in K (comma separated)")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "parallel members (0 = one per CPU)")
	sweepCmd.Flags().BoolVar(&saveSweep, "save", false, "store every member run")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "integrate with a live terminal view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	fitCmd := &cobra.Command{
		Use:   "fit [preset]",
		Short: "fit forward rate constants to a stored run by grid search",
		Args:  cobra.MaximumNArgs(1),
		RunE:  fitRates,
	}
	addRunFlags(fitCmd)
	fitCmd.Flags().StringVar(&targetRun, "target", "", "stored run to fit against")
	fitCmd.Flags().StringVar(&column, "column", "", "column to compare, e.g. n[A]")
	fitCmd.Flags().StringArrayVar(&rates, "rate", nil, "reaction=lo:hi:n, log-spaced grid for one reaction")
	_ = fitCmd.MarkFlagRequired("target")
	_ = fitCmd.MarkFlagRequired("column")
	_ = fitCmd.MarkFlagRequired("rate")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of runs from yaml",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id] [column...]",
		Short: "plot stored run columns against time",
		Args:  cobra.MinimumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write an SVG chart to this file")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id] [x] [y]",
		Short: "plot one stored column against another",
		Args:  cobra.ExactArgs(3),
		RunE:  phasePlot,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id] [column...]",
		Short: "half-life, settling time and extrema of stored columns",
		Args:  cobra.MinimumNArgs(1),
		RunE:  analyzeRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in presets",
		RunE:  listPresets,
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "list integration methods, activity models and equilibrium solvers",
		RunE:  showInfo,
	}

	rootCmd.AddCommand(runCmd, sweepCmd, liveCmd, fitCmd, scenarioCmd, listCmd, plotCmd, phaseCmd, analyzeCmd, exportCmd, presetsCmd, infoCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "integration interval (s)")
	cmd.Flags().StringVar(&integrator, "integrator", "rosenbrock", "integration method")
	cmd.Flags().Float64Var(&rtol, "rtol", 0, "relative tolerance")
	cmd.Flags().Float64Var(&atol, "atol", 0, "absolute tolerance")
}

// loadConfig resolves the preset or config file and applies the flags the
// user set explicitly.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	case len(args) == 1:
		cfg = config.GetPreset(args[0])
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %s)", args[0], strings.Join(config.ListPresets(), ", "))
		}
	default:
		return nil, errors.New("a preset or --config is required")
	}

	flags := cmd.Flags()
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("integrator") {
		cfg.Integrator.Method = integrator
	}
	if flags.Changed("rtol") {
		cfg.Integrator.RelTol = rtol
	}
	if flags.Changed("atol") {
		cfg.Integrator.AbsTol = atol
	}
	if f := flags.Lookup("terminal"); f != nil {
		cfg.Output.Terminal = terminal
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

func runPath(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg)
	exp.SetLogger(logger)
	exp.SetTerminal(os.Stdout)
	if err := exp.Setup(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	res, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n%s: %d steps (%d rejected), %d evaluations in %v\n",
		res.Name, res.Stats.Steps, res.Stats.Rejected, res.Stats.Evaluations, res.Elapsed.Round(time.Microsecond))
	w := tabwriter.NewWriter(os.Stderr, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SPECIES\tFINAL (mol)")
	for _, name := range exp.System().SpeciesNames() {
		fmt.Fprintf(w, "%s\t%.6g\n", name, res.Final[name])
	}
	fmt.Fprintf(w, "element drift\t%.3g\n", res.Metrics["element_drift"])
	if err := w.Flush(); err != nil {
		return err
	}

	if !saveRun {
		return nil
	}
	st := storage.New(dataDir)
	id, err := st.Save(exp.Metadata(res), storage.Table{Columns: res.Columns, Rows: res.Rows})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "saved: %s\n", id)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	if len(temps) == 0 {
		temps = cfg.Sweep.Temperatures
	}
	if len(temps) == 0 {
		return errors.New("no temperatures: pass --temps or set sweep.temperatures")
	}
	if !cmd.Flags().Changed("workers") {
		workers = cfg.Sweep.Workers
	}

	ens := experiment.NewEnsemble(cfg, temps)
	ens.SetWorkers(workers)
	ens.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	results, err := ens.Run(ctx)
	if err != nil {
		return err
	}

	species := make([]string, 0, len(cfg.Species))
	for _, s := range cfg.Species {
		species = append(species, s.Name)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "T (K)\t%s\tSTEPS\tELAPSED\n", strings.Join(species, "\t"))
	for _, res := range results {
		vals := make([]string, len(species))
		for i, name := range species {
			vals[i] = fmt.Sprintf("%.6g", res.Final[name])
		}
		fmt.Fprintf(w, "%g\t%s\t%d\t%v\n", res.Temperature, strings.Join(vals, "\t"), res.Stats.Steps, res.Elapsed.Round(time.Microsecond))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !saveSweep {
		return nil
	}
	st := storage.New(dataDir)
	for _, res := range results {
		meta := storage.RunMetadata{
			Name:        res.Name,
			Method:      cfg.Integrator.Method,
			Start:       cfg.Start,
			Duration:    cfg.Duration,
			Temperature: res.Temperature,
			Pressure:    cfg.Initial.Pressure,
			Kinetic:     cfg.Kinetic,
			Columns:     res.Columns,
			Stats:       res.Stats,
			Final:       res.Final,
			Metrics:     res.Metrics,
		}
		id, err := st.Save(meta, storage.Table{Columns: res.Columns, Rows: res.Rows})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "saved: %s\n", id)
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	cfg.Output.Terminal = false
	cfg.Output.File = ""

	exp := experiment.New(cfg)
	// logs on stderr would tear the alternate screen
	exp.SetLogger(logging.NewNop())
	if err := exp.Setup(); err != nil {
		return err
	}
	live, err := tui.NewLive(exp)
	if err != nil {
		return err
	}
	return live.Run()
}

func fitRates(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	target, err := storage.New(dataDir).LoadTable(targetRun)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(rates))
	ranges := make([][]float64, 0, len(rates))
	for _, spec := range rates {
		name, grid, err := parseGrid(spec)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, grid)
	}
	search, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	objective, err := optim.RateObjective(cfg, target, column)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	best, sse, err := search.Search(ctx, objective)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REACTION\tFORWARD")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%.6g\n", name, best[name])
	}
	fmt.Fprintf(w, "sse\t%.6g\n", sse)
	return w.Flush()
}

// parseGrid reads "name=lo:hi:n".
func parseGrid(spec string) (string, []float64, error) {
	name, rest, ok := strings.Cut(spec, "=")
	parts := strings.Split(rest, ":")
	if !ok || name == "" || len(parts) != 3 {
		return "", nil, fmt.Errorf("malformed rate grid %q, want reaction=lo:hi:n", spec)
	}
	lo, err1 := strconv.ParseFloat(parts[0], 64)
	hi, err2 := strconv.ParseFloat(parts[1], 64)
	n, err3 := strconv.Atoi(parts[2])
	if err := errors.Join(err1, err2, err3); err != nil {
		return "", nil, fmt.Errorf("rate grid %q: %w", spec, err)
	}
	if lo <= 0 || hi < lo || n < 1 {
		return "", nil, fmt.Errorf("rate grid %q: need 0 < lo <= hi and n >= 1", spec)
	}
	return name, optim.LogSpace(lo, hi, n), nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}

	runner := automation.NewRunner(storage.New(dataDir))
	runner.SetLogger(logging.New(level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	results, err := runner.Run(ctx, scenario)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tNAME\tT (K)\tSTEPS\tRUN ID")
	for _, r := range results {
		id := r.RunID
		if id == "" {
			id = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%d\t%s\n", r.Step, r.Result.Name, r.Result.Temperature, r.Result.Stats.Steps, id)
	}
	if ferr := w.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tDURATION\tT (K)\tMETHOD\tSTEPS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%gs\t%.2f\t%s\t%d\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Temperature,
			run.Method,
			run.Stats.Steps,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	table, err := st.LoadTable(runID)
	if err != nil {
		return err
	}
	if len(table.Rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	columns := args[1:]
	if len(columns) == 0 {
		for _, c := range table.Columns {
			if c != "t" {
				columns = append(columns, c)
			}
		}
		if len(columns) > 6 {
			columns = columns[:6]
		}
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("temperature: %.2f K\n", meta.Temperature)
	fmt.Printf("samples: %d\n\n", len(table.Rows))

	for _, name := range columns {
		data, err := table.Column(name)
		if err != nil {
			return err
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name+" vs time"),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if svgFile == "" {
		return nil
	}
	chart, err := export.FromTable(table, "t", columns...)
	if err != nil {
		return err
	}
	chart.Title = meta.ID
	if err := chart.SaveSVG(svgFile); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", svgFile)
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	table, err := storage.New(dataDir).LoadTable(args[0])
	if err != nil {
		return err
	}
	portrait, err := analysis.NewPortrait(table, args[1], args[2])
	if err != nil {
		return err
	}
	if len(portrait.Points) == 0 {
		return fmt.Errorf("no data to plot")
	}
	fmt.Print(portrait.ASCII(70, 20))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	table, err := storage.New(dataDir).LoadTable(args[0])
	if err != nil {
		return err
	}
	columns := args[1:]
	if len(columns) == 0 {
		for _, c := range table.Columns {
			if strings.HasPrefix(c, "n[") {
				columns = append(columns, c)
			}
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tINITIAL\tFINAL\tMIN\tMAX\tHALF-LIFE\tSETTLE")
	for _, c := range columns {
		s, err := analysis.Summarize(table, c)
		if err != nil {
			return err
		}
		half := "-"
		if !math.IsNaN(s.HalfLife) {
			half = fmt.Sprintf("%.4gs", s.HalfLife)
		}
		fmt.Fprintf(w, "%s\t%.6g\t%.6g\t%.6g\t%.6g\t%s\t%.4gs\n",
			s.Column, s.Initial, s.Final, s.Min, s.Max, half, s.Settle)
	}
	return w.Flush()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	data, err := st.Export(args[0])
	if err != nil {
		return err
	}
	if outFile != "" {
		return storage.ExportJSON(outFile, data)
	}
	return storage.WriteJSON(os.Stdout, data)
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		fmt.Fprintf(w, "%s\t%s\n", name, config.GetPreset(name).Description)
	}
	return w.Flush()
}

func showInfo(cmd *cobra.Command, args []string) error {
	r := experiment.NewRegistry()
	fmt.Printf("methods:     %s\n", strings.Join(r.ListMethods(), ", "))
	fmt.Printf("activities:  %s\n", strings.Join(r.ListActivities(), ", "))
	fmt.Printf("solvers:     %s\n", strings.Join(r.ListSolvers(), ", "))
	return nil
}
