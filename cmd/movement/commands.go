package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gonum.org/v1/plot"

	"github.com/banshee-data/movement.report/internal/api"
	"github.com/banshee-data/movement.report/internal/config"
	"github.com/banshee-data/movement.report/internal/db"
	"github.com/banshee-data/movement.report/internal/fsutil"
	"github.com/banshee-data/movement.report/internal/heatmap"
	"github.com/banshee-data/movement.report/internal/kinematics"
	"github.com/banshee-data/movement.report/internal/monitoring"
	"github.com/banshee-data/movement.report/internal/movement"
	"github.com/banshee-data/movement.report/internal/render"
	"github.com/banshee-data/movement.report/internal/report"
	"github.com/banshee-data/movement.report/internal/security"
	"github.com/banshee-data/movement.report/internal/tracking"
	"github.com/banshee-data/movement.report/internal/units"
	"github.com/banshee-data/movement.report/internal/version"
)

// analysisFlags are shared by every command that runs the analysis.
type analysisFlags struct {
	config    *string
	threshold *float64
	units     *string
	workers   *int
}

func addAnalysisFlags(fs *flag.FlagSet) *analysisFlags {
	return &analysisFlags{
		config:    fs.String("config", "", "Analysis config file (.json, .yaml or .yml)"),
		threshold: fs.Float64("threshold", 0, "Sprint threshold in length units per second (overrides config)"),
		units:     fs.String("units", "", "Display speed units: "+units.GetValidUnitsString()),
		workers:   fs.Int("workers", 0, "Derivation workers, 0 for one per CPU"),
	}
}

// resolve layers the built-in defaults, the config file and any flags the
// user set explicitly, in that order.
func (a *analysisFlags) resolve(fs *flag.FlagSet) (*config.AnalysisConfig, error) {
	cfg := config.DefaultAnalysisConfig()
	if *a.config != "" {
		loaded, err := config.LoadAnalysisConfig(*a.config)
		if err != nil {
			return nil, err
		}
		cfg = cfg.Merge(loaded)
	}

	override := config.EmptyAnalysisConfig()
	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "threshold":
			if math.IsNaN(*a.threshold) || math.IsInf(*a.threshold, 0) {
				err = fmt.Errorf("invalid --threshold %v", *a.threshold)
			}
			override.SprintThreshold = a.threshold
		case "units":
			if !units.IsValid(*a.units) {
				err = fmt.Errorf("invalid --units %q, must be one of %s", *a.units, units.GetValidUnitsString())
			}
			override.SpeedUnits = a.units
		case "workers":
			override.Workers = a.workers
		}
	})
	if err != nil {
		return nil, err
	}
	cfg = cfg.Merge(override)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadMatch(path string, cfg *config.AnalysisConfig) (*tracking.Match, error) {
	return tracking.NewLoader(nil, cfg.GetMemoizeLoads()).Load(path)
}

// selectEntities returns the requested entity, or the whole roster when id
// is empty.
func selectEntities(m *tracking.Match, id string) ([]tracking.Entity, error) {
	if id == "" {
		return m.Roster.Entities(), nil
	}
	e, ok := m.Roster.Get(id)
	if !ok {
		return nil, fmt.Errorf("entity %q not found in match %s", id, m.ID)
	}
	return []tracking.Entity{e}, nil
}

func runStats(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	entity := fs.String("entity", "", "Report only this entity id")
	af := addAnalysisFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("stats takes exactly one match export")
	}
	cfg, err := af.resolve(fs)
	if err != nil {
		return err
	}
	m, err := loadMatch(fs.Arg(0), cfg)
	if err != nil {
		return err
	}

	var reports []*report.EntityReport
	if *entity != "" {
		if _, err := selectEntities(m, *entity); err != nil {
			return err
		}
		r, err := report.Build(m, *entity, cfg)
		if err != nil {
			return err
		}
		reports = append(reports, r)
	} else {
		reports, err = report.BuildAll(context.Background(), m, cfg)
		if err != nil {
			return err
		}
	}

	for _, r := range reports {
		if err := report.Format(out, r, cfg.GetLengthUnit(), cfg.GetSpeedUnits()); err != nil {
			return err
		}
	}
	return nil
}

func runPlot(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	entity := fs.String("entity", "", "Plot only this entity id")
	outDir := fs.String("out", "plots", "Output directory for PNG files")
	af := addAnalysisFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("plot takes exactly one match export")
	}
	cfg, err := af.resolve(fs)
	if err != nil {
		return err
	}
	if err := security.ValidateOutputPath(*outDir); err != nil {
		return fmt.Errorf("invalid --out: %w", err)
	}
	fsys := fsutil.OSFileSystem{}
	if err := fsys.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	m, err := loadMatch(fs.Arg(0), cfg)
	if err != nil {
		return err
	}
	entities, err := selectEntities(m, *entity)
	if err != nil {
		return err
	}
	derived, err := kinematics.DeriveParallel(context.Background(), m.Samples, cfg.GetWorkers())
	if err != nil {
		return err
	}

	pitch := heatmap.Pitch{Length: cfg.GetPitchLength(), Width: cfg.GetPitchWidth()}
	lengthUnit := cfg.GetLengthUnit()
	threshold := cfg.GetSprintThreshold()
	for _, e := range entities {
		g, err := heatmap.Occupancy(m.EntitySamples(e.ID), pitch, cfg.GetHeatmapBinsX(), cfg.GetHeatmapBinsY())
		if err != nil {
			return err
		}
		hp, err := render.HeatMapPlot(e.DisplayName()+" - Heat Map", g, lengthUnit)
		if err != nil {
			return err
		}
		title := fmt.Sprintf("%s - Sprint Map (>%g %s/s)", e.DisplayName(), threshold, units.LengthLabel(lengthUnit))
		sp, err := render.SprintMapPlot(title, pitch, movement.SprintVectors(derived, e.ID, threshold), cfg.GetSprintVectorScale(), lengthUnit)
		if err != nil {
			return err
		}

		for _, pl := range []struct {
			kind string
			p    *plot.Plot
		}{{"heatmap", hp}, {"sprints", sp}} {
			path, err := security.PlotPath(*outDir, m.ID, e.ID, pl.kind)
			if err != nil {
				return err
			}
			if err := render.SavePNG(fsys, pl.p, path); err != nil {
				return err
			}
			fmt.Fprintf(out, "wrote %s\n", path)
		}
	}
	return nil
}

func runImport(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	dbPath := fs.String("db", "movement.db", "SQLite database path")
	matchID := fs.String("match-id", "", "Match id to store under (single file only; defaults to the file name)")
	recordRun := fs.Bool("record-run", false, "Record an analysis run for each imported match")
	af := addAnalysisFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("import needs at least one match export")
	}
	if *matchID != "" && fs.NArg() > 1 {
		return errors.New("--match-id only applies to a single file")
	}
	cfg, err := af.resolve(fs)
	if err != nil {
		return err
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	for _, path := range fs.Args() {
		m, err := loadMatch(path, cfg)
		if err != nil {
			return err
		}
		if *matchID != "" {
			m.ID = *matchID
		}
		if err := store.ImportMatch(ctx, m, filepath.Base(path)); err != nil {
			return err
		}
		fmt.Fprintf(out, "imported %s: %d samples, %d entities\n", m.ID, len(m.Samples), m.Roster.Len())

		if !*recordRun {
			continue
		}
		reports, err := report.BuildAll(ctx, m, cfg)
		if err != nil {
			return err
		}
		summaries := make([]movement.Summary, len(reports))
		for i, r := range reports {
			summaries[i] = r.Summary
		}
		run, err := store.RecordRun(ctx, m.ID, cfg.GetSprintThreshold(), summaries)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "recorded run %s (threshold %g)\n", run.RunID, run.SprintThreshold)
	}
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	listen := fs.String("listen", ":8080", "Listen address")
	dbPath := fs.String("db", "movement.db", "SQLite database path")
	dir := fs.String("dir", "", "Serve CSV exports from this directory instead of the database")
	af := addAnalysisFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := af.resolve(fs)
	if err != nil {
		return err
	}

	var (
		source api.MatchSource
		runs   api.RunStore
		store  *db.DB
	)
	if *dir != "" {
		source = api.NewDirSource(*dir, tracking.NewLoader(nil, cfg.GetMemoizeLoads()))
	} else {
		store, err = db.NewDB(*dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()
		source, runs = store, store
	}

	mux := api.NewServer(source, runs, cfg).ServeMux()
	if store != nil {
		store.AttachAdminRoutes(mux)
	}

	server := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(mux),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		monitoring.Logf("%s listening on %s", version.String("movement"), *listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		return server.Close()
	}
	return nil
}
