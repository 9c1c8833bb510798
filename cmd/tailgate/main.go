// Command tailgate flags possible tailgating between vehicles detected in
// KITTI-format label files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/tailgate.report/internal/api"
	"github.com/banshee-data/tailgate.report/internal/config"
	"github.com/banshee-data/tailgate.report/internal/db"
	"github.com/banshee-data/tailgate.report/internal/export"
	"github.com/banshee-data/tailgate.report/internal/kitti"
	"github.com/banshee-data/tailgate.report/internal/monitoring"
	"github.com/banshee-data/tailgate.report/internal/tailgate"
	"github.com/banshee-data/tailgate.report/internal/units"
	"github.com/banshee-data/tailgate.report/internal/version"
	"github.com/banshee-data/tailgate.report/internal/visualiser"
)

var (
	labelsDir   = flag.String("labels", "", "Directory of KITTI label files (required)")
	imagesDir   = flag.String("images", "", "Directory of images; labels without an image are dropped")
	configPath  = flag.String("config", "", "Path to JSON config (defaults to "+config.DefaultConfigPath+")")
	laneFlag    = flag.Float64("lane", -1, "Override lane_threshold_m")
	angleFlag   = flag.Float64("angle", -1, "Override angular_threshold_rad")
	policyFlag  = flag.String("policy", "", "Override pairing_policy (adjacent or nearest)")
	unitsFlag   = flag.String("units", "", "Override speed_units ("+units.GetValidUnitsString()+")")
	dbPath      = flag.String("db", "", "Store the run in this sqlite database")
	csvPath     = flag.String("csv", "", "Write pair parameters to this CSV file")
	plotsDir    = flag.String("plots", "", "Write bird's-eye view PNGs into this directory")
	chartPath   = flag.String("chart", "", "Write the speed threshold chart to this HTML file")
	imageKey    = flag.String("image", "", "Print the parameters of a single image")
	listen      = flag.String("listen", "", "Serve the analysis over HTTP on this address, e.g. :8080")
	quiet       = flag.Bool("quiet", false, "Suppress per-detection diagnostics")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *labelsDir == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *quiet {
		monitoring.SetLogger(nil)
	}

	cfg, err := loadConfig(*configPath, overridesFromFlags())
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := outputs{
		DBPath:    *dbPath,
		CSVPath:   *csvPath,
		PlotsDir:  *plotsDir,
		ChartPath: *chartPath,
		ImageKey:  *imageKey,
	}
	a, store, err := run(ctx, cfg, *labelsDir, *imagesDir, out, os.Stdout)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if store != nil {
		defer store.Close()
	}

	if *listen == "" {
		return
	}
	metrics := monitoring.NewMetrics()
	api.ObserveAnalysis(metrics, a)
	srv := api.NewServer(a, store, metrics, cfg.GetSpeedUnits())
	if err := serve(ctx, *listen, api.LoggingMiddleware(srv.ServeMux())); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

func overridesFromFlags() *config.TailgateConfig {
	o := &config.TailgateConfig{}
	if *laneFlag >= 0 {
		o.LaneThresholdM = laneFlag
	}
	if *angleFlag >= 0 {
		o.AngularThresholdRad = angleFlag
	}
	if *policyFlag != "" {
		o.PairingPolicy = policyFlag
	}
	if *unitsFlag != "" {
		o.SpeedUnits = unitsFlag
	}
	return o
}

// loadConfig reads path, or the default config when path is empty, and
// applies overrides.
func loadConfig(path string, overrides *config.TailgateConfig) (*config.TailgateConfig, error) {
	var cfg *config.TailgateConfig
	if path == "" {
		cfg = config.MustLoadDefaultConfig()
	} else {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	cfg = cfg.WithOverrides(overrides)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// outputs selects what run writes besides the summary.
type outputs struct {
	DBPath    string
	CSVPath   string
	PlotsDir  string
	ChartPath string
	ImageKey  string
}

// run loads the labels, analyses them and writes the requested outputs.
// The returned store is open when DBPath is set.
func run(ctx context.Context, cfg *config.TailgateConfig, labels, images string, out outputs, stdout io.Writer) (*tailgate.Analysis, *db.DB, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	detector, err := tailgate.NewDetector(opts)
	if err != nil {
		return nil, nil, err
	}

	cat, err := kitti.LoadCatalogue(os.DirFS(labels))
	if err != nil {
		return nil, nil, fmt.Errorf("labels: %w", err)
	}
	if images != "" {
		names, err := kitti.ImageNames(os.DirFS(images))
		if err != nil {
			return nil, nil, fmt.Errorf("images: %w", err)
		}
		cat = kitti.RestrictToImages(cat, names)
	}

	start := time.Now()
	a, err := detector.Run(ctx, cat)
	if err != nil {
		return nil, nil, err
	}
	monitoring.Logf("analysed %d images in %v", a.Len(), time.Since(start))

	unit := cfg.GetSpeedUnits()
	printSummary(stdout, tailgate.Summarize(a), unit)

	if out.ImageKey != "" {
		if err := printImage(stdout, a, out.ImageKey, unit); err != nil {
			return nil, nil, err
		}
	}
	if out.CSVPath != "" {
		if err := writeFile(out.CSVPath, func(w io.Writer) error { return export.WriteParametersCSV(w, a) }); err != nil {
			return nil, nil, fmt.Errorf("csv: %w", err)
		}
	}
	if out.ChartPath != "" {
		if err := writeFile(out.ChartPath, func(w io.Writer) error { return visualiser.WriteSpeedChart(w, a, unit) }); err != nil {
			return nil, nil, fmt.Errorf("chart: %w", err)
		}
	}
	if out.PlotsDir != "" {
		if err := os.MkdirAll(out.PlotsDir, 0o755); err != nil {
			return nil, nil, err
		}
		n, err := visualiser.RenderAll(a, out.PlotsDir)
		if err != nil {
			return nil, nil, fmt.Errorf("plots: %w", err)
		}
		monitoring.Logf("wrote %d plots to %s", n, out.PlotsDir)
	}

	var store *db.DB
	if out.DBPath != "" {
		if store, err = db.NewDB(out.DBPath); err != nil {
			return nil, nil, fmt.Errorf("db: %w", err)
		}
		runID, err := store.RecordAnalysis(ctx, a)
		if err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("db: %w", err)
		}
		fmt.Fprintf(stdout, "stored run %s\n", runID)
	}
	return a, store, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printSummary(w io.Writer, s tailgate.Summary, unit string) {
	fmt.Fprintf(w, "images: %d (%d with fewer than two vehicles)\n", s.Images, s.DegenerateCount)
	fmt.Fprintf(w, "vehicles: %d (%d malformed skipped)\n", s.Vehicles, s.Malformed)
	fmt.Fprintf(w, "pairs: %d candidates, %d possible tailgating\n", s.Candidates, s.Retained)
	if s.Retained > 0 {
		fmt.Fprintf(w, "median following distance: %.2f m\n", s.MedianFollowingDistance)
		fmt.Fprintf(w, "p85 max speed difference: %.2f %s\n",
			units.ConvertFromKMPH(s.P85MaxSpeedDifferenceKMH, unit), units.Label(unit))
	}
}

func printImage(w io.Writer, a *tailgate.Analysis, key, unit string) error {
	res, err := a.Lookup(key)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "image %s: %d vehicles, %d candidate pairs\n", key, len(res.Roster), len(res.Candidates))
	for _, p := range res.Parameters {
		verdict := "no"
		if p.PossibleTailgating() {
			verdict = "POSSIBLE TAILGATING"
		}
		fmt.Fprintf(w, "  %-12s lane=%s", p.Pair, laneText(p))
		if p.Heading != nil {
			fmt.Fprintf(w, " heading=%s(%.3f rad)", p.Heading.Outcome, p.Heading.Difference)
		}
		if p.CurrentDistance != nil {
			fmt.Fprintf(w, " distance=%.2fm", *p.CurrentDistance)
		}
		if p.MaxSpeedDifferenceKMH != nil {
			fmt.Fprintf(w, " max_dv=%.1f%s", units.ConvertFromKMPH(*p.MaxSpeedDifferenceKMH, unit), units.Label(unit))
		}
		fmt.Fprintf(w, " -> %s\n", verdict)
	}
	return nil
}

func laneText(p tailgate.PairParameters) string {
	if p.Lane == nil {
		return "-"
	}
	return fmt.Sprintf("%s(%.2fm)", p.Lane.Outcome, p.Lane.Distance)
}

// serve runs the HTTP server until ctx is done.
func serve(ctx context.Context, addr string, h http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("serving on %s", addr)
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
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		return server.Close()
	}
	return nil
}
