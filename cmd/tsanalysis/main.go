// Command tsanalysis runs time series and causal diagnostics on a csv or xlsx file, prints a
// column schema, or serves the same operations over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tsanalysis "github.com/aouyang1/go-tsanalysis"
	"github.com/aouyang1/go-tsanalysis/config"
	"github.com/aouyang1/go-tsanalysis/dataset"
	"github.com/aouyang1/go-tsanalysis/server"
	"github.com/goccy/go-json"
	"github.com/pkg/profile"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrMissingFlag    = errors.New("missing required flag")
	ErrUnknownProfile = errors.New("unknown profile mode")
)

const usage = `usage: tsanalysis <command> [flags]

commands:
  timeseries  parse, resample, test, decompose and forecast a value column
  causal      correlation and granger causality between two columns
  schema      list the columns of a dataset
  serve       serve the http api
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, ErrUnknownCommand) || errors.Is(err, ErrMissingFlag) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// common holds the flags shared by every command.
type common struct {
	configPath string
	dataPath   string
	profile    string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "path to a yaml config file")
	fs.StringVar(&c.dataPath, "data", "", "dataset file (.csv, .xlsx), overrides dataset.path")
	fs.StringVar(&c.profile, "profile", "", "write a cpu or mem profile to the working directory")
}

// setup loads the config and installs the default logger.
func (c *common) setup(stderr io.Writer) (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.dataPath != "" {
		cfg.Dataset.Path = c.dataPath
	}
	logger, err := cfg.Logger(stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cfg, nil
}

func (c *common) startProfile() (interface{ Stop() }, error) {
	switch c.profile {
	case "":
		return noopStopper{}, nil
	case "cpu":
		return profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet), nil
	case "mem":
		return profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet), nil
	}
	return nil, fmt.Errorf("got %q, %w", c.profile, ErrUnknownProfile)
}

type noopStopper struct{}

func (noopStopper) Stop() {}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("no command given, %w", ErrUnknownCommand)
	}
	switch args[0] {
	case "timeseries":
		return runTimeSeries(args[1:], stdout, stderr)
	case "causal":
		return runCausal(args[1:], stdout, stderr)
	case "schema":
		return runSchema(args[1:], stdout, stderr)
	case "serve":
		return runServe(ctx, args[1:], stderr)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	}
	fmt.Fprint(stderr, usage)
	return fmt.Errorf("%q, %w", args[0], ErrUnknownCommand)
}

func loadDataset(cfg *config.Config) (*dataset.Dataset, error) {
	if cfg.Dataset.Path == "" {
		return nil, fmt.Errorf("-data or dataset.path, %w", ErrMissingFlag)
	}
	return dataset.Load(cfg.Dataset.Path)
}

func analysisOptions(cfg *config.Config) (*tsanalysis.Options, error) {
	opt, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	if cfg.Artifacts.Dir != "" {
		sink, err := cfg.Sink()
		if err != nil {
			return nil, err
		}
		opt.Sink = sink
	}
	return opt, nil
}

func runTimeSeries(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("timeseries", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	var req tsanalysis.TimeSeriesRequest
	fs.StringVar(&req.DateColumn, "date", "", "date column")
	fs.StringVar(&req.ValueColumn, "value", "", "value column")
	fs.StringVar(&req.Frequency, "freq", "", "resampling frequency alias, e.g. D, W-MON, MS")
	fs.IntVar(&req.Horizon, "horizon", 0, "forecast steps, 0 uses analysis.horizon")
	table := fs.Bool("table", false, "print the fitted model as a table instead of json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if req.DateColumn == "" || req.ValueColumn == "" {
		return fmt.Errorf("-date and -value, %w", ErrMissingFlag)
	}

	cfg, err := c.setup(stderr)
	if err != nil {
		return err
	}
	prof, err := c.startProfile()
	if err != nil {
		return err
	}
	defer prof.Stop()

	ds, err := loadDataset(cfg)
	if err != nil {
		return err
	}
	opt, err := analysisOptions(cfg)
	if err != nil {
		return err
	}
	bundle, err := tsanalysis.AnalyzeTimeSeries(ds, req, opt)
	if err != nil {
		return err
	}

	if *table {
		fmt.Fprintf(stdout, "observations: %d, frequency: %s, dates: %s\n", bundle.NObs, bundle.Frequency, bundle.ParseInfo.Detail)
		fmt.Fprintf(stdout, "forecast: %s\n", bundle.ForecastState)
		if bundle.ForecastFit == nil {
			fmt.Fprintf(stdout, "  %s\n", bundle.ForecastError)
			return nil
		}
		return bundle.ForecastFit.TablePrint(stdout, "", "  ")
	}
	return writeJSON(stdout, bundle)
}

func runCausal(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("causal", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	var req tsanalysis.CausalRequest
	fs.StringVar(&req.XColumn, "x", "", "candidate cause column")
	fs.StringVar(&req.YColumn, "y", "", "effect column")
	fs.IntVar(&req.MaxLag, "maxlag", 0, "largest granger lag, 0 uses analysis.max_lag")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if req.XColumn == "" || req.YColumn == "" {
		return fmt.Errorf("-x and -y, %w", ErrMissingFlag)
	}

	cfg, err := c.setup(stderr)
	if err != nil {
		return err
	}
	prof, err := c.startProfile()
	if err != nil {
		return err
	}
	defer prof.Stop()

	ds, err := loadDataset(cfg)
	if err != nil {
		return err
	}
	opt, err := analysisOptions(cfg)
	if err != nil {
		return err
	}
	res, err := tsanalysis.AnalyzeCausality(ds, req, opt)
	if err != nil {
		return err
	}
	return writeJSON(stdout, res)
}

func runSchema(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("schema", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := c.setup(stderr)
	if err != nil {
		return err
	}
	ds, err := loadDataset(cfg)
	if err != nil {
		return err
	}
	return writeJSON(stdout, ds.Schema())
}

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	addr := fs.String("addr", "", "listen address, overrides server.addr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := c.setup(stderr)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	prof, err := c.startProfile()
	if err != nil {
		return err
	}
	defer prof.Stop()

	opt, err := cfg.Options()
	if err != nil {
		return err
	}
	sink, err := cfg.Sink()
	if err != nil {
		return err
	}
	opt.Sink = sink

	srv, err := server.New(dataset.NewStore(cfg.Dataset.Path), opt, &server.Options{
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, slog.Default())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("unable to encode output, %w", err)
	}
	return nil
}
