package main

import (
	"context"
	"database/sql"
	"log"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/solarcross/solarcross/internal/api"
	"github.com/solarcross/solarcross/internal/export"
	"github.com/solarcross/solarcross/internal/pipeline"
	"github.com/solarcross/solarcross/internal/store"
)

// app carries the shared dependencies into each subcommand.
type app struct {
	cfg    pipeline.Config
	store  *store.Store
	runner *pipeline.Runner
}

type cli struct {
	DB     string `help:"Path to the SQLite database." default:"data/solarcross.db" env:"SOLARCROSS_DB"`
	Config string `help:"Path to the JSON pipeline config; defaults apply when absent." default:"solarcross.json" env:"SOLARCROSS_CONFIG" type:"path"`

	Clean   cleanCmd   `cmd:"" help:"Clean the raw site exports and persist derived artifacts."`
	Analyze analyzeCmd `cmd:"" help:"Run correlations and cross-site comparison tests, write the summary."`
	Run     runCmd     `cmd:"" help:"Clean every site, then analyze."`
	Export  exportCmd  `cmd:"" help:"Export the latest summary as an Excel workbook."`
	Serve   serveCmd   `cmd:"" help:"Serve the dashboard over the stored artifacts."`
}

type cleanCmd struct {
	Site string `help:"Clean a single site by id instead of all sites." optional:""`
}

func (c *cleanCmd) Run(a *app) error {
	if c.Site != "" {
		_, err := a.runner.CleanSite(c.Site)
		return err
	}
	return a.runner.CleanAll()
}

type analyzeCmd struct{}

func (c *analyzeCmd) Run(a *app) error {
	summary, err := a.runner.Analyze()
	if err != nil {
		return err
	}
	if err := a.runner.WriteSummary(summary); err != nil {
		return err
	}
	log.Printf("analyze: summary written to %s", a.runner.SummaryPath())
	return nil
}

type runCmd struct{}

func (c *runCmd) Run(a *app) error {
	if err := a.runner.CleanAll(); err != nil {
		return err
	}
	summary, err := a.runner.Analyze()
	if err != nil {
		return err
	}
	if err := a.runner.WriteSummary(summary); err != nil {
		return err
	}
	log.Printf("run: summary written to %s", a.runner.SummaryPath())
	return nil
}

type exportCmd struct {
	Out string `help:"Output workbook path." default:"processed/summary.xlsx"`
}

func (c *exportCmd) Run(a *app) error {
	summary, err := pipeline.ReadSummary(a.cfg.SummaryPath())
	if err != nil {
		return err
	}
	if err := export.WriteWorkbook(summary, c.Out); err != nil {
		return err
	}
	log.Printf("export: workbook written to %s", c.Out)
	return nil
}

type serveCmd struct {
	Port string `help:"HTTP listen port." default:"8080" env:"SOLARCROSS_PORT"`
}

func (c *serveCmd) Run(a *app) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := api.NewServer(a.store, c.Port, a.cfg.SummaryPath())
	log.Printf("serve: listening on :%s", c.Port)
	return server.Run(ctx)
}

func main() {
	var flags cli
	ctx := kong.Parse(&flags,
		kong.Name("solarcross"),
		kong.Description("Cross-site solar irradiance cleaning and analysis."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
		kong.UsageOnError(),
	)

	cfg, err := pipeline.LoadConfig(flags.Config)
	ctx.FatalIfErrorf(err)

	db, err := sql.Open("sqlite", flags.DB)
	ctx.FatalIfErrorf(err)
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	ctx.FatalIfErrorf(st.Migrate())

	runner, err := pipeline.NewRunner(cfg, st)
	ctx.FatalIfErrorf(err)
	ctx.FatalIfErrorf(runner.SeedSites())

	a := &app{cfg: cfg, store: st, runner: runner}
	ctx.FatalIfErrorf(ctx.Run(a))
}
