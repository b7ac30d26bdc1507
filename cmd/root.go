package cmd

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/brogergvhs/mangacap/internal/config"
	"github.com/brogergvhs/mangacap/internal/scrape"
	"github.com/brogergvhs/mangacap/internal/sources"
	"github.com/brogergvhs/mangacap/internal/store"
	"github.com/brogergvhs/mangacap/internal/ui"
	"github.com/brogergvhs/mangacap/internal/util"
)

var (
	flagIgnoreConfig bool
	flagDebug        bool
	flagDatabase     string
)

var rootCmd = &cobra.Command{
	Use:   "mangacap",
	Short: "Multi-site manga scraper with a local catalog",
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagIgnoreConfig, "ignore-config", false, "ignore config and use only CLI flags")
	rootCmd.PersistentFlags().StringVar(&flagDatabase, "database", "", "path to the catalog database")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// runtime bundles everything a command needs to drive the scrape core.
type runtime struct {
	cfg     *config.Config
	log     *ui.Logger
	client  *http.Client
	store   *store.SQLite
	service *scrape.Service
}

func (r *runtime) close() {
	if r.store != nil {
		_ = r.store.Close()
	}
}

func newRuntime() (*runtime, error) {
	cfg, usedPath, err := config.LoadMerged(config.Options{
		IgnoreConfig: flagIgnoreConfig,
		Debug:        flagDebug,
		Database:     flagDatabase,
	})
	if err != nil {
		return nil, err
	}

	log := ui.NewLogger(cfg.Debug)
	if usedPath != "" {
		log.Debugf("Config file: %s\n", usedPath)
	}

	client, err := util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:     cfg.HTTPTimeout(),
		UserAgent:   util.PickUserAgent(cfg.UserAgent),
		Cookie:      cfg.Cookie,
		CookieFile:  cfg.CookieFile,
		DebugLogger: log,
	})
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	registry := sources.NewRegistry(client, log, cfg.Sites)

	return &runtime{
		cfg:     cfg,
		log:     log,
		client:  client,
		store:   st,
		service: scrape.NewService(st, registry, log, cfg.ChapterWorkers),
	}, nil
}
