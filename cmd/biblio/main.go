// Package main is the biblio CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/biblio/internal/cli"
	"github.com/hyperjump/biblio/internal/config"
	"github.com/hyperjump/biblio/internal/extract"
	"github.com/hyperjump/biblio/internal/indexer"
	"github.com/hyperjump/biblio/internal/models"
	"github.com/hyperjump/biblio/internal/query"
	"github.com/hyperjump/biblio/internal/search"
	"github.com/hyperjump/biblio/internal/server"
	"github.com/hyperjump/biblio/internal/storage"
	"github.com/hyperjump/biblio/internal/watcher"
	"github.com/hyperjump/biblio/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/biblio/config.yaml"

// errUsage marks a command line the user got wrong; usage has already been printed.
var errUsage = errors.New("invalid usage")

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// A missing default config falls back to built-in defaults.
// Returns the config and the path that was actually loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}
	command, args := os.Args[1], os.Args[2:]
	var err error
	switch command {
	case "ingest":
		err = runIngest(args, os.Stdout)
	case "search":
		err = runSearch(args, os.Stdout)
	case "show":
		err = runShow(args, os.Stdout)
	case "status":
		err = runStatus(args, os.Stdout)
	case "watch":
		err = runWatch(args, os.Stdout)
	case "serve":
		err = runServe(args)
	case "init":
		err = runInit(args, os.Stdout)
	case "version", "--version", "-v":
		fmt.Printf("biblio version %s\n", version)
	case "help", "--help", "-h":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stderr)
		os.Exit(1)
	}
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
	case errors.Is(err, errUsage):
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", command, err)
		os.Exit(1)
	}
}

// commonFlags registers the flags every local command takes.
func commonFlags(fs *flag.FlagSet) (configPath *string, debug *bool) {
	configPath = fs.String("config", defaultConfigPath, "config file path")
	debug = fs.Bool("debug", false, "enable debug logging")
	return configPath, debug
}

func outputFlag(fs *flag.FlagSet) *string {
	return fs.String("output", "text", "output format: text or json")
}

// reorderArgs moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse() sees them. Go's flag package stops
// at the first non-flag argument, so "biblio search phonon -ids 1" would otherwise
// leave -ids unparsed.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// buildSearchQuery joins all positional args with spaces so "electron, phonon" and
// electron, phonon (unquoted) are the same query.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// Components holds initialized services.
type Components struct {
	Config  *config.Config
	Logger  *zap.Logger
	Storage storage.Storage
	Engine  *search.Engine
	Indexer *indexer.Indexer
}

// Close releases the store and flushes the logger.
func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
}

// initializeComponents loads config, builds the logger and opens the store.
// Extra indexer options (progress output) are appended to the logger option.
func initializeComponents(configPath string, debug bool, idxOpts ...indexer.IndexerOption) (*Components, error) {
	cfg, resolvedConfigPath, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || debug
	logger, err := utils.NewLogger(debugMode, &utils.FileLog{
		Filename:   cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("database_path", cfg.Storage.DatabasePath),
		zap.Strings("roots", cfg.Corpus.Roots),
	)

	store, err := storage.OpenSQLite(cfg.Storage.Driver, cfg.Storage.DatabasePath)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	engine := search.NewEngine(store, cfg.Query, search.WithLogger(logger))
	idx := indexer.NewIndexer(store, extract.NewExtractor(), cfg.Corpus,
		append([]indexer.IndexerOption{indexer.WithLogger(logger)}, idxOpts...)...)

	return &Components{
		Config:  cfg,
		Logger:  logger,
		Storage: store,
		Engine:  engine,
		Indexer: idx,
	}, nil
}

func runIngest(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	configPath, debug := commonFlags(fs)
	dryRun := fs.Bool("dry-run", false, "classify files without writing anything")
	outputFormat := outputFlag(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: biblio ingest [flags] [root...]\n\nRoots default to corpus.roots from the config.\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}

	var opts []indexer.IndexerOption
	if format == cli.OutputText {
		opts = append(opts, indexer.WithProgress(cli.ProgressPrinter(stdout)))
	}
	components, err := initializeComponents(*configPath, *debug, opts...)
	if err != nil {
		return err
	}
	defer components.Close()

	idx := components.Indexer
	if fs.NArg() > 0 {
		corpus := components.Config.Corpus
		corpus.Roots = fs.Args()
		idx = indexer.NewIndexer(components.Storage, extract.NewExtractor(), corpus,
			append([]indexer.IndexerOption{indexer.WithLogger(components.Logger)}, opts...)...)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *dryRun {
		plan, err := idx.Plan(ctx)
		if err != nil {
			return err
		}
		return cli.WritePlan(stdout, plan, format)
	}
	report, err := idx.Run(ctx)
	if err != nil {
		return err
	}
	return cli.WriteIngestReport(stdout, report, format)
}

// printSearchUsage prints search subcommand usage and query syntax.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: biblio search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Query syntax:
  Keywords separated by "," must all occur on the same page.
  Groups separated by a standalone "OR" are alternatives.
  Matching is a case-insensitive substring match.

Examples:
  biblio search electron, phonon                # pages containing both
  biblio search "CdTe, phonon OR smear"         # both, or "smear"
  biblio search -ids "9812566910, hou%%" phonon  # only these ids (LIKE patterns)
  biblio search -output json phonon
`)
}

func runSearch(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	configPath, debug := commonFlags(fs)
	column := fs.String("column", "", "column to match keywords against: "+strings.Join(query.Columns(), ", ")+" (default from config)")
	ids := fs.String("ids", "", "comma-separated document id patterns (default from config, % matches all)")
	serverURL := fs.String("server", "", "server URL; when set, search through a running biblio serve")
	outputFormat := outputFlag(fs)
	fs.Usage = func() { printSearchUsage(fs) }
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		printSearchUsage(fs)
		return errUsage
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}
	searchQuery := &models.SearchQuery{
		Query:  buildSearchQuery(fs.Args()),
		Column: *column,
		IDs:    *ids,
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		response, err = searchViaHTTP(*serverURL, searchQuery)
	} else {
		var components *Components
		components, err = initializeComponents(*configPath, *debug)
		if err != nil {
			return err
		}
		defer components.Close()
		response, err = components.Engine.Search(context.Background(), searchQuery)
	}
	if err != nil {
		return err
	}
	return cli.WriteSearchResults(stdout, response, format)
}

func searchViaHTTP(serverURL string, q *models.SearchQuery) (*models.SearchResponse, error) {
	params := url.Values{}
	params.Set("q", q.Query)
	if q.Column != "" {
		params.Set("column", q.Column)
	}
	if q.IDs != "" {
		params.Set("ids", q.IDs)
	}
	var response models.SearchResponse
	if err := getJSON(serverURL+"/api/v1/search?"+params.Encode(), &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func getJSON(u string, v interface{}) error {
	resp, err := http.Get(u)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func runShow(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	configPath, debug := commonFlags(fs)
	preview := fs.Int("preview", 80, "characters of each page to print (0 = whole page)")
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(fs.Output(), "Usage: biblio show [flags] <document-id>")
		return errUsage
	}
	components, err := initializeComponents(*configPath, *debug)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx := context.Background()
	doc, err := components.Storage.GetDocument(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	pages, err := components.Storage.ListPages(ctx, doc.ID)
	if err != nil {
		return err
	}
	cli.WriteDocument(stdout, doc, pages, *preview)
	return nil
}

func runStatus(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	configPath, debug := commonFlags(fs)
	serverURL := fs.String("server", "", "server URL; when set, ask a running biblio serve")
	outputFormat := outputFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}

	var st *models.CorpusStatus
	if *serverURL != "" {
		var out struct {
			Corpus models.CorpusStatus `json:"corpus"`
		}
		if err := getJSON(*serverURL+"/api/v1/status", &out); err != nil {
			return err
		}
		st = &out.Corpus
	} else {
		components, err := initializeComponents(*configPath, *debug)
		if err != nil {
			return err
		}
		defer components.Close()
		cfg := components.Config
		st, err = storage.CollectStatus(context.Background(), components.Storage, cfg.Storage.DatabasePath, cfg.Storage.Driver)
		if err != nil {
			return err
		}
	}
	return cli.WriteStatus(stdout, st, format)
}

// watchCorpus ingests once, then re-ingests whenever files under the roots settle
// after a change. It returns when ctx is cancelled.
func watchCorpus(ctx context.Context, c *Components, onReport func(*models.IngestReport)) error {
	ingest := func(ctx context.Context) {
		report, err := c.Indexer.Run(ctx)
		if err != nil {
			c.Logger.Error("ingestion run failed", zap.Error(err))
			return
		}
		if onReport != nil {
			onReport(report)
		}
	}
	ingest(ctx)

	cfg := c.Config
	w := watcher.NewWatcher(
		cfg.Corpus.Roots,
		cfg.Corpus.Extensions,
		cfg.Corpus.RecursiveOrDefault(),
		ingest,
		watcher.WithLogger(c.Logger),
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMs)*time.Millisecond),
	)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	c.Logger.Info("watching corpus", zap.Strings("roots", cfg.Corpus.Roots))
	<-ctx.Done()
	w.Stop()
	return nil
}

func runWatch(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	configPath, debug := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	components, err := initializeComponents(*configPath, *debug, indexer.WithProgress(cli.ProgressPrinter(stdout)))
	if err != nil {
		return err
	}
	defer components.Close()
	if len(components.Config.Corpus.Roots) == 0 {
		return errors.New("no corpus roots configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchCorpus(ctx, components, func(report *models.IngestReport) {
		_ = cli.WriteIngestReport(stdout, report, cli.OutputText)
	})
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath, debug := commonFlags(fs)
	watch := fs.Bool("watch", false, "also ingest on start and re-ingest when corpus files change")
	if err := fs.Parse(args); err != nil {
		return err
	}
	components, err := initializeComponents(*configPath, *debug)
	if err != nil {
		return err
	}
	defer components.Close()
	logger := components.Logger

	srv := server.NewServer(components.Engine, components.Indexer, components.Storage, components.Config, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	if *watch {
		g.Go(func() error {
			return watchCorpus(gctx, components, nil)
		})
	}
	return g.Wait()
}

func runInit(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "where to write the config file")
	force := fs.Bool("force", false, "overwrite an existing config file")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: biblio init [flags] [root...]\n\nWrites a config with default settings and the given corpus roots.\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	if _, err := os.Stat(*configPath); err == nil && !*force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", *configPath)
	}
	cfg := config.Default()
	for _, root := range fs.Args() {
		abs, err := filepath.Abs(root)
		if err != nil {
			return err
		}
		cfg.Corpus.Roots = append(cfg.Corpus.Roots, abs)
	}
	if err := config.Save(*configPath, cfg); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote %s\n", *configPath)
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `biblio - personal document corpus index

Usage:
  biblio ingest [flags] [root...]   Ingest new documents and record moved ones
  biblio search [flags] <query>     Search page text (keywords "a, b OR c")
  biblio show [flags] <id>          Show a document and its pages
  biblio status [flags]             Show corpus size and store location
  biblio watch [flags]              Ingest, then re-ingest when files change
  biblio serve [flags]              Start the HTTP API
  biblio init [flags] [root...]     Write a starter config file
  biblio version                    Show version
  biblio help                       Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/biblio/config.yaml,
                     or ./config.yaml when present)
  --debug            Enable debug logging

Ingest Flags:
  --dry-run          Classify files (new, moved, unchanged, duplicate) without writing
  --output string    Output format: text or json (default: text)

Search Flags:
  --column string    Column to match: content, id or page (default: content)
  --ids string       Comma-separated id patterns; % and _ are wildcards (default: %)
  --server string    Search through a running "biblio serve" at this URL
  --output string    Output format: text or json (default: text)

Serve Flags:
  --watch            Ingest on start and whenever corpus files change

Examples:
  biblio init ~/papers ~/books
  biblio ingest
  biblio search electron, phonon
  biblio search "CdTe, phonon OR smear" -ids "9812566910, hou%"
  biblio show 9812566910
  biblio serve --watch`)
}
