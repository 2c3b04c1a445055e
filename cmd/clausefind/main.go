// Package main is the clausefind CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hyperjump/clausefind/internal/cli"
	"github.com/hyperjump/clausefind/internal/config"
	"github.com/hyperjump/clausefind/internal/extract"
	"github.com/hyperjump/clausefind/internal/ingest"
	"github.com/hyperjump/clausefind/internal/models"
	"github.com/hyperjump/clausefind/internal/retrieval"
	"github.com/hyperjump/clausefind/internal/server"
	"github.com/hyperjump/clausefind/internal/storage"
	"github.com/hyperjump/clausefind/internal/vector"
	"github.com/hyperjump/clausefind/internal/watcher"
	"github.com/hyperjump/clausefind/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/clausefind/config.yaml"
	defaultServerURL  = "http://localhost:8080"
	fileIngestTimeout = 5 * time.Minute
)

// loadConfig loads config from path. When path is the default, a config.yaml in the
// current directory wins; when neither exists the built-in defaults are used.
// Returns the config and the path that was actually loaded ("" for defaults).
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
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
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
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "ingest":
		runIngest()
	case "watch":
		runWatch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("clausefind version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and creates the logger shared by every subcommand.
func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debugFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug || *debug),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var watchSvc *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		watchSvc = startWatcher(ctx, cfg.Watch.Directories, cfg, components.Ingester, logger)
	}

	srv := server.NewServer(components.Store, components.Retriever, components.Ingester, components.Cache, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	waitForSignal()
	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func startWatcher(ctx context.Context, dirs []string, cfg *config.Config, ing *ingest.Ingester, logger *zap.Logger) *watcher.Watcher {
	w := watcher.NewWatcher(
		dirs,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		watcher.IngestFunc(ctx, ing, fileIngestTimeout, logger),
		watcher.WithLogger(logger),
	)
	if err := w.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	w.SyncExistingFiles()
	return w
}

func waitForSignal() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
}

// runWatch ingests files under the given directories (or watch.directories) until
// interrupted, without serving HTTP.
func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(*configPath, *debug)
	defer logger.Sync()

	dirs := cfg.Watch.Directories
	if fs.NArg() > 0 {
		dirs = make([]string, 0, fs.NArg())
		for _, d := range fs.Args() {
			abs, err := filepath.Abs(d)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid directory %s: %v\n", d, err)
				os.Exit(1)
			}
			dirs = append(dirs, abs)
		}
	}
	if len(dirs) == 0 {
		fmt.Println("Usage: clausefind watch [flags] <directory>...")
		fmt.Println("  (or set watch.directories in the config file)")
		os.Exit(1)
	}

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := startWatcher(ctx, dirs, cfg, components.Ingester, logger)
	fmt.Printf("Watching %s (Ctrl-C to stop)\n", strings.Join(w.Directories(), ", "))
	waitForSignal()
	w.Stop()
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: clausefind search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Results are nearest chunks by embedding distance, reordered by how well the query
matches each chunk's section headings.

Examples:
  clausefind search knee surgery
  clausefind search "is maternity covered" --top-k 10
  clausefind search --server "" --output json waiting period   # read the index directly
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
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

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the index directly)")
	topK := fs.Int("top-k", 0, "number of results (default from config)")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var response *models.RetrieveResponse
	if *serverURL != "" {
		response, err = searchViaHTTP(*serverURL, &models.RetrieveRequest{Query: queryStr, TopK: *topK})
	} else {
		response, err = searchDirect(*configPath, queryStr, *topK)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// searchDirect opens the persisted index without a server. A missing index is
// reported rather than searched as empty.
func searchDirect(configPath, query string, topK int) (*models.RetrieveResponse, error) {
	cfg, _, logger := setup(configPath, false)
	defer logger.Sync()

	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer embedder.Close()
	opts, closeHeading, err := retrieverOptions(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer closeHeading()

	r, store, err := retrieval.Open(cfg.Storage.IndexPath, cfg.Storage.MetadataPath, embedder, storeOptions(cfg, logger), opts...)
	if errors.Is(err, vector.ErrNotFound) {
		return nil, fmt.Errorf("no index at %s; run `clausefind ingest` first", cfg.Storage.IndexPath)
	}
	if err != nil {
		return nil, err
	}
	defer store.Close()

	req := &models.RetrieveRequest{Query: query, TopK: topK}
	if err := req.Validate(cfg.Retrieval.TopK, cfg.Retrieval.MaxTopK); err != nil {
		return nil, err
	}
	return r.Retrieve(context.Background(), req.Query, req.TopK)
}

func searchViaHTTP(serverURL string, req *models.RetrieveRequest) (*models.RetrieveResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.RetrieveResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

// expandSources turns CLI arguments into document sources. URLs pass through,
// directories contribute every file with one of exts below them, and anything else
// is a doublestar pattern. An existing file is taken as is, whatever its extension.
func expandSources(args []string, exts []string) ([]string, error) {
	var sources []string
	seen := make(map[string]bool)
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			sources = append(sources, s)
		}
	}
	for _, arg := range args {
		if extract.IsRemote(arg) {
			add(arg)
			continue
		}
		pattern := arg
		if info, err := os.Stat(arg); err == nil {
			if !info.IsDir() {
				abs, err := filepath.Abs(arg)
				if err != nil {
					return nil, err
				}
				add(abs)
				continue
			}
			pattern = filepath.Join(arg, "**", "*")
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", arg)
		}
		for _, m := range matches {
			if pattern != arg && !hasExtension(m, exts) {
				continue
			}
			abs, err := filepath.Abs(m)
			if err != nil {
				return nil, err
			}
			add(abs)
		}
	}
	return sources, nil
}

func hasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: clausefind ingest [flags] <file|directory|glob|url>...")
		os.Exit(1)
	}
	cfg, _, logger := setup(*configPath, *debug)
	defer logger.Sync()

	sources, err := expandSources(fs.Args(), cfg.Watch.Extensions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	bar := newProgressBar(len(sources))
	var ingested, skipped, failed, chunks int
	for _, src := range sources {
		ctx, cancel := context.WithTimeout(context.Background(), fileIngestTimeout)
		res, err := components.Ingester.IngestDocument(ctx, src)
		cancel()
		switch {
		case err != nil:
			failed++
			logger.Error("ingest failed", zap.String("path", src), zap.Error(err))
		case res.Skipped:
			skipped++
		default:
			ingested++
			chunks += res.Chunks
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	fmt.Printf("Ingested %d document(s) (%d chunks), skipped %d already processed, %d failed. Index size: %d\n",
		ingested, chunks, skipped, failed, components.Store.Size())
	if failed > 0 {
		os.Exit(1)
	}
}

// newProgressBar returns nil when stderr is not a terminal.
func newProgressBar(total int) *progressbar.ProgressBar {
	if total <= 1 || !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("ingesting"),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	IndexPath    string  `json:"index_path"`
	MetadataPath string  `json:"metadata_path"`
	CacheBackend string  `json:"cache_backend"`
	Embedding    string  `json:"embedding"`
	Heading      string  `json:"heading"`
	TopK         int     `json:"top_k"`
	BoostWeight  float64 `json:"boost_weight"`
	ChunkSize    int     `json:"chunk_size"`
	ChunkOverlap int     `json:"chunk_overlap"`
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	IndexSize      int                   `json:"index_size"`
	IndexType      string                `json:"index_type"`
	Dimensions     int                   `json:"dimensions"`
	Documents      int                   `json:"documents"`
	UptimeSeconds  int64                 `json:"uptime_seconds,omitempty"`
	DiskUsageBytes *int64                `json:"disk_usage_bytes,omitempty"`
	Config         *statusConfigResponse `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read local files)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status *statusResponse
	var err error
	if *serverURL != "" {
		status, err = statusViaHTTP(*serverURL)
	} else {
		status, err = statusDirect(*configPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		writeStatusText(os.Stdout, status)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusDirect(configPath string) (*statusResponse, error) {
	cfg, _, logger := setup(configPath, false)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()

	docs, err := components.Cache.Len()
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	status := &statusResponse{
		IndexSize:  components.Store.Size(),
		IndexType:  components.Store.Type(),
		Dimensions: components.Store.Dimensions(),
		Documents:  docs,
		Config: &statusConfigResponse{
			IndexPath:    cfg.Storage.IndexPath,
			MetadataPath: cfg.Storage.MetadataPath,
			CacheBackend: cfg.Storage.CacheBackend,
			Embedding:    cfg.Embedding.Model,
			Heading:      cfg.Heading.Encoder,
			TopK:         cfg.Retrieval.TopK,
			BoostWeight:  cfg.Retrieval.BoostWeightOrDefault(),
			ChunkSize:    cfg.Chunking.ChunkSize,
			ChunkOverlap: cfg.Chunking.ChunkOverlap,
		},
	}
	if diskBytes, err := storage.DiskUsageBytes(cfg.Storage.IndexPath, cfg.Storage.MetadataPath, cfg.Storage.CacheFile()); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	return status, nil
}

func writeStatusText(w io.Writer, status *statusResponse) {
	fmt.Fprintf(w, "documents:       %d   # processed documents in the ingestion cache\n", status.Documents)
	fmt.Fprintf(w, "index_size:      %d   # chunks in the vector index\n", status.IndexSize)
	fmt.Fprintf(w, "index_type:      %s\n", status.IndexType)
	fmt.Fprintf(w, "dimensions:      %d\n", status.Dimensions)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage:      %d bytes\n", *status.DiskUsageBytes)
	}
	if status.Config == nil {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# configuration")
	fmt.Fprintf(w, "index_path:      %s\n", status.Config.IndexPath)
	fmt.Fprintf(w, "metadata_path:   %s\n", status.Config.MetadataPath)
	fmt.Fprintf(w, "cache_backend:   %s\n", status.Config.CacheBackend)
	fmt.Fprintf(w, "embedding_model: %s\n", status.Config.Embedding)
	fmt.Fprintf(w, "heading_encoder: %s\n", status.Config.Heading)
	fmt.Fprintf(w, "top_k:           %d\n", status.Config.TopK)
	fmt.Fprintf(w, "boost_weight:    %.2f\n", status.Config.BoostWeight)
	fmt.Fprintf(w, "chunk_size:      %d\n", status.Config.ChunkSize)
	fmt.Fprintf(w, "chunk_overlap:   %d\n", status.Config.ChunkOverlap)
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func printUsage() {
	fmt.Println(`clausefind - semantic search over policy and contract documents

Usage:
  clausefind ingest [flags] <path>...   Ingest files, directories, globs or URLs
  clausefind search [flags] <query>     Search the index
  clausefind server [flags]             Start the HTTP server (and watch directories)
  clausefind watch [flags] [dir]...     Ingest new files as they appear
  clausefind status [flags]             Show index and cache status
  clausefind version                    Show version
  clausefind help                       Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/clausefind/config.yaml,
                     or ./config.yaml when present; built-in defaults otherwise)
  --debug            Enable debug logging (server, ingest, watch)

Search Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" to read the index directly.
  --top-k int        Number of results (default: retrieval.top_k)
  --output string    Output format: text, compact or json (default: text)

Status Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" to read local files.
  --output string    Output format: text or json (default: text)

Environment:
  OPENAI_API_KEY     API key for embeddings and query expansion (also read from .env)

Examples:
  clausefind ingest policy.pdf 'contracts/**/*.docx'
  clausefind ingest https://example.com/wording.pdf
  clausefind server
  clausefind search "does the policy cover knee surgery"
  clausefind search --output json waiting period
  clausefind status --server ""`)
}
