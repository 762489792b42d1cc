package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/Requip-Digital/Inspection-Tool/internal/config"
	"github.com/Requip-Digital/Inspection-Tool/internal/httpapi"
	"github.com/Requip-Digital/Inspection-Tool/internal/inspection"
	"github.com/Requip-Digital/Inspection-Tool/internal/mcp"
	"github.com/Requip-Digital/Inspection-Tool/internal/metrics"
	"github.com/Requip-Digital/Inspection-Tool/internal/record"
	"github.com/Requip-Digital/Inspection-Tool/internal/record/sqlstore"
	"github.com/Requip-Digital/Inspection-Tool/internal/report"
	"github.com/Requip-Digital/Inspection-Tool/internal/report/watermark"
	"github.com/Requip-Digital/Inspection-Tool/internal/template"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

const poolMetricsInterval = 15 * time.Second

// setupLogging maps the configured level onto klog. klog writes to stderr,
// which keeps stdout free for the MCP protocol in stdio mode.
func setupLogging(cfg *config.Config) {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	_ = fs.Set("logtostderr", "true")
	_ = fs.Set("v", strconv.Itoa(cfg.Verbosity()))
	if cfg.LogLevel == "error" {
		_ = fs.Set("stderrthreshold", "ERROR")
	}
}

// app holds the wired services
type app struct {
	store   record.Store
	records *inspection.Service
	reports *report.Service
}

func (a *app) Close() error {
	return a.store.Close()
}

// openStore connects the configured record store
func openStore(cfg *config.Config) (record.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		klog.Warning("Using the in-memory store; records are lost on exit")
		return record.NewMemoryStore(), nil
	case config.StoreSQLite, config.StoreMySQL:
		return sqlstore.Open(cfg.Store, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// buildApp wires the template registry, the store and both services
func buildApp(cfg *config.Config) (*app, error) {
	registry, err := template.LoadRegistry(cfg.Templates)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("Loaded templates: %s", registry)

	header, err := report.LoadHeader(cfg.LogoPath)
	if err != nil {
		// the header falls back to the title alone
		klog.Warningf("Report logo unavailable: %v", err)
	}

	stamper, err := watermark.New(cfg.WatermarkPath)
	if err != nil {
		klog.Warningf("Watermark image unavailable, reports will not be watermarked: %v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	records := inspection.NewService(store, registry, cfg.MaxMachines)
	opts := report.Options{
		Projects:  records,
		Templates: registry,
		Machines:  store,
		Stamper:   stamper,
		Header:    header,
		TempDir:   cfg.TempDir,
	}
	if cfg.PhotoDir != "" {
		opts.Photos = report.DirPhotos(cfg.PhotoDir)
	}

	return &app{store: store, records: records, reports: report.NewService(opts)}, nil
}

// watchPool refreshes the connection pool gauges of database stores
func watchPool(ctx context.Context, store record.Store) {
	s, ok := store.(*sqlstore.Store)
	if !ok {
		return
	}
	ticker := time.NewTicker(poolMetricsInterval)
	defer ticker.Stop()
	for {
		if err := metrics.UpdateDatabaseConnections(s.DB()); err != nil {
			klog.V(4).Infof("Pool metrics: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runServerMode serves the HTTP API with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, a *app) error {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signalCh)

	go watchPool(ctx, a.store)

	if !cfg.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.SetupRoutes(httpapi.Dependencies{
		Records: a.records,
		Reports: a.reports,
		Store:   a.store,
		Version: cfg.Version,
	})
	server := httpapi.NewServer(cfg.Address(), router)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		klog.Infof("Received signal: %s, initiating graceful shutdown", sig)
		cancel()
		return <-serverErrCh
	case err := <-serverErrCh:
		return err
	}
}

// runStdioMode serves the MCP tools; the parent process controls the lifecycle
func runStdioMode(ctx context.Context, cfg *config.Config, a *app) error {
	server, err := mcp.NewServer(cfg, a.records, a.reports)
	if err != nil {
		return err
	}
	return server.Run(ctx)
}

func main() {
	cfg, err := config.LoadFromFlags()
	if errors.Is(err, config.ErrVersionRequested) {
		printVersion()
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg)
	defer klog.Flush()

	if version != "dev" {
		cfg.Version = version
	}
	klog.V(1).Infof("Starting with configuration: %s", cfg)

	a, err := buildApp(cfg)
	if err != nil {
		klog.Errorf("Failed to start: %v", err)
		klog.Flush()
		os.Exit(1)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	switch {
	case cfg.IsServerMode():
		err = runServerMode(ctx, cancel, cfg, a)
	case cfg.IsStdioMode():
		err = runStdioMode(ctx, cfg, a)
	}
	if err != nil {
		klog.Errorf("Server error: %v", err)
		klog.Flush()
		a.Close()
		os.Exit(1)
	}
	klog.V(1).Info("Server stopped")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("Inspection Report\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
