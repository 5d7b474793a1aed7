package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gin-gonic/gin"
	"github.com/tinytelemetry/inferd/internal/archive"
	"github.com/tinytelemetry/inferd/internal/httpserver"
	"github.com/tinytelemetry/inferd/internal/inference"
	"github.com/tinytelemetry/inferd/internal/logquery"
	"github.com/tinytelemetry/inferd/internal/predict"
	"github.com/tinytelemetry/inferd/internal/sink"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
)

// app holds every long-lived component. It is assembled once from appConfig.
type app struct {
	handle  *inference.Handle
	sink    sink.Sink
	predict *predict.Service
	logs    *logquery.Service
	archive *archive.Manager
	api     *httpserver.Server
}

// newApp wires the components. A model that fails to load does not fail startup;
// the handle stays unavailable and /predict answers 503.
func newApp(cfg appConfig, console io.Writer, load func(inference.Config) *inference.Handle) (*app, error) {
	// Console records share stdout; keep gin's debug output off it.
	gin.SetMode(gin.ReleaseMode)

	handle := load(inference.Config{
		ModelPath:   cfg.ModelPath,
		LibraryPath: cfg.ORTLibraryPath,
	})

	dest := cfg.Destination()
	recordSink, err := sink.New(dest, cfg.LogFilePath, console, log.Default())
	if err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("failed to initialize log sink: %w", err)
	}

	var reader logquery.LineReader
	var archiveManager *archive.Manager
	if local, ok := recordSink.(*sink.LocalFile); ok {
		reader = local.Journal()
		archiveManager, err = archive.NewManager(local.Journal(), archive.Config{
			Enabled:        cfg.ArchiveEnabled,
			Interval:       cfg.ArchiveInterval,
			LocalDir:       cfg.ArchiveLocalDir,
			KeepLast:       cfg.ArchiveKeepLast,
			BucketURL:      cfg.ArchiveBucketURL,
			S3Endpoint:     cfg.ArchiveS3Endpoint,
			S3Region:       cfg.ArchiveS3Region,
			S3AccessKey:    cfg.ArchiveS3AccessKey,
			S3SecretKey:    cfg.ArchiveS3SecretKey,
			S3SessionToken: cfg.ArchiveS3Token,
			S3UseSSL:       cfg.ArchiveS3UseSSL,
		})
		if err != nil {
			_ = handle.Close()
			return nil, fmt.Errorf("failed to initialize log archive: %w", err)
		}
	} else if cfg.ArchiveEnabled {
		log.Printf("server: archive disabled, log destination %q keeps no local file", dest)
	}

	predictor := predict.NewService(handle, recordSink)
	logs := logquery.NewService(dest, reader)

	return &app{
		handle:  handle,
		sink:    recordSink,
		predict: predictor,
		logs:    logs,
		archive: archiveManager,
		api:     httpserver.NewServer(cfg.APIAddr, predictor, logs),
	}, nil
}

func (a *app) close() {
	if a.archive != nil {
		a.archive.Stop()
	}
	if err := a.handle.Close(); err != nil {
		log.Printf("server: close model: %v", err)
	}
}

// runServer serves the prediction API until SIGINT or SIGTERM.
func runServer(cfg appConfig) error {
	cleanupLogger := configureRuntimeLogger(cfg)
	defer cleanupLogger()

	a, err := newApp(cfg, os.Stdout, inference.Load)
	if err != nil {
		return err
	}
	defer func() {
		a.close()
		if err := inference.Shutdown(); err != nil {
			log.Printf("server: shutdown onnxruntime: %v", err)
		}
	}()

	if err := a.api.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	defer a.api.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		forceExitAfter(sigCh)
	}()

	printStartupBanner(cfg, a)

	if err := runGroup(ctx, a.api, a.archive); err != nil {
		log.Printf("server: errgroup exited with error: %v", err)
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// apiServer is the part of httpserver.Server driven by runGroup.
type apiServer interface {
	Serve() error
	Stop() error
}

// runGroup serves the API and runs the archive loop until ctx is canceled or
// one of them fails. Either way every member is stopped before it returns.
func runGroup(ctx context.Context, api apiServer, arch *archive.Manager) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(api.Serve)
	if arch != nil {
		g.Go(func() error {
			return arch.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return api.Stop()
	})

	return g.Wait()
}

// forceExitAfter exits on a second signal or when the shutdown deadline passes.
// The deadline starts at the first signal, not at boot.
func forceExitAfter(sigCh <-chan os.Signal) {
	deadline := time.NewTimer(defaultShutdownForceDeadline)
	defer deadline.Stop()

	select {
	case <-sigCh:
		fmt.Println("\nForce shutdown.")
	case <-deadline.C:
		fmt.Println("Shutdown timed out, forcing exit.")
	}
	os.Exit(1)
}

func configureRuntimeLogger(cfg appConfig) func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if cfg.RuntimeLogPath == "" {
		log.SetOutput(os.Stderr)
		return func() {}
	}
	if err := os.MkdirAll(filepath.Dir(cfg.RuntimeLogPath), 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	w := &lumberjack.Logger{
		Filename:   cfg.RuntimeLogPath,
		MaxSize:    cfg.RuntimeLogMaxSizeMB,
		MaxBackups: cfg.RuntimeLogMaxBackups,
		Compress:   true,
	}
	log.SetOutput(w)
	return func() {
		_ = w.Close()
	}
}

func printStartupBanner(cfg appConfig, a *app) {
	fmt.Println(renderStartupBanner(cfg, a))
}

func renderStartupBanner(cfg appConfig, a *app) string {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")
	cross := red.Render("●")

	var lines []string
	lines = append(lines, "")
	lines = append(lines, cyan.Bold(true).Render("    inferd")+"  "+dim.Render("v"+version))
	lines = append(lines, "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator, "")

	lines = append(lines, bold.Render("    Gateway"), "")
	lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render(a.api.Addr())))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Model"), "")
	if a.handle.Available() {
		lines = append(lines, fmt.Sprintf("    %s  Artifact       %s", check, dim.Render(shortenPath(cfg.ModelPath))))
		lines = append(lines, fmt.Sprintf("    %s  Bindings       %s", check,
			dim.Render(a.handle.InputName()+" -> "+a.handle.OutputName())))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Artifact       %s", cross, red.Render("unavailable")))
		if err := a.handle.LoadErr(); err != nil {
			lines = append(lines, "       "+dim.Render(err.Error()))
		}
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Records"), "")
	if cfg.Destination().IsLocal() {
		lines = append(lines, fmt.Sprintf("    %s  Prediction Log %s", check, dim.Render(shortenPath(cfg.LogFilePath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Prediction Log %s", dot, dim.Render(a.sink.Name()+" (not persisted)")))
	}
	if a.archive != nil {
		lines = append(lines, fmt.Sprintf("    %s  Archive        %s", check, dim.Render(shortenPath(cfg.ArchiveLocalDir))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Archive        %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "", separator, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"))
	lines = append(lines, "")

	return strings.Join(lines, "\n")
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
