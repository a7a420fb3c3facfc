// Command furry-actions opens a file in a terminal view and offers the
// code actions of its language server in a floating menu.
//
// Usage:
//
//	furry-actions [--config furry.yaml] [--log-file path] [--log-level debug] FILE
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/odvcencio/furry-actions/actions"
	backendtcell "github.com/odvcencio/furry-actions/backend/tcell"
	"github.com/odvcencio/furry-actions/codeaction"
	"github.com/odvcencio/furry-actions/host"
	"github.com/odvcencio/furry-actions/lsp"
	"github.com/odvcencio/furry-actions/tuihost"
)

const shutdownTimeout = 3 * time.Second

var (
	configPath = pflag.StringP("config", "c", "", "YAML settings file")
	logFile    = pflag.String("log-file", filepath.Join(os.TempDir(), "furry-actions.log"), "log destination")
	logLevel   = pflag.String("log-level", "info", "debug, info, warn or error")
	noServer   = pflag.Bool("no-server", false, "do not start a language server")
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] FILE\n", filepath.Base(os.Args[0]))
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}
	if err := run(pflag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "furry-actions: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	logger, closeLog, err := initLogging(*logLevel, *logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := tuihost.LoadFileConfig(*configPath)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return err
	}
	uri, err := tuihost.URIFromPath(abs)
	if err != nil {
		return err
	}
	doc := host.Document{URI: uri, LanguageID: languageOf(abs), Version: 1}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := backendtcell.New()
	if err != nil {
		return fmt.Errorf("backend init failed: %w", err)
	}

	registry := lsp.NewRegistry(logger)
	h := tuihost.New(tuihost.Config{
		Backend:  be,
		Logger:   logger,
		Document: doc,
		Text:     string(data),
		Settings: cfg,
		Services: registry,
		Keymap:   keymap(cfg.Keymap),
		OnChange: func(doc host.Document, text string) {
			registry.DidChange(doc.URI, doc.Version, text)
		},
	})
	registry.SetHandlers(lsp.Handlers{Notify: h.ServerNotification, Request: h.ServerRequest})

	if !*noServer {
		startServer(ctx, registry, h, servers(cfg.Servers), doc, string(data))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := registry.Shutdown(sctx); err != nil {
			logger.Warn("language server shutdown", "err", err)
		}
	}()

	source := actions.NewSource(logger, registry.Providers()...)
	ext, err := codeaction.Activate(ctx, h.Host(), source, codeaction.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer func() {
		ext.Manager.Wait()
		ext.Dispose(context.WithoutCancel(ctx))
	}()

	if err := h.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("app run failed: %w", err)
	}
	return nil
}

// startServer launches the server for doc's language. A server that fails
// to start leaves the menu running without it.
func startServer(ctx context.Context, registry *lsp.Registry, h *tuihost.Host, table map[string]lsp.ServerConfig, doc host.Document, text string) {
	cfg, ok := table[doc.LanguageID]
	if !ok || cfg.Command == "" {
		h.ShowMessage(host.LevelWarning, fmt.Sprintf("no language server for %q", doc.LanguageID))
		return
	}
	root, err := tuihost.URIFromPath(rootDir(string(doc.URI)))
	if err != nil {
		root = ""
	}
	if _, err := registry.Start(ctx, cfg.Command, cfg, root); err != nil {
		h.ShowMessage(host.LevelError, fmt.Sprintf("start %s: %v", cfg.Command, err))
		return
	}
	registry.DidOpen(protocol.TextDocumentItem{
		URI:        doc.URI,
		LanguageID: doc.LanguageID,
		Version:    protocol.Integer(doc.Version),
		Text:       text,
	})
}

// rootDir walks up from the document to the nearest directory holding a
// go.mod or .git, falling back to the document's own directory.
func rootDir(uri string) string {
	path, err := tuihost.PathFromURI(protocol.DocumentUri(uri))
	if err != nil {
		return ""
	}
	start := filepath.Dir(path)
	for dir := start; ; {
		for _, marker := range []string{"go.mod", ".git"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

var languages = map[string]string{
	".go":  "go",
	".ts":  "typescript",
	".tsx": "typescript",
	".js":  "javascript",
	".jsx": "javascript",
	".py":  "python",
	".rs":  "rust",
	".c":   "c",
	".h":   "c",
	".cc":  "cpp",
	".cpp": "cpp",
	".hpp": "cpp",
	".sh":  "sh",
	".lua": "lua",
}

func languageOf(path string) string {
	if id, ok := languages[strings.ToLower(filepath.Ext(path))]; ok {
		return id
	}
	return "plaintext"
}

// keymap layers the file's bindings over the built-in trigger keys.
func keymap(overrides map[string]string) map[string]string {
	out := map[string]string{
	}
	maps.Copy(out, overrides)
	return out
}

func servers(overrides map[string]lsp.ServerConfig) map[string]lsp.ServerConfig {
	out := lsp.DefaultServers()
	maps.Copy(out, overrides)
	return out
}

func initLogging(levelStr, filename string) (*slog.Logger, func(), error) {
	level := new(slog.LevelVar)
	var l slog.Level
	if err := l.UnmarshalText([]byte(levelStr)); err != nil {
		l = slog.LevelInfo
	}
	level.Set(l)

	logfile, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o666)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(logfile, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	logger.Info("logging initialized", "level", l)
	return logger, func() { _ = logfile.Close() }, nil
}
