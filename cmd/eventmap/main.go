package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/FeS1111/TSP/internal/app"
	"github.com/FeS1111/TSP/internal/client"
	"github.com/FeS1111/TSP/internal/config"
	"github.com/FeS1111/TSP/internal/logger"
	"github.com/FeS1111/TSP/internal/mapview"
	"github.com/FeS1111/TSP/internal/tokenstore"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	configFile string
	envFile    string
	baseURL    string
	loginPath  string
	timeout    time.Duration
	ephemeral  bool
	logFile    string
	logLevel   string
}

// env is what every command runs against.
type env struct {
	cfg    *config.Config
	log    logger.AppLogger
	closer io.Closer
	store  tokenstore.Store
	api    *client.HTTPClient
}

func (e *env) close() {
	if e.closer != nil {
		e.closer.Close()
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	e := &env{}

	root := &cobra.Command{
		Use:           "eventmap",
		Short:         "Browse, create and answer events on a terminal map",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.setup(cmd, f)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			e.close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(e)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configFile, "config", defaultConfigFile(), "YAML config file")
	pf.StringVar(&f.envFile, "env-file", ".env", "dotenv file with EVENTMAP_* overrides")
	pf.StringVar(&f.baseURL, "url", "", "backend base URL (default "+config.DefaultBaseURL+")")
	pf.StringVar(&f.loginPath, "login-path", "", "login endpoint, /api/auth/login/ or /login/")
	pf.DurationVar(&f.timeout, "timeout", 0, "per-request timeout")
	pf.BoolVar(&f.ephemeral, "ephemeral", false, "keep the session in memory only")
	pf.StringVar(&f.logFile, "log-file", "", "log file path")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newLoginCmd(e),
		newRegisterCmd(e),
		newLogoutCmd(e),
		newEventsCmd(e),
		newReactCmd(e),
	)
	return root
}

func defaultConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "eventmap.yaml"
	}
	return filepath.Join(dir, "eventmap", "config.yaml")
}

// setup layers the config file, the environment and the flags, then builds
// the logger, the session store and the API client.
func (e *env) setup(cmd *cobra.Command, f *flags) error {
	cfg, err := config.LoadOrDefault(f.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplyEnv(f.envFile); err != nil {
		return fmt.Errorf("apply env: %w", err)
	}

	changed := cmd.Flags().Changed
	if changed("url") {
		cfg.API.BaseURL = f.baseURL
	}
	if changed("login-path") {
		cfg.API.LoginPath = f.loginPath
	}
	if changed("timeout") {
		cfg.API.Timeout = f.timeout
	}
	if changed("ephemeral") {
		cfg.Session.Ephemeral = f.ephemeral
	}
	if changed("log-file") {
		cfg.Log.File = f.logFile
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	e.cfg = cfg

	log, closer, err := logger.OpenFile(cfg.Log.File, logger.Level(cfg.Log.Level))
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	e.log, e.closer = log, closer

	e.store, err = openStore(cfg)
	if err != nil {
		return err
	}

	e.api = client.NewHTTPClient(cfg.API.BaseURL, e.store,
		client.WithTimeout(cfg.API.Timeout),
		client.WithLogger(e.log),
		client.WithLoginPath(cfg.API.LoginPath),
	)
	e.log.Info("starting", "main.setup", "command", cmd.CommandPath(), "api", cfg.API.BaseURL)
	return nil
}

func openStore(cfg *config.Config) (tokenstore.Store, error) {
	if cfg.Session.Ephemeral {
		return tokenstore.NewMemoryStore(), nil
	}
	path := cfg.Session.File
	if path == "" {
		p, err := tokenstore.DefaultPath(cfg.API.BaseURL)
		if err != nil {
			return nil, err
		}
		path = p
	}
	return tokenstore.NewFileStore(path), nil
}

func runTUI(e *env) error {
	m := app.New(e.api, app.Options{
		Center:      mapview.LatLon{Lat: e.cfg.Map.CenterLat, Lon: e.cfg.Map.CenterLon},
		Zoom:        e.cfg.Map.Zoom,
		ClusterCell: e.cfg.Map.ClusterCell,
		Logger:      e.log,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	e.api.SetObserver(func(r client.RequestLog) { p.Send(r) })

	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
