package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/brunoscheufler/quicknotes/config"
	"github.com/brunoscheufler/quicknotes/constants"
	"github.com/brunoscheufler/quicknotes/restapi"
	"github.com/brunoscheufler/quicknotes/store"
	"github.com/brunoscheufler/quicknotes/telemetry"
	"github.com/spf13/cobra"
)

// App holds the components every command shares once configuration is loaded
type App struct {
	loader     *config.Loader
	configFile string

	Config    config.Config
	Telemetry *telemetry.Telemetry
	Store     *store.Store
}

// flagKeys maps command-line flags to the config keys they override
var flagKeys = map[string]string{
	"data-dir":  config.KeyDataDir,
	"server":    config.KeyServerURL,
	"log-level": config.KeyLogLevel,
	"port":      config.KeyHTTPPort,
	"theme":     config.KeyUITheme,
	"view":      config.KeyUIView,
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	app := &App{loader: config.NewLoader()}
	defer app.close()

	root := newRootCmd(app)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	return root.Execute()
}

func newRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:          constants.AppName,
		Short:        "Take notes in the terminal, stored in Supabase or a local database",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.bindFlags(cmd); err != nil {
				return err
			}
			return app.setup(isInteractive(cmd))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.configFile, "config", "", "Config file (default ./quicknotes.yaml or ~/.config/quicknotes/quicknotes.yaml)")
	flags.String("data-dir", "", "Directory holding the local notes database")
	flags.String("server", "", "Use a running quicknotes API at this URL as backend")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")

	// The terminal UI is the default command, so the root accepts its flags too
	addTUIFlags(root)

	root.AddCommand(
		newInitCmd(app),
		newListCmd(app),
		newCreateCmd(app),
		newEditCmd(app),
		newDeleteCmd(app),
		newServeCmd(app),
		newTUICmd(app),
	)

	return root
}

// isInteractive reports whether cmd takes over the terminal, in which case
// logs must not be written to stderr.
func isInteractive(cmd *cobra.Command) bool {
	return cmd == cmd.Root() || cmd.Name() == "tui"
}

// bindFlags lets the flags of the running command override the config file
// and the environment.
func (a *App) bindFlags(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := a.loader.BindFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) setup(interactive bool) error {
	cfg, err := a.loader.Load(a.configFile)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	a.Config = cfg

	a.Telemetry = telemetry.New(
		telemetry.WithCLIMode(interactive),
		telemetry.WithLogLevel(cfg.LogLevel),
	)
	a.Telemetry.SetupLogging()
	logger := a.Telemetry.GetLogger()

	if cfg.File != "" {
		logger.Debug("Loaded config file", "file", cfg.File)
	}

	backend, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}

	a.Store = store.New(backend,
		store.WithLogger(logger),
		store.WithRecorder(a.Telemetry.Metrics),
	)
	logger.Debug("Note store ready", "backend", a.Store.Backend())
	return nil
}

func (a *App) close() {
	if a.Store == nil {
		return
	}
	if err := a.Store.Close(); err != nil && a.Telemetry != nil {
		a.Telemetry.GetLogger().Warn("Could not close note store", "error", err)
	}
	a.Store = nil
}

// openBackend picks the backend for cfg: an explicit API server first, then
// Supabase when both its URL and key are set, and the local database otherwise.
func openBackend(cfg config.Config, logger *slog.Logger) (store.Backend, error) {
	if cfg.ServerURL != "" {
		logger.Debug("Using quicknotes API as backend", "url", cfg.ServerURL)
		return restapi.NewClient(cfg.ServerURL).Backend(), nil
	}

	if cfg.RemoteConfigured() {
		table, err := store.NewSupabaseTable(cfg.Supabase.URL, cfg.Supabase.Key, cfg.Supabase.Table)
		if err != nil {
			return nil, fmt.Errorf("could not create supabase client: %w", err)
		}

		opts := store.DefaultRemoteOptions()
		opts.Logger = logger
		return store.NewRemoteBackend(table, opts), nil
	}

	logger.Debug("Supabase is not configured, using local storage", "data_dir", cfg.DataDir)

	blobs, err := store.NewSQLiteBlobStore(store.StoreOptions{
		Name:     "notes",
		BasePath: cfg.DataDir,
		Config:   store.DefaultDatabaseConfig(),
	})
	if err != nil {
		return nil, fmt.Errorf("could not open local note storage: %w", err)
	}

	return store.NewLocalBackend(blobs, cfg.StorageKey, logger), nil
}
