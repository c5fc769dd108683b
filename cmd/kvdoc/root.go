package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kvdoc/internal/config"
	"kvdoc/internal/logging"
	"kvdoc/internal/records"
	"kvdoc/internal/store"
	"kvdoc/internal/store/engines"
	"kvdoc/internal/store/pool"
	"kvdoc/internal/tools"
)

const Version = "0.3.0"

// app carries state resolved once per invocation by the root command.
type app struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "kvdoc",
		Short: "JSON document records over an ordered key-value store",
		Long: fmt.Sprintf(`kvdoc (v%s)

Query and mutate JSON documents kept in ordered key-value stores, as a set of
tools served over MCP (stdio or HTTP) or called directly from the shell.
Settings come from a TOML file, KVDOC_* environment variables (also read
from .env and .env.local) and flags, in increasing priority.`, Version),
		SilenceUsage:      true,
		PersistentPreRunE: a.loadConfig,
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "path to config file (default "+config.DefaultPath+")")
	f.String("engine", "", fmt.Sprintf("store engine (%v)", engines.Names()))
	f.Int64("capacity", 0, "store capacity in bytes, 0 for unbounded")
	f.Duration("open-timeout", 0, "how long to wait for a locked store")
	f.Bool("pool", false, "keep one handle per store open")
	f.String("log-level", "", "log level (debug, info, warn, error)")
	f.String("log-format", "", "log format (text, json)")

	root.AddCommand(
		a.serveCmd(),
		a.toolsCmd(),
		a.callCmd(),
		a.backupCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of kvdoc",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "kvdoc v%s\n", Version)
		},
	}
}

// loadConfig layers the config file, the environment and changed flags,
// validates the result and sets up logging on stderr.
func (a *app) loadConfig(cmd *cobra.Command, _ []string) error {
	config.LoadDotenv()

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	v := config.NewViper()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	cfg.Apply(v)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logging.Init(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	a.cfg = cfg
	return nil
}

// repository builds the record layer for the configured engine. The
// returned close func releases pooled handles.
func (a *app) repository() (*records.Repository, func() error, error) {
	engine, err := engines.ByName(a.cfg.Store.Engine)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() error { return nil }
	if a.cfg.Store.Pool {
		p := pool.New(engine, store.Options{
			Capacity: a.cfg.Store.Capacity,
			Timeout:  a.cfg.Store.OpenTimeout,
		})
		engine, closeFn = p, p.Close
	}
	repo := records.New(engine, records.Options{
		Capacity: a.cfg.Store.Capacity,
		Timeout:  a.cfg.Store.OpenTimeout,
	})
	return repo, closeFn, nil
}

// registry returns a frozen registry with the record tools.
func (a *app) registry() (*tools.Registry, func() error, error) {
	repo, closeFn, err := a.repository()
	if err != nil {
		return nil, nil, err
	}
	reg := tools.NewRegistry()
	reg.RegisterRecords(repo)
	reg.Freeze()
	return reg, closeFn, nil
}
