package commands

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jask/creditofacil/internal/api"
	"github.com/jask/creditofacil/internal/config"
	"github.com/jask/creditofacil/internal/database"
	"github.com/jask/creditofacil/internal/database/repository"
	"github.com/jask/creditofacil/internal/format"
	"github.com/jask/creditofacil/internal/logging"
	"github.com/jask/creditofacil/internal/secrets"
	"github.com/jask/creditofacil/internal/service"
)

const journalKeyName = "journal"

// appContext is what subcommands share once the root has run.
type appContext struct {
	cfg      config.Config
	log      *zap.Logger
	closeLog func()
	client   *api.Client
	db       *sql.DB
	journal  *repository.JournalRepo
	now      func() time.Time
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		apiURL  string
	)
	app := &appContext{now: time.Now}

	root := &cobra.Command{
		Use:          "creditofacil",
		Short:        "Crédito Fácil loan wizard",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath != "" {
				if err := os.Setenv("CREDITOFACIL_CONFIG", cfgPath); err != nil {
					return err
				}
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if apiURL != "" {
				cfg.API.BaseURL = apiURL
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			return app.init(cfg)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWizard(cmd, app)
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.config/creditofacil/config.toml)")
	root.PersistentFlags().StringVar(&apiURL, "api", "", "backend base URL, overrides api.base_url")

	root.AddCommand(wizardCmd(app), historyCmd(app), simulateCmd(app), journalCmd(app), configCmd(app))
	return root
}

func (a *appContext) init(cfg config.Config) error {
	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	client, err := api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithRegistrationURL(cfg.API.RegistrationURL),
		api.WithLogger(logger.Named("api")),
	)
	if err != nil {
		closeLog()
		return err
	}
	a.cfg, a.log, a.closeLog, a.client = cfg, logger, closeLog, client
	format.Configure(format.Options{CurrencySymbol: cfg.UI.CurrencySymbol, DateLayout: cfg.UI.DateFormat})
	logger.Debug("config loaded", zap.String("base_url", cfg.API.BaseURL), zap.String("database", cfg.Database.Path))
	return nil
}

// openJournal migrates and opens the journal database on first use.
func (a *appContext) openJournal() (*repository.JournalRepo, error) {
	if a.journal != nil {
		return a.journal, nil
	}
	path := a.cfg.Database.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	if err := database.RunMigrations(path); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a.db = db
	a.journal = repository.NewJournalRepo(db)
	return a.journal, nil
}

// journey wires the backend and, when enabled, the journal. A broken journal
// never stops the wizard.
func (a *appContext) journey() *service.Journey {
	j := &service.Journey{Backend: a.client, Log: a.log.Named("journey")}
	if !a.cfg.Journal.Enabled {
		return j
	}
	repo, err := a.openJournal()
	if err != nil {
		a.log.Warn("journal disabled", zap.Error(err))
		return j
	}
	key, err := secrets.EnsureKey(journalKeyName)
	if err != nil {
		a.log.Warn("journal disabled: digest key unavailable", zap.Error(err))
		return j
	}
	j.Journal = repo
	j.DigestKey = key
	return j
}

func (a *appContext) close() error {
	var err error
	if a.db != nil {
		err = a.db.Close()
		a.db, a.journal = nil, nil
	}
	if a.closeLog != nil {
		a.closeLog()
		a.closeLog = nil
	}
	return err
}
