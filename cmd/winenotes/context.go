package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"winenotes/internal/config"
	"winenotes/internal/exporter"
	"winenotes/internal/history"
	"winenotes/internal/importer"
	"winenotes/internal/janitor"
	"winenotes/internal/logging"
	"winenotes/internal/photos"
	"winenotes/internal/preflight"
	"winenotes/internal/recordstore"
	"winenotes/internal/share"
)

const shutdownTimeout = 10 * time.Second

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	appOnce sync.Once
	app     *application
	appErr  error
}

// application holds the components wired for one CLI invocation.
type application struct {
	cfg      *config.Config
	logger   *slog.Logger
	janitor  *janitor.Janitor
	photos   *photos.Manager
	store    *recordstore.Store
	history  *history.Store
	exporter *exporter.Packager
	importer *importer.Resolver
	share    share.Surface
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// JSONMode reports whether --json was given.
func (c *commandContext) JSONMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// application wires the store, photo manager, janitor and journal on first
// use. Leftover transient directories are swept at the same time.
func (c *commandContext) application(ctx context.Context) (*application, error) {
	c.appOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.appErr = err
			return
		}
		c.app, c.appErr = openApplication(ctx, cfg)
	})
	return c.app, c.appErr
}

func openApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	logging.PruneLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logging.DailyLogPath(cfg.Paths.LogDir, time.Now()))

	jan := janitor.New(janitor.Options{RetryDelay: cfg.CleanupRetry()}, logger)
	pm := photos.New(photos.Options{
		Dir:         cfg.Paths.PhotoDir,
		FallbackDir: cfg.Paths.FallbackPhotoDir,
		Album:       cfg.Photos.Album,
		Access:      preflight.DirAccess{},
	}, logger)

	store, err := recordstore.Open(ctx, cfg.RecordsPath(), pm, logger)
	if err != nil {
		return nil, err
	}

	journal, err := history.Open(ctx, cfg.HistoryPath())
	if err != nil {
		logging.WarnWithContext(logger, "history journal unavailable", "history_open_failed",
			logging.String(logging.FieldPath, cfg.HistoryPath()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "exports and imports are not journaled"),
		)
		journal = nil
	} else if journal.Rebuilt() {
		logging.WarnWithContext(logger, "history journal from an older version was reset", "history_rebuilt",
			logging.String(logging.FieldPath, cfg.HistoryPath()),
			logging.String(logging.FieldImpact, "earlier exports and imports no longer appear in `winenotes history`"),
		)
	}

	sweep := jan.Sweep(ctx, cfg.Paths.TransientDir, cfg.StaleTransientAge())
	if len(sweep.Removed) > 0 {
		logger.Info("stale transient directories removed",
			logging.Int("removed", len(sweep.Removed)),
			logging.String(logging.FieldEventType, "transient_sweep"),
		)
	}

	return &application{
		cfg:     cfg,
		logger:  logger,
		janitor: jan,
		photos:  pm,
		store:   store,
		history: journal,
		exporter: exporter.New(exporter.Options{
			Root:    cfg.Paths.TransientDir,
			Access:  preflight.DirAccess{},
			Janitor: jan,
			Grace:   cfg.CleanupGrace(),
		}, logger),
		importer: importer.New(importer.Options{
			TempRoot: cfg.Paths.TransientDir,
			Photos:   pm,
			Janitor:  jan,
		}, logger),
		share: share.NewSurface(cfg),
	}, nil
}

// Close runs cleanups that are already due, then releases the store lock
// and the journal.
func (c *commandContext) Close() error {
	if c.app == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := c.app.janitor.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop janitor: %w", err))
	}
	if err := c.app.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("release record store: %w", err))
	}
	if c.app.history != nil {
		if err := c.app.history.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close history: %w", err))
		}
	}
	c.app = nil
	return errors.Join(errs...)
}

// journal records an export or import. Failures are logged only.
func (a *application) journal(ctx context.Context, entry history.Entry) {
	if a.history == nil {
		return
	}
	if _, err := a.history.Record(ctx, entry); err != nil {
		logging.WarnWithContext(a.logger, "history entry not recorded", "history_record_failed",
			logging.String("kind", string(entry.Kind)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "operation missing from `winenotes history`"),
		)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
