// Package app wires the confman components together: the core config file,
// logging, the plugin manager and settings discovery.
package app

import (
	"cmp"
	"context"
	"errors"
	"io"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dshills/confman/internal/config"
	"github.com/dshills/confman/internal/config/notify"
	"github.com/dshills/confman/internal/logging"
	"github.com/dshills/confman/internal/plugin"
	"github.com/dshills/confman/internal/settings"
)

// Application is the central coordinator for all confman components.
type Application struct {
	mu sync.Mutex

	core     *config.File
	log      *logging.Logger
	plugins  *plugin.Manager
	searcher *settings.Searcher

	// Files changed by Set since the last Save.
	dirty map[*config.File]bool

	running atomic.Bool

	opts Options
}

// Options configures the application.
type Options struct {
	// ConfigPath is the core config file. Empty uses config.DefaultCorePath.
	ConfigPath string

	// PluginPaths overrides plugins.paths from the core config.
	PluginPaths []string

	// PluginConfigDir overrides plugins.configDir from the core config.
	PluginConfigDir string

	// LogLevel overrides logging.level from the core config.
	LogLevel string

	// LogOutput receives log lines when no log file is configured.
	LogOutput io.Writer

	// Watch reloads config files from disk while Run is active.
	Watch bool

	// WatchDebounce is how long a changed file must be quiet before it is
	// reloaded. Zero uses the watcher default.
	WatchDebounce time.Duration

	// Version is reported as the host-core version.
	Version string
}

// New creates a new Application with the given options. Plugins are
// discovered but not loaded; call LoadPlugins.
func New(opts Options) (*Application, error) {
	app := &Application{
		opts:  opts,
		dirty: make(map[*config.File]bool),
	}

	if err := app.bootstrap(); err != nil {
		return nil, err
	}

	return app, nil
}

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap() error {
	// 1. Core config
	app.core = config.NewCoreFile(cmp.Or(app.opts.ConfigPath, config.DefaultCorePath()))
	loadErr := app.core.Load()
	var parseErr *config.ParseError
	if errors.As(loadErr, &parseErr) {
		return &InitError{Component: "config", Err: loadErr}
	}

	// 2. Logging
	log, err := logging.New(app.loggingConfig())
	if err != nil {
		return &InitError{Component: "logging", Err: err}
	}
	app.log = log
	if loadErr != nil {
		// Invalid values were reset to their defaults.
		app.logger("config").WithError(loadErr).Warn("core config has invalid values")
	}

	// Logging follows the core config, whether changed by Set or a reload.
	app.core.Notifier().SubscribePath("logging", func(notify.Change) {
		app.applyCore()
	})

	// 3. Plugin manager
	paths := app.opts.PluginPaths
	if len(paths) == 0 {
		paths, _ = app.core.GetStrings("plugins.paths")
	}
	configDir := app.opts.PluginConfigDir
	if configDir == "" {
		configDir, _ = app.core.GetString("plugins.configDir")
	}
	autoActivate, _ := app.core.GetBool("plugins.autoActivate")
	app.plugins = plugin.NewManager(plugin.ManagerConfig{
		PluginPaths:  paths,
		ConfigDir:    configDir,
		AutoActivate: autoActivate,
		Logger:       app.log,
	})

	// 4. Settings discovery
	app.searcher = settings.NewSearcher(&hostAdapter{app: app},
		settings.WithLogger(app.logger("settings")))

	return nil
}

// loggingConfig reads the logging section of the core config.
func (app *Application) loggingConfig() logging.Config {
	level, _ := app.core.GetString("logging.level")
	file, _ := app.core.GetString("logging.file")
	maxSize, _ := app.core.GetInt("logging.maxSizeMB")
	return logging.Config{
		Level:     cmp.Or(app.opts.LogLevel, level),
		File:      file,
		MaxSizeMB: int(maxSize),
		Output:    app.opts.LogOutput,
	}
}

// applyCore pushes core config changes into the running components.
func (app *Application) applyCore() {
	if err := app.log.Apply(app.loggingConfig()); err != nil {
		app.logger("config").WithError(err).Error("applying logging settings failed")
	}
}

func (app *Application) logger(component string) logrus.FieldLogger {
	return logging.Component(app.log, component)
}

// LoadPlugins discovers and loads every plugin on the search paths.
// Plugins that fail are skipped; their errors are returned joined.
func (app *Application) LoadPlugins(ctx context.Context) error {
	err := app.plugins.LoadAll(ctx)
	app.logger("plugins").WithField("count", app.plugins.Count()).Info("plugins loaded")
	return err
}

// CollectSettings runs one settings discovery pass.
func (app *Application) CollectSettings(showDebug bool) (iter.Seq[settings.Entry], []string) {
	return app.searcher.CollectSettings(showDebug)
}

// ShowAdvanced reports the gui.showAdvanced core setting.
func (app *Application) ShowAdvanced() bool {
	v, _ := app.core.GetBool("gui.showAdvanced")
	return v
}

// ShowDebug reports the gui.showDebug core setting.
func (app *Application) ShowDebug() bool {
	v, _ := app.core.GetBool("gui.showDebug")
	return v
}

// FrameInterval returns the frame period derived from gui.frameRate.
func (app *Application) FrameInterval() time.Duration {
	rate, err := app.core.GetInt("gui.frameRate")
	if err != nil || rate <= 0 {
		rate = 60
	}
	return time.Second / time.Duration(rate)
}

// IsRunning returns true if the application is running.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Core returns the core config file.
func (app *Application) Core() *config.File {
	return app.core
}

// Plugins returns the plugin manager.
func (app *Application) Plugins() *plugin.Manager {
	return app.plugins
}

// Logger returns the application logger.
func (app *Application) Logger() logrus.FieldLogger {
	return app.log
}

// Shutdown unloads all plugins and closes the log file.
func (app *Application) Shutdown(ctx context.Context) error {
	var errs []error
	if err := app.plugins.UnloadAll(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := app.log.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
