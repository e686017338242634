package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dshills/confman/internal/config"
	"github.com/dshills/confman/internal/plugin"
)

// Run drives plugin per-frame callbacks at gui.frameRate until ctx is
// cancelled. With Options.Watch it also reloads config files that change
// on disk.
func (app *Application) Run(ctx context.Context) error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var watchErr error
	if app.opts.Watch {
		w, err := app.newWatcher()
		if err != nil {
			return &InitError{Component: "watcher", Err: err}
		}
		defer w.Close()

		unsubscribe := app.plugins.Subscribe(app.followPlugins(w))
		defer unsubscribe()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				watchErr = err
				cancel()
			}
		}()
	}

	app.frameLoop(ctx)
	wg.Wait()

	for name, err := range app.plugins.Errors() {
		app.logger("plugins").WithError(err).WithField("plugin", name).Warn("plugin stopped after an error")
	}
	return watchErr
}

// frameLoop calls Manager.Frame on every tick. The frame rate is re-read
// each tick so a reloaded core config takes effect without a restart.
func (app *Application) frameLoop(ctx context.Context) {
	interval := app.FrameInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			app.plugins.Frame(dt)

			if next := app.FrameInterval(); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

// newWatcher watches the core file and every loaded plugin's config file.
func (app *Application) newWatcher() (*config.Watcher, error) {
	log := app.logger("watcher")
	w, err := config.NewWatcher(log,
		config.WithDebounce(app.opts.WatchDebounce),
		config.WithReloadFunc(app.reloaded),
	)
	if err != nil {
		return nil, err
	}

	files := []*config.File{app.core}
	for _, h := range app.plugins.List() {
		files = append(files, h.Config())
	}
	for _, f := range files {
		app.watch(w, f)
	}
	log.WithField("files", len(w.Watched())).Debug("watching config files")
	return w, nil
}

func (app *Application) watch(w *config.Watcher, f *config.File) {
	if err := w.Add(f); err != nil {
		// The directory may not exist until the first Save.
		app.logger("watcher").WithError(err).WithField("file", f.Path()).Warn("not watching config file")
	}
}

// followPlugins keeps the watcher in step with plugins loaded or unloaded
// while Run is active.
func (app *Application) followPlugins(w *config.Watcher) plugin.EventHandler {
	return func(ev plugin.ManagerEvent) {
		switch ev.Type {
		case plugin.EventPluginLoaded:
			app.watch(w, ev.Host.Config())
		case plugin.EventPluginUnloaded:
			if err := w.Remove(ev.Host.Config()); err != nil {
				app.logger("watcher").WithError(err).WithField("plugin", ev.Plugin).Warn("unwatching plugin config failed")
			}
		}
	}
}

// reloaded drops the unsaved mark of a file read back from disk: its
// in-memory changes were replaced.
func (app *Application) reloaded(f *config.File, err error) {
	if err != nil {
		return
	}
	app.mu.Lock()
	delete(app.dirty, f)
	app.mu.Unlock()
}
