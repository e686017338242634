package settings

import (
	"fmt"
	"iter"
	"slices"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Host is the plugin runtime seen by the Searcher.
type Host interface {
	// CoreInfo identifies the host itself as the owner of core settings.
	CoreInfo() PluginInfo

	// CoreConfig returns the host-core configuration records.
	CoreConfig() ([]ConfigRecord, error)

	// Plugins returns a consistent snapshot of the loaded plugins, in
	// registry order.
	Plugins() ([]Plugin, error)
}

// Plugin is one loaded plugin as seen by the Searcher.
type Plugin interface {
	Info() PluginInfo

	// Attributes returns the plugin-level metadata. A False Browsable hides
	// every setting of the plugin.
	Attributes() (Attributes, error)

	// Config returns the plugin's file-backed configuration records.
	Config() ([]ConfigRecord, error)

	// Methods returns the names of the callbacks the plugin defines.
	Methods() ([]string, error)

	// Instance returns the live plugin object that properties are read from.
	Instance() any
}

// Per-frame callbacks; a plugin defining any of them gets a run toggle.
var frameCallbacks = []string{
	"update",
	"fixed_update",
	"late_update",
	"on_gui",
}

// FrameCallbacks returns the per-frame callback names in call order.
func FrameCallbacks() []string {
	return slices.Clone(frameCallbacks)
}

// EnabledProperty is the instance property bound by the run toggle.
const EnabledProperty = "Enabled"

const (
	enabledDisplayName = "!Allow plugin to run on every frame"
	enabledDescription = "Disabling this will disable some or all of the plugin's functionality.\n" +
		"Hooks and event-based functionality will not be disabled.\n" +
		"This setting will be lost after restart."
)

// Result is the materialized outcome of a discovery pass.
type Result struct {
	Entries             []Entry
	ModsWithoutSettings []string
}

// Searcher collects setting entries from a Host.
type Searcher struct {
	host Host
	log  logrus.FieldLogger
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithLogger sets the logger used for discovery diagnostics.
func WithLogger(log logrus.FieldLogger) SearcherOption {
	return func(s *Searcher) {
		if log != nil {
			s.log = log
		}
	}
}

// NewSearcher creates a Searcher over host.
func NewSearcher(host Host, opts ...SearcherOption) *Searcher {
	s := &Searcher{
		host: host,
		log:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CollectSettings runs one discovery pass. It returns every visible entry,
// host-core entries first, and the names of the plugins that have nothing to
// show. It never fails; errors are logged and the partial result returned.
func (s *Searcher) CollectSettings(showDebug bool) (iter.Seq[Entry], []string) {
	res := s.Collect(showDebug)
	return slices.Values(res.Entries), res.ModsWithoutSettings
}

// Collect is CollectSettings with the entries materialized.
func (s *Searcher) Collect(showDebug bool) Result {
	log := s.log.WithField("pass", uuid.NewString())
	res := Result{ModsWithoutSettings: []string{}}

	core, err := s.coreEntries()
	if err != nil {
		log.WithError(err).Error("reading host-core settings failed")
	} else {
		res.Entries = core
	}

	if err := s.collectPlugins(log, showDebug, &res); err != nil {
		log.WithError(err).Error("plugin settings discovery aborted")
	}

	log.WithFields(logrus.Fields{
		"entries":           len(res.Entries),
		"withoutSettings":   len(res.ModsWithoutSettings),
		"debugEntriesShown": showDebug,
	}).Debug("settings discovery finished")

	return res
}

// coreEntries wraps the host-core records, converting a panic into an error.
func (s *Searcher) coreEntries() (entries []Entry, err error) {
	defer func() {
		if r := recover(); r != nil {
			entries, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	records, err := s.host.CoreConfig()
	if err != nil {
		return nil, err
	}

	info := s.host.CoreInfo()
	entries = make([]Entry, 0, len(records))
	for _, rec := range records {
		e := NewConfigEntry(rec, nil)
		e.SetAdvanced(true)
		e.SetPlugin(info)
		entries = append(entries, e)
	}
	return entries, nil
}

// collectPlugins appends plugin entries to res until a plugin fails. A panic
// counts as a failure.
func (s *Searcher) collectPlugins(log logrus.FieldLogger, showDebug bool, res *Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	plugins, err := s.host.Plugins()
	if err != nil {
		return fmt.Errorf("listing plugins: %w", err)
	}

	for _, p := range plugins {
		info := p.Info()
		log.WithField("plugin", info.String()).Info("found plugin")

		detected, hidden, err := s.pluginEntries(p, showDebug)
		if err != nil {
			return fmt.Errorf("plugin %s: %w", info.Name, err)
		}
		if hidden {
			res.ModsWithoutSettings = append(res.ModsWithoutSettings, info.Name)
		}
		if len(detected) > 0 {
			res.Entries = append(res.Entries, detected...)
		}
	}
	return nil
}

// pluginEntries returns the visible entries of p and whether p belongs in
// the without-settings list.
func (s *Searcher) pluginEntries(p Plugin, showDebug bool) ([]Entry, bool, error) {
	attrs, err := p.Attributes()
	if err != nil {
		return nil, false, fmt.Errorf("reading attributes: %w", err)
	}
	if attrs.Browsable == False {
		return nil, true, nil
	}

	records, err := p.Config()
	if err != nil {
		return nil, false, fmt.Errorf("reading config: %w", err)
	}

	detected := make([]Entry, 0, len(records)+1)
	for _, rec := range records {
		e := NewConfigEntry(rec, p)
		if e.Browsable() == False {
			continue
		}
		detected = append(detected, e)
	}

	hidden := len(detected) == 0 && !showDebug

	if showDebug {
		methods, err := p.Methods()
		if err != nil {
			return nil, false, fmt.Errorf("reading methods: %w", err)
		}
		if hasFrameCallback(methods) {
			e, err := enabledEntry(p)
			if err != nil {
				return nil, false, err
			}
			detected = append(detected, e)
		}
	}

	return detected, hidden, nil
}

// enabledEntry builds the run toggle bound to the plugin's Enabled property.
func enabledEntry(p Plugin) (*PropertyEntry, error) {
	instance := p.Instance()
	prop, err := LookupProperty(instance, EnabledProperty)
	if err != nil {
		return nil, err
	}
	e := NewPropertyEntry(instance, prop, p.Info())
	e.SetDisplayName(enabledDisplayName)
	e.SetDescription(enabledDescription)
	e.SetAdvanced(true)
	return e, nil
}

func hasFrameCallback(methods []string) bool {
	for _, m := range methods {
		if slices.Contains(frameCallbacks, m) {
			return true
		}
	}
	return false
}
