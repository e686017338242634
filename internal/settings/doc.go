// Package settings discovers the user-adjustable settings exposed by loaded
// plugins and the host itself.
//
// Discovery produces a flat list of Entry descriptors that a settings UI can
// render without knowing where a value is stored. Two kinds of entry exist:
//
//   - ConfigEntry wraps one record of a file-backed configuration store.
//   - PropertyEntry wraps a Go property of a live plugin instance, found by
//     reflection as a Name/SetName method pair.
//
// Display metadata (advanced, description, display name, browsable) is
// resolved once into an Attributes value when the entry is built.
//
// # Discovery
//
// A Searcher walks a Host: first the host-core configuration, then every
// loaded plugin in registry order.
//
//	s := settings.NewSearcher(host, settings.WithLogger(log))
//	entries, empty := s.CollectSettings(showDebug)
//	for e := range entries {
//	    fmt.Println(e.Plugin().Name, e.DisplayName())
//	}
//
// Failures never escape CollectSettings. A failure while reading the
// host-core configuration yields zero core entries; a failure while walking
// plugins stops the walk and returns what was collected before it. Both are
// logged.
//
// # Registry consistency
//
// Host.Plugins must return a snapshot of the registry taken under whatever
// lock the registry uses, so that a pass observes a consistent plugin list.
// Entries keep references to plugin instances after the pass; an instance
// that reports Stale() == true makes its property entries fail with
// ErrStaleInstance.
package settings
