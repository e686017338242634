package settings

import (
	"cmp"
	"iter"
	"slices"
)

// Group is the entries of one plugin, sorted for display.
type Group struct {
	Plugin  PluginInfo
	Entries []Entry
}

// Visible filters out entries a renderer would hide: explicitly
// non-browsable entries always, advanced ones unless showAdvanced is set.
func Visible(entries iter.Seq[Entry], showAdvanced bool) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for e := range entries {
			if e.Browsable() == False {
				continue
			}
			if e.IsAdvanced() && !showAdvanced {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// GroupByPlugin groups entries by owning plugin, keeping plugins in order of
// first appearance. Within a group entries are sorted by category, then
// order, then display name.
func GroupByPlugin(entries iter.Seq[Entry]) []Group {
	var groups []Group
	index := make(map[PluginInfo]int)

	for e := range entries {
		info := e.Plugin()
		i, ok := index[info]
		if !ok {
			i = len(groups)
			index[info] = i
			groups = append(groups, Group{Plugin: info})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}

	for _, g := range groups {
		slices.SortStableFunc(g.Entries, func(a, b Entry) int {
			return cmp.Or(
				cmp.Compare(a.Category(), b.Category()),
				cmp.Compare(a.Order(), b.Order()),
				cmp.Compare(a.DisplayName(), b.DisplayName()),
			)
		})
	}
	return groups
}
