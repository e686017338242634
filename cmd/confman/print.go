package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dshills/confman/internal/settings"
)

// printSettings writes one block per plugin, then the plugins that have
// nothing to show.
func printSettings(w io.Writer, groups []settings.Group, withoutSettings []string) {
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s\n", pluginHeader(g.Plugin))

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		category := ""
		for _, e := range g.Entries {
			if c := e.Category(); c != category {
				category = c
				if c != "" {
					fmt.Fprintf(tw, "  [%s]\t\t\n", c)
				}
			}
			fmt.Fprintf(tw, "    %s\t%s\t%s\n", e.DisplayName(), entryValue(e), entryFlags(e))
		}
		tw.Flush()
	}

	if len(withoutSettings) > 0 {
		if len(groups) > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Plugins without settings: %s\n", strings.Join(withoutSettings, ", "))
	}
}

// pluginHeader shows the plugin ID next to its title when they differ,
// since -set addresses plugins by ID.
func pluginHeader(p settings.PluginInfo) string {
	if p.ID == "" || p.ID == p.Name {
		return p.String()
	}
	return fmt.Sprintf("%s (%s)", p, p.ID)
}

func entryValue(e settings.Entry) string {
	v, err := e.Get()
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	if s := settings.FormatValue(v); s != "" {
		return s
	}
	return `""`
}

// entryFlags lists the markers shown after a value. PropertyEntry.ReadOnly
// reports writability, so the entry kind decides what it means here.
func entryFlags(e settings.Entry) string {
	var flags []string
	if _, ok := e.(*settings.ConfigEntry); ok && e.ReadOnly() {
		flags = append(flags, "read-only")
	}
	if e.IsAdvanced() {
		flags = append(flags, "advanced")
	}
	if values := acceptable(e); values != "" {
		flags = append(flags, "one of "+values)
	}
	return strings.Join(flags, ", ")
}

func acceptable(e settings.Entry) string {
	values := e.AcceptableValues()
	if len(values) == 0 {
		return ""
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = settings.FormatValue(v)
	}
	return strings.Join(parts, "|")
}
