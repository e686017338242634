package settings

import (
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyEntry_DisplayNameFallback(t *testing.T) {
	c := &counter{}
	p, err := LookupProperty(c, "Count")
	require.NoError(t, err)

	e := NewPropertyEntry(c, p, PluginInfo{Name: "counter"})
	assert.Equal(t, "Count", e.DisplayName())

	e.SetDisplayName("Tick count")
	assert.Equal(t, "Tick count", e.DisplayName())

	e.SetDisplayName("")
	assert.Equal(t, "Count", e.DisplayName())
}

func TestPropertyEntry_AttributesApplied(t *testing.T) {
	c := &counter{}
	p, err := LookupProperty(c, "Count")
	require.NoError(t, err)
	p = annotated{Property: p, attrs: Attributes{
		DisplayName: "Tick count",
		Category:    "Timing",
		Order:       2,
		Advanced:    true,
	}}

	e := NewPropertyEntry(c, p, PluginInfo{Name: "counter"})
	assert.Equal(t, "Tick count", e.DisplayName())
	assert.Equal(t, "Timing", e.Category())
	assert.Equal(t, 2, e.Order())
	assert.True(t, e.IsAdvanced())
	assert.Equal(t, "counter", e.Plugin().Name)
}

func TestPropertyEntry_BrowsableDefaultsFromAccess(t *testing.T) {
	c := &counter{}

	rw, err := LookupProperty(c, "Count")
	require.NoError(t, err)
	assert.Equal(t, True, NewPropertyEntry(c, rw, PluginInfo{}).Browsable())

	ro, err := LookupProperty(c, "Label")
	require.NoError(t, err)
	assert.Equal(t, False, NewPropertyEntry(c, ro, PluginInfo{}).Browsable())

	hidden := annotated{Property: rw, attrs: Attributes{Browsable: False}}
	assert.Equal(t, False, NewPropertyEntry(c, hidden, PluginInfo{}).Browsable(), "explicit attribute wins")
}

// ReadOnly is reported as the accessor's writability, so a writable property
// claims to be read-only. Writes still go through.
func TestPropertyEntry_ReadOnlyMirrorsWritability(t *testing.T) {
	c := &counter{}

	rw, err := LookupProperty(c, "Count")
	require.NoError(t, err)
	e := NewPropertyEntry(c, rw, PluginInfo{})
	assert.True(t, e.ReadOnly(), "writable accessor is flagged read-only")
	require.NoError(t, e.Set(5))
	assert.Equal(t, 5, c.n)

	ro, err := LookupProperty(c, "Label")
	require.NoError(t, err)
	e = NewPropertyEntry(c, ro, PluginInfo{})
	assert.False(t, e.ReadOnly(), "getter-only accessor is not flagged read-only")
	assert.ErrorIs(t, e.Set("x"), ErrNotWritable)
}

func TestPropertyEntry_GetErrors(t *testing.T) {
	c := &counter{}

	only, err := LookupProperty(c, "Only")
	require.NoError(t, err)
	_, err = NewPropertyEntry(c, only, PluginInfo{}).Get()
	assert.ErrorIs(t, err, ErrNotReadable)

	inst := &fakeInstance{enabled: true}
	p, err := LookupProperty(inst, "Enabled")
	require.NoError(t, err)
	e := NewPropertyEntry(inst, p, PluginInfo{})

	v, err := e.Get()
	require.NoError(t, err)
	assert.Equal(t, true, v)

	inst.stale = true
	_, err = e.Get()
	assert.ErrorIs(t, err, ErrStaleInstance)
	assert.ErrorIs(t, e.Set(false), ErrStaleInstance)
}

func TestPropertyEntry_SetTypeMismatch(t *testing.T) {
	c := &counter{}
	p, err := LookupProperty(c, "Count")
	require.NoError(t, err)
	e := NewPropertyEntry(c, p, PluginInfo{})

	err = e.Set("seven")
	var te *TypeError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, reflect.TypeOf(0), te.Expected)
	assert.Equal(t, reflect.TypeOf(""), te.Actual)

	require.ErrorAs(t, e.Set(nil), &te)
	assert.Nil(t, te.Actual)
}

func TestConfigEntry_RoundTrip(t *testing.T) {
	values := []any{"text", int64(42), 3.5, true, 90 * time.Second, []string{"a", "b"}}

	for _, v := range values {
		rec := newFakeRecord("key", reflect.Zero(reflect.TypeOf(v)).Interface(), Attributes{})
		e := NewConfigEntry(rec, nil)

		require.NoError(t, e.Set(v))
		got, err := e.Get()
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestConfigEntry_Metadata(t *testing.T) {
	rec := newFakeRecord("volume", 0.5, Attributes{
		Description: "Output gain",
		DisplayName: "Volume",
		Advanced:    true,
		ReadOnly:    true,
		Category:    "Audio",
	})
	owner := &fakePlugin{name: "audio"}

	e := NewConfigEntry(rec, owner)
	assert.Equal(t, "Volume", e.DisplayName())
	assert.Equal(t, "Output gain", e.Description())
	assert.True(t, e.IsAdvanced())
	assert.True(t, e.ReadOnly())
	assert.Equal(t, Unset, e.Browsable())
	assert.Equal(t, "audio", e.Plugin().Name)
	assert.Same(t, owner, e.Owner())
	assert.ErrorIs(t, e.Set(0.1), ErrNotWritable)

	_, ok := e.Default()
	assert.False(t, ok)
	assert.Nil(t, e.AcceptableValues())
}

func TestConfigEntry_DisplayNameFallsBackToKey(t *testing.T) {
	e := NewConfigEntry(newFakeRecord("Volume", 1.0, Attributes{}), nil)
	assert.Equal(t, "Volume", e.DisplayName())
}

func TestVisibleAndGroup(t *testing.T) {
	a := PluginInfo{Name: "a"}
	b := PluginInfo{Name: "b"}

	mk := func(key string, attrs Attributes, owner PluginInfo) Entry {
		e := NewConfigEntry(newFakeRecord(key, 1, attrs), nil)
		e.SetPlugin(owner)
		return e
	}

	entries := []Entry{
		mk("z", Attributes{Category: "General"}, a),
		mk("adv", Attributes{Advanced: true}, a),
		mk("x", Attributes{Category: "Audio", Order: 2}, b),
		mk("gone", Attributes{Browsable: False}, b),
		mk("y", Attributes{Category: "Audio", Order: 1}, b),
		mk("m", Attributes{Category: "General"}, a),
	}

	visible := slices.Collect(Visible(slices.Values(entries), false))
	assert.Len(t, visible, 4)

	groups := GroupByPlugin(Visible(slices.Values(entries), true))
	require.Len(t, groups, 2)
	assert.Equal(t, a, groups[0].Plugin)
	assert.Equal(t, []string{"adv", "m", "z"}, displayNames(groups[0].Entries))
	assert.Equal(t, []string{"y", "x"}, displayNames(groups[1].Entries))
}

func displayNames(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.DisplayName()
	}
	return out
}
