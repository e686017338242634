package settings

// Tristate is a bool that may be left unset.
type Tristate uint8

const (
	// Unset means no explicit value was given.
	Unset Tristate = iota
	// True is an explicit true.
	True
	// False is an explicit false.
	False
)

// TristateOf converts b to an explicit Tristate.
func TristateOf(b bool) Tristate {
	if b {
		return True
	}
	return False
}

// IsSet reports whether an explicit value was given.
func (t Tristate) IsSet() bool {
	return t != Unset
}

// Bool returns true only for True.
func (t Tristate) Bool() bool {
	return t == True
}

// String returns a string representation of the tristate.
func (t Tristate) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unset"
	}
}

// Attributes is the declarative metadata attached to a property, a config
// record, or a plugin as a whole. It is resolved once when an entry is built.
type Attributes struct {
	// Advanced hides the setting behind a "show advanced" toggle.
	Advanced bool

	// Description is a human-readable explanation of the setting.
	Description string

	// DisplayName overrides the declared name when non-empty.
	DisplayName string

	// Browsable explicitly shows or hides the setting.
	Browsable Tristate

	// ReadOnly marks the setting as not editable.
	ReadOnly bool

	// Category groups settings in the UI.
	Category string

	// Order sorts settings within a category (lower first).
	Order int
}
