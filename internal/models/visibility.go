package models

import "fmt"

// Visibility is a file's access level. The set is closed: every value
// stored or accepted over the API is one of the three constants below,
// matching the database CHECK constraint.
type Visibility string

const (
	VisibilityPrivate    Visibility = "Private"
	VisibilityRestricted Visibility = "Restricted"
	VisibilityEveryone   Visibility = "Everyone"
)

// ParseVisibility validates a client-supplied permission string. The
// comparison is exact; casing matters.
func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(s); v {
	case VisibilityPrivate, VisibilityRestricted, VisibilityEveryone:
		return v, nil
	default:
		return "", fmt.Errorf("unknown permission %q", s)
	}
}

// Shared reports whether files at this level are exposed beyond the
// owner. It is the value of the sharing_enabled column, kept in lockstep
// with visibility on every update.
func (v Visibility) Shared() bool {
	return v != VisibilityPrivate
}
