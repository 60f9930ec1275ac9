// Package version parses, compares and gates the dotted numeric versions found
// in Visual Studio solution files and TwinCAT project files.
//
// A Version holds two to four non-negative integer components
// (major.minor[.build[.revision]]). Comparison is numeric, most significant
// component first, and absent trailing components compare as zero, so 3.1
// equals 3.1.0.0.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	minComponents = 2
	maxComponents = 4
)

// MinimumTwinCAT is the oldest TwinCAT release whose build exposes static analysis.
var MinimumTwinCAT = MustParse("3.1.4022.0")

// ErrInvalid is returned by Parse for text that is not a dotted numeric version.
var ErrInvalid = errors.New("invalid version")

// Version is an immutable numeric version of two to four components.
type Version struct {
	parts [maxComponents]int
	n     int
}

// New builds a Version from its components.
func New(components ...int) (Version, error) {
	if len(components) < minComponents || len(components) > maxComponents {
		return Version{}, fmt.Errorf("%w: need %d to %d components, got %d",
			ErrInvalid, minComponents, maxComponents, len(components))
	}
	var v Version
	for i, c := range components {
		if c < 0 {
			return Version{}, fmt.Errorf("%w: component %d is negative", ErrInvalid, i)
		}
		v.parts[i] = c
	}
	v.n = len(components)
	return v, nil
}

// Parse reads a dotted version such as "16.0" or "3.1.4024.12".
// Every component must consist of ASCII digits only.
func Parse(s string) (Version, error) {
	fields := strings.Split(strings.TrimSpace(s), ".")
	components := make([]int, 0, len(fields))
	for _, field := range fields {
		if field == "" || strings.TrimLeft(field, "0123456789") != "" {
			return Version{}, fmt.Errorf("%w: %q", ErrInvalid, s)
		}
		c, err := strconv.Atoi(field)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q: %v", ErrInvalid, s, err)
		}
		components = append(components, c)
	}
	v, err := New(components...)
	if err != nil {
		return Version{}, fmt.Errorf("%q: %w", s, err)
	}
	return v, nil
}

// MustParse is like Parse but panics on error. Intended for constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether v is the zero Version (never constructed).
func (v Version) IsZero() bool { return v.n == 0 }

// Len returns the number of components present.
func (v Version) Len() int { return v.n }

// Major returns the first component.
func (v Version) Major() int { return v.parts[0] }

// Minor returns the second component.
func (v Version) Minor() int { return v.parts[1] }

// Build returns the third component, or 0 if absent.
func (v Version) Build() int { return v.parts[2] }

// Revision returns the fourth component, or 0 if absent.
func (v Version) Revision() int { return v.parts[3] }

// Components returns a copy of the present components.
func (v Version) Components() []int {
	out := make([]int, v.n)
	copy(out, v.parts[:v.n])
	return out
}

// Compare returns -1, 0 or +1 when v is less than, equal to, or greater than other.
// Missing trailing components compare as zero.
func (v Version) Compare(other Version) int {
	for i := 0; i < maxComponents; i++ {
		switch {
		case v.parts[i] < other.parts[i]:
			return -1
		case v.parts[i] > other.parts[i]:
			return 1
		}
	}
	return 0
}

// String renders the present components joined by dots.
func (v Version) String() string {
	if v.n == 0 {
		return ""
	}
	parts := make([]string, v.n)
	for i := 0; i < v.n; i++ {
		parts[i] = strconv.Itoa(v.parts[i])
	}
	return strings.Join(parts, ".")
}

// IsSupported reports whether detected is at least minimum. The minimum is inclusive.
func IsSupported(detected, minimum Version) bool {
	return detected.Compare(minimum) >= 0
}
