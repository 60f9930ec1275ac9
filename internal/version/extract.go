package version

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxLineSize bounds a single scanned line. Project files can carry long XML lines.
const maxLineSize = 1024 * 1024

// ErrNotFound is returned when no line contains the framing marker.
var ErrNotFound = errors.New("version marker not found")

// ErrMalformed matches any *MalformedError through errors.Is.
var ErrMalformed = errors.New("malformed version")

// MalformedError reports a marker line whose value could not be read as a version.
type MalformedError struct {
	Marker string
	Line   int    // 1-based line number of the marker
	Value  string // extracted value, empty when the bounds were not found
	Err    error
}

// Error implements the error interface.
func (e *MalformedError) Error() string {
	msg := fmt.Sprintf("malformed version for %s on line %d", e.Marker, e.Line)
	if e.Value != "" {
		msg += fmt.Sprintf(" (%q)", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying parse error.
func (e *MalformedError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrMalformed) true.
func (e *MalformedError) Is(target error) bool { return target == ErrMalformed }

// Framing describes where a version lives on a line.
//
// A line is selected when it contains Marker. When Prefix is set the value is
// the text between Prefix and the next Suffix; otherwise it is the text after
// the last Separator. Components keeps only the leading components of the
// value (0 keeps all).
type Framing struct {
	Marker     string
	Prefix     string
	Suffix     string
	Separator  string
	Components int
}

// SolutionFraming reads "VisualStudioVersion = 16.0.28729.10" and keeps major.minor.
var SolutionFraming = Framing{
	Marker:     "VisualStudioVersion",
	Separator:  "=",
	Components: 2,
}

// ProjectFraming reads the TcVersion="3.1.4024.12" attribute of a TwinCAT project.
var ProjectFraming = Framing{
	Marker: `TcVersion="`,
	Prefix: `TcVersion="`,
	Suffix: `"`,
}

// value cuts the raw version text out of a marker line.
func (f Framing) value(line string) (string, bool) {
	if f.Prefix != "" {
		_, rest, ok := strings.Cut(line, f.Prefix)
		if !ok {
			return "", false
		}
		if f.Suffix == "" {
			return strings.TrimSpace(rest), true
		}
		v, _, ok := strings.Cut(rest, f.Suffix)
		return strings.TrimSpace(v), ok
	}
	sep := f.Separator
	if sep == "" {
		sep = "="
	}
	i := strings.LastIndex(line, sep)
	if i < 0 {
		return "", false
	}
	return strings.TrimSpace(line[i+len(sep):]), true
}

// parse converts the raw value, truncating to the configured component count.
func (f Framing) parse(raw string) (Version, error) {
	if f.Components > 0 {
		fields := strings.Split(raw, ".")
		if len(fields) < f.Components {
			return Version{}, fmt.Errorf("%w: %q has fewer than %d components", ErrInvalid, raw, f.Components)
		}
		raw = strings.Join(fields[:f.Components], ".")
	}
	return Parse(raw)
}

// Extract scans r line by line and reads the version from the first line
// containing the framing marker.
//
// Scanning stops at that first marker line whether or not its value parses:
// a malformed first match yields *MalformedError even if a later line would
// have parsed. ErrNotFound is returned when the input holds no marker.
func Extract(r io.Reader, f Framing) (Version, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !strings.Contains(line, f.Marker) {
			continue
		}

		raw, ok := f.value(line)
		if !ok {
			return Version{}, &MalformedError{Marker: f.Marker, Line: lineNo, Err: errors.New("value bounds not found")}
		}
		v, err := f.parse(raw)
		if err != nil {
			return Version{}, &MalformedError{Marker: f.Marker, Line: lineNo, Value: raw, Err: err}
		}
		return v, nil
	}
	if err := scanner.Err(); err != nil {
		return Version{}, fmt.Errorf("scan for %s: %w", f.Marker, err)
	}
	return Version{}, fmt.Errorf("%w: %s", ErrNotFound, f.Marker)
}

// ExtractLines runs Extract over an in-memory sequence of lines.
func ExtractLines(lines []string, f Framing) (Version, error) {
	return Extract(strings.NewReader(strings.Join(lines, "\n")), f)
}

// ExtractFile opens path and runs Extract over its contents.
func ExtractFile(path string, f Framing) (Version, error) {
	file, err := os.Open(path)
	if err != nil {
		return Version{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	v, err := Extract(file, f)
	if err != nil {
		return Version{}, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
