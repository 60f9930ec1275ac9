package version

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSolution = "\ufeff\r\n" +
	"Microsoft Visual Studio Solution File, Format Version 12.00\r\n" +
	"# Visual Studio Version 16\r\n" +
	"VisualStudioVersion = 16.0.28729.10\r\n" +
	"MinimumVisualStudioVersion = 10.0.40219.1\r\n" +
	"Project(\"{B1E792BE-AA5F-4E3C-8C82-674BF9C0715B}\") = \"Plc\", \"Plc\\Plc.tsproj\", \"{GUID}\"\r\n" +
	"EndProject\r\n"

const sampleProject = `<?xml version="1.0"?>
<TcSmProject xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" TcSmVersion="1.0" TcVersion="3.1.4024.12">
	<Project ProjectGUID="{GUID}" TargetNetId="127.0.0.1.1.1"/>
</TcSmProject>
`

func TestExtractSolutionVersion(t *testing.T) {
	v, err := Extract(strings.NewReader(sampleSolution), SolutionFraming)
	require.NoError(t, err)
	assert.Equal(t, "16.0", v.String())
}

func TestExtractSolutionWellFormedLines(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"VisualStudioVersion = 15.0", "15.0"},
		{"VisualStudioVersion = 16.0", "16.0"},
		{"VisualStudioVersion = 17.4.33103.184", "17.4"},
		{"VisualStudioVersion=17.0", "17.0"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			v, err := ExtractLines([]string{"header", tt.line}, SolutionFraming)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestExtractProjectVersion(t *testing.T) {
	v, err := Extract(strings.NewReader(sampleProject), ProjectFraming)
	require.NoError(t, err)
	assert.Equal(t, "3.1.4024.12", v.String())
}

func TestExtractProjectAttributeWithClosingBracket(t *testing.T) {
	v, err := ExtractLines([]string{`<TcSmProject TcVersion="3.1.4024.1">`}, ProjectFraming)
	require.NoError(t, err)
	assert.Equal(t, "3.1.4024.1", v.String())
}

func TestExtractNotFound(t *testing.T) {
	_, err := ExtractLines([]string{"nothing", "to see"}, SolutionFraming)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrMalformed))

	_, err = ExtractLines(nil, ProjectFraming)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExtractStopsAtFirstMarker(t *testing.T) {
	lines := []string{
		"VisualStudioVersion = sixteen.zero",
		"VisualStudioVersion = 16.0",
	}

	_, err := ExtractLines(lines, SolutionFraming)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
	assert.False(t, errors.Is(err, ErrNotFound))

	var malformed *MalformedError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, 1, malformed.Line)
	assert.Equal(t, "sixteen.zero", malformed.Value)
}

func TestExtractMalformedProjectValues(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "non numeric", line: `<TcSmProject TcVersion="3.1.x.12">`},
		{name: "unterminated attribute", line: `<TcSmProject TcVersion="3.1.4024.12`},
		{name: "too many components", line: `<TcSmProject TcVersion="3.1.4024.12.7">`},
		{name: "empty value", line: `<TcSmProject TcVersion="">`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractLines([]string{tt.line, `TcVersion="3.1.4024.12"`}, ProjectFraming)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestExtractSolutionTooFewComponents(t *testing.T) {
	_, err := ExtractLines([]string{"VisualStudioVersion = 16"}, SolutionFraming)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Plc.tsproj")
	require.NoError(t, os.WriteFile(path, []byte(sampleProject), 0644))

	v, err := ExtractFile(path, ProjectFraming)
	require.NoError(t, err)
	assert.Equal(t, "3.1.4024.12", v.String())

	_, err = ExtractFile(filepath.Join(dir, "missing.tsproj"), ProjectFraming)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestMalformedErrorMessage(t *testing.T) {
	err := &MalformedError{Marker: "VisualStudioVersion", Line: 4, Value: "x.y", Err: ErrInvalid}
	assert.Contains(t, err.Error(), "line 4")
	assert.Contains(t, err.Error(), `"x.y"`)
	assert.ErrorIs(t, err, ErrInvalid)
}
