// Package report renders the summary of a resolved run as YAML, Markdown or
// HTML and writes it atomically.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/harrison/tcsa/internal/diagnostics"
	"github.com/harrison/tcsa/internal/filelock"
	"github.com/harrison/tcsa/internal/pipeline"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

// Summary is the serialized form of a run.
type Summary struct {
	RunID        string                 `yaml:"run_id"`
	GeneratedAt  time.Time              `yaml:"generated_at"`
	Solution     string                 `yaml:"solution"`
	Project      string                 `yaml:"project"`
	VisualStudio string                 `yaml:"visual_studio_version"`
	TwinCAT      string                 `yaml:"twincat_version"`
	TagPrefix    string                 `yaml:"tag_prefix"`
	Diagnostics  int                    `yaml:"diagnostics"`
	Counts       diagnostics.Counts     `yaml:"counts"`
	Status       diagnostics.ExitStatus `yaml:"status"`
	ExitCode     int                    `yaml:"exit_code"`
	DurationSecs float64                `yaml:"duration_seconds"`
	Findings     []diagnostics.Record   `yaml:"findings"`
}

// NewSummary builds a Summary from a resolved run.
func NewSummary(runID string, cfg pipeline.RunConfig, tagPrefix string, result *pipeline.Result) Summary {
	findings := result.Matched
	if findings == nil {
		findings = []diagnostics.Record{}
	}
	return Summary{
		RunID:        runID,
		GeneratedAt:  time.Now().UTC().Truncate(time.Second),
		Solution:     cfg.SolutionPath,
		Project:      cfg.ProjectPath,
		VisualStudio: result.Versions.VisualStudio.String(),
		TwinCAT:      result.Versions.TwinCAT.String(),
		TagPrefix:    tagPrefix,
		Diagnostics:  len(result.Diagnostics),
		Counts:       result.Counts,
		Status:       result.Status,
		ExitCode:     result.Status.ExitCode(),
		DurationSecs: result.Duration.Seconds(),
		Findings:     findings,
	}
}

// Render encodes s in the given format: "yaml", "markdown" or "html".
func Render(s Summary, format string) ([]byte, error) {
	switch format {
	case "yaml":
		return yaml.Marshal(s)
	case "markdown":
		return []byte(Markdown(s)), nil
	case "html":
		return HTML(s)
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// Write renders s and writes it atomically to path.
func Write(path, format string, s Summary) error {
	data, err := Render(s, format)
	if err != nil {
		return err
	}
	if err := filelock.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Markdown renders s as a Markdown document with a findings table.
func Markdown(s Summary) string {
	var sb strings.Builder

	sb.WriteString("# Static analysis report\n\n")
	fmt.Fprintf(&sb, "**Status:** %s (exit code %d)\n\n", strings.ToUpper(s.Status.String()), s.ExitCode)

	sb.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Run | `%s` |\n", s.RunID)
	fmt.Fprintf(&sb, "| Generated | %s |\n", s.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "| Solution | `%s` |\n", s.Solution)
	fmt.Fprintf(&sb, "| Project | `%s` |\n", s.Project)
	fmt.Fprintf(&sb, "| Visual Studio | %s |\n", s.VisualStudio)
	fmt.Fprintf(&sb, "| TwinCAT | %s |\n", s.TwinCAT)
	fmt.Fprintf(&sb, "| Diagnostics | %d |\n", s.Diagnostics)
	fmt.Fprintf(&sb, "| Warnings | %d |\n", s.Counts.Warnings)
	fmt.Fprintf(&sb, "| Errors | %d |\n", s.Counts.Errors)
	fmt.Fprintf(&sb, "| Duration | %.1fs |\n", s.DurationSecs)

	sb.WriteString("\n## Findings\n\n")
	if len(s.Findings) == 0 {
		fmt.Fprintf(&sb, "No `%s` findings above low severity.\n", s.TagPrefix)
		return sb.String()
	}

	sb.WriteString("| Severity | Description | File |\n|---|---|---|\n")
	for _, f := range s.Findings {
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", f.Severity, escapeCell(f.Description), escapeCell(f.SourceFile))
	}
	return sb.String()
}

// HTML renders the Markdown report through goldmark with GFM tables.
func HTML(s Summary) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(s)), &body); err != nil {
		return nil, fmt.Errorf("failed to render html report: %w", err)
	}

	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Static analysis report</title>\n</head>\n<body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}

// cellEscaper backslash-escapes Markdown punctuation so IDE text renders literally.
var cellEscaper = strings.NewReplacer(
	`\`, `\\`,
	"|", `\|`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"&", `\&`,
	"#", `\#`,
	"~", `\~`,
	"!", `\!`,
	"\r", "",
	"\n", " ",
)

// escapeCell keeps a value inside a single Markdown table cell.
func escapeCell(s string) string {
	return cellEscaper.Replace(s)
}
