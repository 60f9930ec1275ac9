package automation

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/harrison/tcsa/internal/diagnostics"
	"github.com/harrison/tcsa/internal/version"
	"gopkg.in/yaml.v3"
)

// replayFile is the on-disk layout of a replay file. A bare list of records is also accepted.
type replayFile struct {
	Diagnostics []diagnostics.Record `yaml:"diagnostics"`
}

// LoadReplayFile reads diagnostics recorded as YAML, either a top-level list of
// records or a mapping with a "diagnostics" list.
func LoadReplayFile(path string) ([]diagnostics.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read replay file: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse replay file %s: %w", path, err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var records []diagnostics.Record
		if err := root.Decode(&records); err != nil {
			return nil, fmt.Errorf("failed to decode replay file %s: %w", path, err)
		}
		return records, nil
	case yaml.MappingNode:
		var file replayFile
		if err := root.Decode(&file); err != nil {
			return nil, fmt.Errorf("failed to decode replay file %s: %w", path, err)
		}
		return file.Diagnostics, nil
	default:
		return nil, fmt.Errorf("replay file %s must hold a list of diagnostics", path)
	}
}

// Replay is an Automation that serves a fixed diagnostic list instead of driving an IDE.
type Replay struct {
	records []diagnostics.Record
}

// NewReplay serves records from every session it opens.
func NewReplay(records []diagnostics.Record) *Replay {
	return &Replay{records: records}
}

// NewReplayFromFile loads the records served by the replay backend from path.
func NewReplayFromFile(path string) (*Replay, error) {
	records, err := LoadReplayFile(path)
	if err != nil {
		return nil, err
	}
	return NewReplay(records), nil
}

// MessageFilter returns a no-op filter.
func (r *Replay) MessageFilter() MessageFilter { return NoopFilter{} }

// Open returns a session over the recorded diagnostics. The solution must exist.
func (r *Replay) Open(ctx context.Context, solutionPath string, ide version.Version) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(solutionPath); err != nil {
		return nil, fmt.Errorf("open solution: %w", err)
	}
	return &replaySession{records: r.records}, nil
}

type replaySession struct {
	mu      sync.Mutex
	records []diagnostics.Record
	built   bool
	closed  bool
}

func (s *replaySession) check(ctx context.Context) error {
	if s.closed {
		return fmt.Errorf("session closed")
	}
	return ctx.Err()
}

func (s *replaySession) SetToolVersion(ctx context.Context, v version.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.check(ctx)
}

func (s *replaySession) Clean(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.built = false
	return nil
}

func (s *replaySession) Build(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.built = true
	return nil
}

// ListDiagnostics returns the recorded diagnostics after a build, or none before one.
func (s *replaySession) ListDiagnostics(ctx context.Context) ([]diagnostics.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if !s.built {
		return nil, nil
	}
	out := make([]diagnostics.Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *replaySession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
