package queuecheck

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/queuecheck/pkg/link"
	"github.com/newtron-network/queuecheck/pkg/util"
)

// Default timeouts.
const (
	DefaultCommandTimeout = 10 * time.Second
	DefaultCheckTimeout   = 2 * time.Minute
)

// Suite is a YAML run description.
type Suite struct {
	Name           string        `yaml:"name"`
	Description    string        `yaml:"description,omitempty"`
	Interface      string        `yaml:"interface,omitempty"`
	Checks         []string      `yaml:"checks,omitempty"`
	Disruptive     *bool         `yaml:"disruptive,omitempty"`
	CheckTimeout   time.Duration `yaml:"check_timeout,omitempty"`
	CommandTimeout time.Duration `yaml:"command_timeout,omitempty"`
	Ethtool        string        `yaml:"ethtool,omitempty"`
	LinkBackend    string        `yaml:"link_backend,omitempty"`
	Report         SuiteReport   `yaml:"report,omitempty"`
	Results        SuiteResults  `yaml:"results,omitempty"`
}

// SuiteReport names the report files to write.
type SuiteReport struct {
	Markdown string `yaml:"markdown,omitempty"`
	JUnit    string `yaml:"junit,omitempty"`
}

// SuiteResults configures publishing to a results database.
type SuiteResults struct {
	Redis string `yaml:"redis,omitempty"`
	DB    int    `yaml:"db,omitempty"`
}

// ParseSuite reads and validates a YAML suite file.
func ParseSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading suite %s: %w", path, err)
	}
	s, err := parseSuite(data)
	if err != nil {
		return nil, fmt.Errorf("suite %s: %w", path, err)
	}
	return s, nil
}

func parseSuite(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	applySuiteDefaults(&s)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func applySuiteDefaults(s *Suite) {
	if s.CommandTimeout == 0 {
		s.CommandTimeout = DefaultCommandTimeout
	}
	if s.CheckTimeout == 0 {
		s.CheckTimeout = DefaultCheckTimeout
	}
	if s.LinkBackend == "" {
		s.LinkBackend = link.BackendNetlink
	}
}

// Validate checks names and value ranges.
func (s *Suite) Validate() error {
	v := &util.ValidationBuilder{}
	for _, name := range s.Checks {
		if _, ok := LookupCheck(name); !ok {
			v.AddErrorf("unknown check %q", name)
		}
	}
	v.Add(s.CommandTimeout > 0, "command_timeout must be positive")
	v.Add(s.CheckTimeout > 0, "check_timeout must be positive")
	switch s.LinkBackend {
	case link.BackendNetlink, link.BackendIP:
	default:
		v.AddErrorf("link_backend must be %q or %q, got %q", link.BackendNetlink, link.BackendIP, s.LinkBackend)
	}
	return v.Build()
}

// RunOptions converts the suite into runner options.
func (s *Suite) RunOptions() RunOptions {
	opts := RunOptions{
		Checks:       s.Checks,
		CheckTimeout: s.CheckTimeout,
	}
	if s.Disruptive != nil {
		opts.SkipDisruptive = !*s.Disruptive
	}
	return opts
}
