package harness

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Node names.
const (
	NodeA = "a"
	NodeB = "b"
)

// Scenario is one replication scenario.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// FaultThreshold overrides the fault injector threshold of both nodes.
	// Nil keeps the default; 0 disables injection.
	FaultThreshold *int64 `yaml:"fault_threshold,omitempty"`

	// Offline lists nodes whose listener is closed before the first step.
	// Writes to the other node then fail to propagate.
	Offline []string `yaml:"offline,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one HTTP request sent to a node.
type Step struct {
	Node   string `yaml:"node"`
	Method string `yaml:"method"`

	// Path may reference saved variables as ${name}.
	Path string `yaml:"path"`

	// Body is sent as JSON. A string body is sent verbatim. String values
	// may reference saved variables.
	Body any `yaml:"body,omitempty"`

	Headers map[string]string `yaml:"headers,omitempty"`

	// NoAuth omits the bearer token.
	NoAuth bool `yaml:"no_auth,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`

	// Save binds variables to top-level fields of the JSON response,
	// e.g. {user: external_id}.
	Save map[string]string `yaml:"save,omitempty"`
}

// Expect is the expected response of a step.
type Expect struct {
	Status int `yaml:"status"`

	// Body is a subset match against the decoded JSON response.
	Body map[string]any `yaml:"body,omitempty"`
}

// Assertion is evaluated after all steps have run.
type Assertion struct {
	// Type is one of AssertState, AssertCount, AssertReceived.
	Type string `yaml:"type"`
	Node string `yaml:"node"`

	// Path is the resource read by state and count assertions.
	Path string `yaml:"path,omitempty"`

	// Status is the expected status of a state read (default 200).
	Status int `yaml:"status,omitempty"`

	// Expect is a subset match against a state read.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected list length (count) or number of requests
	// received (received).
	Count int `yaml:"count,omitempty"`

	// Replicated and Method filter the requests counted by received.
	Replicated *bool  `yaml:"replicated,omitempty"`
	Method     string `yaml:"method,omitempty"`
}

// Assertion types.
const (
	AssertState    = "state"
	AssertCount    = "count"
	AssertReceived = "received"
)

var validMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete,
}

// LoadScenario reads and validates the scenario at path.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return sc, nil
}

// ParseScenario decodes and validates a YAML scenario. Unknown fields are
// rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// FindScenarios returns the .yaml and .yml files directly under dir,
// sorted by name.
func FindScenarios(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

// Validate checks the scenario's structure.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", s.Name)
	}
	if s.FaultThreshold != nil && *s.FaultThreshold < 0 {
		return fmt.Errorf("scenario %q: fault_threshold must not be negative", s.Name)
	}
	for _, n := range s.Offline {
		if !validNode(n) {
			return fmt.Errorf("scenario %q: offline: unknown node %q", s.Name, n)
		}
	}

	for i, step := range s.Steps {
		if !validNode(step.Node) {
			return fmt.Errorf("step %d: unknown node %q", i+1, step.Node)
		}
		if slices.Contains(s.Offline, step.Node) {
			return fmt.Errorf("step %d: node %q is offline", i+1, step.Node)
		}
		if !slices.Contains(validMethods, strings.ToUpper(step.Method)) {
			return fmt.Errorf("step %d: unsupported method %q", i+1, step.Method)
		}
		if !strings.HasPrefix(step.Path, "/") {
			return fmt.Errorf("step %d: path must start with /", i+1)
		}
	}

	for i, a := range s.Assertions {
		if !validNode(a.Node) {
			return fmt.Errorf("assertion %d: unknown node %q", i+1, a.Node)
		}
		switch a.Type {
		case AssertState, AssertCount:
			if a.Path == "" {
				return fmt.Errorf("assertion %d: %s requires path", i+1, a.Type)
			}
			if slices.Contains(s.Offline, a.Node) {
				return fmt.Errorf("assertion %d: node %q is offline", i+1, a.Node)
			}
		case AssertReceived:
		default:
			return fmt.Errorf("assertion %d: unknown type %q", i+1, a.Type)
		}
	}
	return nil
}

func validNode(n string) bool {
	return n == NodeA || n == NodeB
}
