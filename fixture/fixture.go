// Package fixture declares expectations from YAML documents.
//
// A fixture looks like:
//
//	expectations:
//	  - target: Mailer
//	    method: Send
//	    with: {text: "@example.com"}
//	    returns: queued
//	    times: 2
//	  - target: Mailer
//	    method: Close
//	    raises: already closed
//	    anyTimes: true
//
// Documents are validated against Schema before anything is registered, and
// each expectation's declaration site is the fixture name and line.
//
// Values under array, object, exact and props are compared by shape rather
// than Go type, so [a, b] matches a []string and 7 matches an int64 or uint
// field. Mappings must name every exported field of a struct argument when
// used as a whole object; props only constrain the fields they list.
// Returned values keep their YAML-decoded types ([]any, map[string]any, int,
// float64).
package fixture

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/toejough/impstub/internal/core"
	"gopkg.in/yaml.v3"
)

// Schema is the JSON Schema every fixture document must satisfy.
//
//go:embed schema.json
var Schema string

// ErrInvalidFixture wraps every parse or validation failure.
var ErrInvalidFixture = errors.New("invalid fixture")

// Load parses a fixture from r and registers its expectations in s, in
// document order. name identifies the fixture in declaration sites and errors.
// Nothing is registered if any part of the document is invalid.
func Load(s *core.Session, name string, r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read fixture %s: %w", name, err)
	}

	expectations, err := Parse(name, data)
	if err != nil {
		return 0, err
	}

	for _, e := range expectations {
		s.Register(e)
	}

	return len(expectations), nil
}

// LoadFile is Load for a file on disk.
func LoadFile(s *core.Session, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer file.Close()

	return Load(s, path, file)
}

// Parse builds the expectations a fixture declares without registering them.
func Parse(name string, data []byte) ([]*core.Expectation, error) {
	var root yaml.Node

	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrInvalidFixture, name, err)
	}

	if err := validate(&root); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrInvalidFixture, name, err)
	}

	var doc document

	if err := root.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrInvalidFixture, name, err)
	}

	expectations := make([]*core.Expectation, 0, len(doc.Expectations))

	for i := range doc.Expectations {
		node := &doc.Expectations[i]

		var item entry
		if err := node.Decode(&item); err != nil {
			return nil, fmt.Errorf("%w %s:%d: %w", ErrInvalidFixture, name, node.Line, err)
		}

		e, err := item.build(core.Site{File: name, Line: node.Line})
		if err != nil {
			return nil, fmt.Errorf("%w %s:%d: %w", ErrInvalidFixture, name, node.Line, err)
		}

		expectations = append(expectations, e)
	}

	return expectations, nil
}

//nolint:gochecknoglobals // compiled once from the embedded schema
var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(Schema))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("fixture.schema.json", doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	return compiler.Compile("fixture.schema.json")
})

type document struct {
	Expectations []yaml.Node `yaml:"expectations"`
}

type entry struct {
	Target   string       `yaml:"target"`
	Method   string       `yaml:"method"`
	With     *matcherSpec `yaml:"with"`
	Returns  yaml.Node    `yaml:"returns"`
	Raises   *string      `yaml:"raises"`
	Times    *int         `yaml:"times"`
	AtLeast  *int         `yaml:"atLeast"`
	AnyTimes bool         `yaml:"anyTimes"`
}

func (e entry) build(site core.Site) (*core.Expectation, error) {
	expectation := core.NewExpectationAt(e.Target, e.Method, site)

	if e.With != nil {
		matcher, err := e.With.build()
		if err != nil {
			return nil, err
		}

		expectation.AttachMatcher(matcher)
	}

	if e.Returns.Kind != 0 {
		value, err := decodeAny(&e.Returns)
		if err != nil {
			return nil, fmt.Errorf("returns: %w", err)
		}

		expectation.SetResponse(value)
	}

	if e.Raises != nil {
		expectation.SetFailure(errors.New(*e.Raises)) //nolint:err113 // message comes from the fixture
	}

	switch {
	case e.Times != nil:
		expectation.SetCountPolicy(core.Exactly(*e.Times))
	case e.AtLeast != nil:
		expectation.SetCountPolicy(core.AtLeast(*e.AtLeast))
	case e.AnyTimes:
		expectation.SetCountPolicy(core.AnyTimes())
	}

	return expectation, nil
}

type matcherSpec struct {
	Any    bool           `yaml:"any"`
	Text   *string        `yaml:"text"`
	Regex  *string        `yaml:"regex"`
	Array  yaml.Node      `yaml:"array"`
	Object yaml.Node      `yaml:"object"`
	Props  map[string]any `yaml:"props"`
	Exact  yaml.Node      `yaml:"exact"`
}

func (m *matcherSpec) build() (core.ArgMatcher, error) {
	switch {
	case m.Any:
		return core.MatchAny(), nil
	case m.Text != nil:
		return core.MatchSubstring(*m.Text), nil
	case m.Regex != nil:
		if _, err := regexp.Compile(*m.Regex); err != nil {
			return nil, fmt.Errorf("with.regex: %w", err)
		}

		return core.MatchRegex(*m.Regex), nil
	case m.Array.Kind != 0:
		value, err := decodeAny(&m.Array)
		if err != nil {
			return nil, fmt.Errorf("with.array: %w", err)
		}

		return core.MatchArray(core.Loosely(value)), nil
	case m.Object.Kind != 0:
		template, err := decodeAny(&m.Object)
		if err != nil {
			return nil, fmt.Errorf("with.object: %w", err)
		}

		return core.MatchObject(core.Loosely(template), looseProps(m.Props)), nil
	case m.Exact.Kind != 0:
		var args []any

		if err := m.Exact.Decode(&args); err != nil {
			return nil, fmt.Errorf("with.exact: %w", err)
		}

		for i := range args {
			args[i] = core.Loosely(args[i])
		}

		return core.MatchExact(args), nil
	}

	//nolint:err113 // schema validation makes this unreachable for valid documents
	return nil, errors.New("with: no matcher given")
}

func decodeAny(node *yaml.Node) (any, error) {
	var value any

	err := node.Decode(&value)

	return value, err
}

func looseProps(props map[string]any) map[string]any {
	if len(props) == 0 {
		return nil
	}

	loose := make(map[string]any, len(props))
	for key, value := range props {
		loose[key] = core.Loosely(value)
	}

	return loose
}

// validate checks the document against Schema. YAML is converted to JSON
// first so the validator sees the same value shapes it would for JSON input.
func validate(root *yaml.Node) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	var generic any

	if root.Kind != 0 {
		if err := root.Decode(&generic); err != nil {
			return err
		}
	}

	data, err := json.Marshal(generic)
	if err != nil {
		return fmt.Errorf("fixture is not JSON-compatible: %w", err)
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return err
	}

	return schema.Validate(instance)
}
