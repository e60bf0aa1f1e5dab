// Package shape resolves canonical fields out of loosely typed storefront payloads.
//
// Each entity declares the envelopes it may be wrapped in and, per canonical field,
// an ordered list of dotted candidate paths. The table ships embedded as shapes.yaml
// and may be replaced at runtime with a file of the same format.
package shape

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed shapes.yaml
var defaultShapes []byte

// TransformShortID keeps the last eight characters of an identifier, upper-cased.
const TransformShortID = "short_id"

// Candidate is one place a canonical field may live in a payload.
type Candidate struct {
	Path      string `yaml:"path"`
	Transform string `yaml:"transform,omitempty"`
}

// UnmarshalYAML accepts either a bare path or a {path, transform} mapping.
func (c *Candidate) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		c.Path = node.Value
		return nil
	}

	type plain Candidate
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*c = Candidate(p)
	return nil
}

// Object describes one entity: its envelopes and its field candidates.
type Object struct {
	Envelopes []string               `yaml:"envelopes"`
	Fields    map[string][]Candidate `yaml:"fields"`
}

// Schema is the full candidate table.
type Schema struct {
	Version      string `yaml:"version"`
	Cart         Object `yaml:"cart"`
	CartLine     Object `yaml:"cart_line"`
	AddressList  Object `yaml:"address_list"`
	Address      Object `yaml:"address"`
	Prescription Object `yaml:"prescription"`
	Order        Object `yaml:"order"`
	OrderItem    Object `yaml:"order_item"`
	OrderAddress Object `yaml:"order_address"`
}

var (
	defaultOnce   sync.Once
	defaultSchema *Schema
)

// Default returns the embedded schema.
func Default() *Schema {
	defaultOnce.Do(func() {
		s, err := Parse(defaultShapes)
		if err != nil {
			panic(fmt.Sprintf("shape: embedded shapes.yaml is invalid: %v", err))
		}
		defaultSchema = s
	})
	return defaultSchema
}

// LoadFile reads a schema from disk. An empty path yields the embedded default.
func LoadFile(path string) (*Schema, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shapes file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes and validates a YAML schema.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse shapes YAML: %w", err)
	}

	if s.Version == "" {
		s.Version = "1"
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

func (s *Schema) validate() error {
	objects := map[string]Object{
		"cart":          s.Cart,
		"cart_line":     s.CartLine,
		"address_list":  s.AddressList,
		"address":       s.Address,
		"prescription":  s.Prescription,
		"order":         s.Order,
		"order_item":    s.OrderItem,
		"order_address": s.OrderAddress,
	}

	var errs []error
	for name, obj := range objects {
		for _, env := range obj.Envelopes {
			if err := validatePath(env); err != nil {
				errs = append(errs, fmt.Errorf("%s envelope: %w", name, err))
			}
		}
		for field, candidates := range obj.Fields {
			for _, c := range candidates {
				if err := validatePath(c.Path); err != nil {
					errs = append(errs, fmt.Errorf("%s.%s: %w", name, field, err))
				}
				if c.Transform != "" && c.Transform != TransformShortID {
					errs = append(errs, fmt.Errorf("%s.%s: unknown transform %q", name, field, c.Transform))
				}
			}
		}
	}

	return errors.Join(errs...)
}

func validatePath(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	for _, seg := range strings.Split(path, ".") {
		if strings.TrimSpace(seg) == "" {
			return fmt.Errorf("invalid path %q: empty segment", path)
		}
	}
	return nil
}
