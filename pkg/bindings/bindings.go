// Package bindings reads the manifest of symbols the engine provides to scripts:
// external variables living at host addresses and native functions implemented by the
// host. Only declarations are read; their implementation belongs to the engine.
//
// A manifest looks like this:
//
//	externals:
//	  - name: D0
//	    type: u32
//	natives:
//	  - name: System.print
//	    returns: void
//	    params:
//	      - {name: text, type: string}
package bindings

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zurustar/lemonscript/pkg/datatype"
	"github.com/zurustar/lemonscript/pkg/program"
)

// Manifest lists the declarations of one manifest file.
type Manifest struct {
	Externals []External `yaml:"externals"`
	Natives   []Native   `yaml:"natives"`
}

// External declares an external variable.
type External struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Native declares a native function. An empty Returns means void.
type Native struct {
	Name    string  `yaml:"name"`
	Returns string  `yaml:"returns"`
	Params  []Param `yaml:"params"`
}

type Param struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Parse decodes a manifest from YAML bytes.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &m, nil
}

// LoadFile reads the manifest at path.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Apply declares every symbol of the manifest in module and registers it in lookup.
// It has to run before the first LoadScript on the module.
func (m *Manifest) Apply(module *program.Module, lookup *program.GlobalsLookup) error {
	for _, e := range m.Externals {
		dt, err := valueType(e.Type)
		if err != nil {
			return fmt.Errorf("external %s: %w", e.Name, err)
		}
		if err := lookup.RegisterVariable(module.AddExternalVariable(e.Name, dt)); err != nil {
			return fmt.Errorf("external %s: %w", e.Name, err)
		}
	}

	for _, n := range m.Natives {
		rt := datatype.Void
		if n.Returns != "" {
			t, ok := datatype.ByName(n.Returns)
			if !ok {
				return fmt.Errorf("native %s: unknown return type %q", n.Name, n.Returns)
			}
			rt = t
		}
		params := make([]program.Parameter, len(n.Params))
		for i, p := range n.Params {
			dt, err := valueType(p.Type)
			if err != nil {
				return fmt.Errorf("native %s, parameter %s: %w", n.Name, p.Name, err)
			}
			params[i] = program.Parameter{Name: p.Name, Type: dt}
		}
		if err := lookup.RegisterFunction(module.AddNativeFunction(n.Name, rt, params)); err != nil {
			return fmt.Errorf("native %s: %w", n.Name, err)
		}
	}
	return nil
}

// valueType resolves a type name that has to carry a value.
func valueType(name string) (*datatype.Type, error) {
	dt, ok := datatype.ByName(name)
	if !ok {
		return nil, fmt.Errorf("unknown type %q", name)
	}
	if dt.IsVoid() {
		return nil, fmt.Errorf("type void carries no value")
	}
	return dt, nil
}
