package builtins

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/csml-dev/csml-engine/internal/cerr"
	"github.com/csml-dev/csml-engine/internal/primitive"
	"github.com/csml-dev/csml-engine/internal/source"
)

// ValueOp is one step of a param's default_value/add_value pipeline
// (spec §4.6): either a literal ($_set) or a reference to another param's
// resolved value ($_get).
type ValueOp struct {
	Set *rawYAMLValue `yaml:"$_set,omitempty"`
	Get string        `yaml:"$_get,omitempty"`
}

// rawYAMLValue decodes any scalar/sequence/mapping YAML node into a
// primitive.Value at header-load time.
type rawYAMLValue struct {
	node yaml.Node
}

func (r *rawYAMLValue) UnmarshalYAML(node *yaml.Node) error {
	r.node = *node
	return nil
}

func (r *rawYAMLValue) toPrimitive() (primitive.Value, error) {
	if r == nil {
		return primitive.Nil, nil
	}
	var v any
	if err := r.node.Decode(&v); err != nil {
		return nil, err
	}
	return toPrimitiveValue(v), nil
}

func toPrimitiveValue(v any) primitive.Value {
	switch t := v.(type) {
	case nil:
		return primitive.Nil
	case bool:
		return primitive.Bool(t)
	case int:
		return primitive.Int(int64(t))
	case int64:
		return primitive.Int(t)
	case float64:
		return primitive.Float(t)
	case string:
		return primitive.Str(t)
	case []any:
		items := make([]primitive.Value, len(t))
		for i, e := range t {
			items[i] = toPrimitiveValue(e)
		}
		return primitive.NewArray(items...)
	case map[string]any:
		obj := primitive.NewObject()
		for k, e := range t {
			obj.Set(k, toPrimitiveValue(e))
		}
		return obj
	default:
		return primitive.Nil
	}
}

// ParamSpec is one declared parameter in a generic-component header.
type ParamSpec struct {
	Name         string
	Required     bool       `yaml:"required"`
	Type         string     `yaml:"type"`
	DefaultValue []ValueOp  `yaml:"default_value"`
	AddValue     []ValueOp  `yaml:"add_value"`
}

// ComponentHeader is one component's declarative spec, as loaded from a
// bot's generic-component header files (spec §4.6: "{ params: [ { name:
// { required, type, default_value: [...], add_value: [...] } } ] }").
type ComponentHeader struct {
	Name   string
	Params []ParamSpec
}

type headerFile struct {
	Params []map[string]ParamSpec `yaml:"params"`
}

// loadHeaders reads every *.yaml/*.yml file in dir (sorted by filename for
// deterministic precedence, matching internal/talents.Loader's directory
// convention), decodes each into a ComponentHeader keyed by the file's
// base name, and checks every param's $_get chain for cycles.
func loadHeaders(dir string) (map[string]*ComponentHeader, []*cerr.Error) {
	headers := map[string]*ComponentHeader{}
	if dir == "" {
		return headers, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return headers, nil
		}
		return headers, []*cerr.Error{cerr.New("", source.Interval{}, cerr.CategoryImportNotFound,
			"read component header dir %q: %v", dir, err)}
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".yaml") || strings.HasSuffix(e.Name(), ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var diags []*cerr.Error
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			diags = append(diags, cerr.New(name, source.Interval{}, cerr.CategoryImportNotFound,
				"read component header %s: %v", name, err))
			continue
		}
		var raw headerFile
		if err := yaml.Unmarshal(data, &raw); err != nil {
			diags = append(diags, cerr.New(name, source.Interval{}, cerr.CategoryImportNotFound,
				"parse component header %s: %v", name, err))
			continue
		}
		component := strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
		header := &ComponentHeader{Name: component}
		for _, entry := range raw.Params {
			for paramName, spec := range entry {
				spec.Name = paramName
				header.Params = append(header.Params, spec)
			}
		}
		if cycleErrs := checkCircularDefaults(component, header); len(cycleErrs) > 0 {
			diags = append(diags, cycleErrs...)
		}
		headers[component] = header
	}
	return headers, diags
}

// checkCircularDefaults walks each param's default_value $_get chain,
// reporting a circular_default_value diagnostic if a chain revisits a
// param it already passed through (spec §4.6).
func checkCircularDefaults(component string, h *ComponentHeader) []*cerr.Error {
	byName := make(map[string]ParamSpec, len(h.Params))
	for _, p := range h.Params {
		byName[p.Name] = p
	}
	var diags []*cerr.Error
	for _, p := range h.Params {
		visited := map[string]bool{p.Name: true}
		cur := p
		for _, op := range cur.DefaultValue {
			if op.Get == "" {
				continue
			}
			chain := op.Get
			for chain != "" {
				if visited[chain] {
					diags = append(diags, cerr.New(component, source.Interval{}, cerr.CategoryCircularDefault,
						"param %q has a circular default_value $_get chain through %q", p.Name, chain))
					chain = ""
					break
				}
				visited[chain] = true
				next, ok := byName[chain]
				if !ok {
					break
				}
				nextGet := ""
				for _, nop := range next.DefaultValue {
					if nop.Get != "" {
						nextGet = nop.Get
						break
					}
				}
				chain = nextGet
			}
		}
	}
	return diags
}

// resolveDefault runs one value-op list ($_set literal, $_get other
// param) in order, given the other already-resolved arguments of the
// same call; the last op's value wins. resolveGenericArgs calls it with a
// param's default_value ops and applies add_value itself.
func resolveDefault(ops []ValueOp, resolved map[string]primitive.Value, iv source.Interval) (primitive.Value, error) {
	var v primitive.Value = primitive.Nil
	for _, op := range ops {
		switch {
		case op.Set != nil:
			sv, err := op.Set.toPrimitive()
			if err != nil {
				return nil, fmt.Errorf("$_set: %w", err)
			}
			v = sv
		case op.Get != "":
			rv, ok := resolved[op.Get]
			if !ok {
				return nil, fmt.Errorf("$_get references unresolved param %q", op.Get)
			}
			v = rv
		}
	}
	_ = iv
	return v, nil
}
