package rules

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// NodeKind is the structural role of a registered node.
type NodeKind string

const (
	KindConstant NodeKind = "CONSTANT"
	KindVariable NodeKind = "VARIABLE"
	KindOperator NodeKind = "OPERATOR"
)

// Factory builds one Node instance from merged construction parameters and
// (for operator nodes) already-constructed children. It is responsible for
// picking only the parameter keys it recognizes out of params — the Go
// analogue of the source registry's constructor-signature filtering.
type Factory func(name string, params map[string]interface{}, children []Node) (Node, error)

// NodeSpec is the immutable-after-registration description of one node
// name: its structural kind, declared return type, (for operators) its
// per-argument expected types, default construction parameters, and the
// factory that builds it.
type NodeSpec struct {
	Name          string
	Description   string
	Kind          NodeKind
	ReturnType    SemanticType
	ArgsType      []SemanticType // only meaningful for Kind == KindOperator
	DefaultParams map[string]interface{}
	New           Factory
}

// Registry is the process-wide map from upper-cased node name to its spec.
// Registration happens once at process start; lookups happen continuously
// during parsing and rule construction. Guarded by a RWMutex so reads never
// block each other.
type Registry struct {
	specs map[string]NodeSpec
	mu    sync.RWMutex
	log   zerolog.Logger
}

// NewRegistry creates an empty node registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		specs: make(map[string]NodeSpec),
		log:   log.With().Str("component", "rules.Registry").Logger(),
	}
}

// Register adds spec under its upper-cased name. Registering two specs
// under the same name is a hard error — node names must be unique.
func (r *Registry) Register(spec NodeSpec) error {
	name := strings.ToUpper(spec.Name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.specs[name]; exists {
		return fmt.Errorf("rules: node %q already registered", name)
	}
	spec.Name = name
	r.specs[name] = spec
	r.log.Debug().Str("node", name).Str("kind", string(spec.Kind)).Msg("node registered")
	return nil
}

// MustRegister panics if Register fails; intended for init-time
// registration lists where a collision is a programming error.
func (r *Registry) MustRegister(spec NodeSpec) {
	if err := r.Register(spec); err != nil {
		panic(err)
	}
}

// Get returns the spec registered under name (case-insensitive).
func (r *Registry) Get(name string) (NodeSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[strings.ToUpper(name)]
	return spec, ok
}

// List returns every registered spec, sorted by name, optionally filtered
// by kind and/or return type (empty filters match everything).
func (r *Registry) List(kind NodeKind, purpose SemanticType) []NodeSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]NodeSpec, 0, len(r.specs))
	for _, spec := range r.specs {
		if kind != "" && spec.Kind != kind {
			continue
		}
		if purpose != "" && spec.ReturnType != purpose {
			continue
		}
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CreateNode builds a node by name: merges the spec's default params with
// ad-hoc overrides (ad-hoc wins), type-checks children against the spec's
// declared argument types for operator nodes, then delegates construction
// to the spec's factory.
func (r *Registry) CreateNode(name string, adHocParams map[string]interface{}, children []Node) (Node, error) {
	spec, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("rules: unknown node %q", name)
	}

	merged := make(map[string]interface{}, len(spec.DefaultParams)+len(adHocParams))
	for k, v := range spec.DefaultParams {
		merged[k] = v
	}
	for k, v := range adHocParams {
		merged[k] = v
	}

	if spec.Kind == KindOperator {
		if len(children) != len(spec.ArgsType) {
			return nil, fmt.Errorf("rules: node %q expects %d children, got %d", spec.Name, len(spec.ArgsType), len(children))
		}
		for i, child := range children {
			want := spec.ArgsType[i]
			got := child.ReturnType()
			if !Compatible(got, want) {
				return nil, fmt.Errorf("rules: node %q argument %d: child %q returns %s, incompatible with %s",
					spec.Name, i, child.NodeName(), got, want)
			}
		}
	} else if len(children) != 0 {
		return nil, fmt.Errorf("rules: node %q is not an operator and takes no children", spec.Name)
	}

	return spec.New(spec.Name, merged, children)
}
