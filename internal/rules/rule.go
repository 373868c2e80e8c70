package rules

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"time"
)

// Status is a rule's lifecycle state.
type Status string

const (
	StatusReady      Status = "READY"
	StatusEvolving   Status = "EVOLVING"
	StatusDeprecated Status = "DEPRECATED"
)

// Entity is the fully-serializable form of a Rule, matching the canonical
// JSON shape at the API boundary.
type Entity struct {
	RuleID      string          `json:"rule_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Purpose     SemanticType    `json:"purpose"`
	RuleStatus  Status          `json:"rule_status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Root        *SerializedNode `json:"root"`
}

// Rule is a named, status-bearing expression tree that evaluates to a
// float in a well-defined range per purpose.
type Rule struct {
	RuleID      string
	Name        string
	Description string
	Purpose     SemanticType
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Root        Node
}

// Execute returns the rule's raw score: 0.0 if the rule is DEPRECATED
// (neutral), otherwise the root node's evaluation against report.
func (r *Rule) Execute(report interface{}) float64 {
	if r.Status == StatusDeprecated {
		return 0.0
	}
	return r.Root.Execute(report)
}

// ToEntity converts the rule to its serializable form, validating that the
// root's declared return type matches the rule's purpose.
func (r *Rule) ToEntity() (*Entity, error) {
	if !Compatible(r.Root.ReturnType(), r.Purpose) {
		return nil, fmt.Errorf("rules: rule %q root return type %s does not match purpose %s", r.Name, r.Root.ReturnType(), r.Purpose)
	}
	return &Entity{
		RuleID:      r.RuleID,
		Name:        r.Name,
		Description: r.Description,
		Purpose:     r.Purpose,
		RuleStatus:  r.Status,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Root:        SerializeTree(r.Root),
	}, nil
}

// FromEntity reconstructs a Rule from its serializable form, parsing the
// root tree via registry.
func FromEntity(registry *Registry, e *Entity) (*Rule, error) {
	root, err := ParseTree(registry, e.Root)
	if err != nil {
		return nil, err
	}
	if !Compatible(root.ReturnType(), e.Purpose) {
		return nil, fmt.Errorf("rules: entity %q root return type %s does not match purpose %s", e.Name, root.ReturnType(), e.Purpose)
	}
	return &Rule{
		RuleID:      e.RuleID,
		Name:        e.Name,
		Description: e.Description,
		Purpose:     e.Purpose,
		Status:      e.RuleStatus,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
		Root:        root,
	}, nil
}

// Copy returns a rule with an independently-parsed tree, so mutating the
// copy's tree structure (e.g. during evolution) never affects the
// original.
func (r *Rule) Copy(registry *Registry) (*Rule, error) {
	entity, err := r.ToEntity()
	if err != nil {
		return nil, err
	}
	return FromEntity(registry, entity)
}

// Hash returns the SHA-1 hex digest of the rule's canonical serialization,
// used for deterministic auto-naming and change detection.
func (r *Rule) Hash() (string, error) {
	entity, err := r.ToEntity()
	if err != nil {
		return "", err
	}
	// Only the root tree is part of the content hash: identity fields
	// (rule_id, timestamps) must not perturb it.
	payload, err := json.Marshal(entity.Root)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(payload)
	return fmt.Sprintf("%x", sum), nil
}

// AutoIDName returns a deterministic name of the form "{prefix}_{hash}",
// used to name rules produced by automated rule generation.
func (r *Rule) AutoIDName(prefix string) (string, error) {
	hash, err := r.Hash()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_%s", prefix, hash), nil
}
