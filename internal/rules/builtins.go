package rules

import "math"

// ConstantSpec registers a CONSTANT node that always returns value,
// optionally range-normalized.
func ConstantSpec(name string, returnType SemanticType, description string, value float64) NodeSpec {
	return NodeSpec{
		Name:        name,
		Description: description,
		Kind:        KindConstant,
		ReturnType:  returnType,
		DefaultParams: map[string]interface{}{
			"value": value,
		},
		New: func(name string, params map[string]interface{}, _ []Node) (Node, error) {
			v, _ := params["value"].(float64)
			return &ConstantNode{Name: name, Type: returnType, Value: v}, nil
		},
	}
}

// NormalizedConstantSpec registers a CONSTANT node whose value is
// linearly range-normalized from sourceRange to targetRange at execution.
func NormalizedConstantSpec(name string, returnType SemanticType, description string, value float64, sourceRange, targetRange [2]float64) NodeSpec {
	return NodeSpec{
		Name:        name,
		Description: description,
		Kind:        KindConstant,
		ReturnType:  returnType,
		DefaultParams: map[string]interface{}{
			"value": value,
		},
		New: func(name string, params map[string]interface{}, _ []Node) (Node, error) {
			v, _ := params["value"].(float64)
			return &ConstantNode{
				Name: name, Type: returnType, Value: v,
				Normalize: true, SourceRange: sourceRange, TargetRange: targetRange,
			}, nil
		},
	}
}

// NumericalVarSpec registers a VARIABLE node resolving path against the
// report and normalizing it from sourceRange to targetRange, with
// defaultVal used whenever the path does not resolve to a number.
func NumericalVarSpec(name string, returnType SemanticType, description, path string, defaultVal float64, sourceRange, targetRange [2]float64) (NodeSpec, error) {
	segments, err := ParsePath(path)
	if err != nil {
		return NodeSpec{}, err
	}
	return NodeSpec{
		Name:        name,
		Description: description,
		Kind:        KindVariable,
		ReturnType:  returnType,
		New: func(name string, _ map[string]interface{}, _ []Node) (Node, error) {
			return &NumericalVarNode{
				Name: name, Type: returnType, Path: path, segments: segments,
				Default: defaultVal, SourceRange: sourceRange, TargetRange: targetRange,
			}, nil
		},
	}, nil
}

// CategoricalVarSpec registers a VARIABLE node resolving path against the
// report and mapping the resulting string through mapping, with
// defaultVal used for a missing path or an unmapped string.
func CategoricalVarSpec(name string, returnType SemanticType, description, path string, defaultVal float64, mapping map[string]float64) (NodeSpec, error) {
	segments, err := ParsePath(path)
	if err != nil {
		return NodeSpec{}, err
	}
	return NodeSpec{
		Name:        name,
		Description: description,
		Kind:        KindVariable,
		ReturnType:  returnType,
		New: func(name string, _ map[string]interface{}, _ []Node) (Node, error) {
			return &CategoricalVarNode{
				Name: name, Type: returnType, Path: path, segments: segments,
				Default: defaultVal, Mapping: mapping,
			}, nil
		},
	}, nil
}

// FunctionalOperatorSpec registers an OPERATOR node that evaluates every
// child and applies fn to their float values.
func FunctionalOperatorSpec(name string, returnType SemanticType, argsType []SemanticType, description string, fn func(args []float64) float64) NodeSpec {
	return NodeSpec{
		Name:        name,
		Description: description,
		Kind:        KindOperator,
		ReturnType:  returnType,
		ArgsType:    argsType,
		New: func(name string, _ map[string]interface{}, children []Node) (Node, error) {
			return &FunctionalOperatorNode{Name: name, Type: returnType, Children: children, Fn: fn}, nil
		},
	}
}

// BranchOperatorSpec registers the 3-ary "if cond > 0 then b else c"
// conditional node. returnType also bounds the type of the two branches;
// the condition itself accepts a child of any type.
func BranchOperatorSpec(name string, returnType SemanticType, description string) NodeSpec {
	return NodeSpec{
		Name:        name,
		Description: description,
		Kind:        KindOperator,
		ReturnType:  returnType,
		ArgsType:    []SemanticType{ANY, returnType, returnType},
		New: func(name string, _ map[string]interface{}, children []Node) (Node, error) {
			return &BranchOperatorNode{Name: name, Type: returnType, Cond: children[0], Then: children[1], Else: children[2]}, nil
		},
	}
}

// RegisterCoreOperators registers the general-purpose arithmetic and
// logical operators used across all three rule purposes. Division guards
// against a zero denominator by returning 0 rather than propagating Inf
// or NaN, since the orchestrator's non-finite sweep runs only on
// serialized reports, not on intermediate rule evaluation.
func RegisterCoreOperators(r *Registry) {
	bin := func(name string, t SemanticType, desc string, fn func(a, b float64) float64) {
		r.MustRegister(FunctionalOperatorSpec(name, t, []SemanticType{ANY_NUMERIC, ANY_NUMERIC}, desc,
			func(args []float64) float64 { return fn(args[0], args[1]) }))
	}
	un := func(name string, t SemanticType, desc string, fn func(a float64) float64) {
		r.MustRegister(FunctionalOperatorSpec(name, t, []SemanticType{ANY_NUMERIC}, desc,
			func(args []float64) float64 { return fn(args[0]) }))
	}

	bin("ADD", NUMERICAL, "a + b", func(a, b float64) float64 { return a + b })
	bin("SUB", NUMERICAL, "a - b", func(a, b float64) float64 { return a - b })
	bin("MUL", NUMERICAL, "a * b", func(a, b float64) float64 { return a * b })
	bin("DIV", NUMERICAL, "a / b, 0 if b == 0", func(a, b float64) float64 {
		if b == 0 {
			return 0
		}
		return a / b
	})
	bin("MIN2", NUMERICAL, "min(a, b)", math.Min)
	bin("MAX2", NUMERICAL, "max(a, b)", math.Max)
	un("NEG", NUMERICAL, "-a", func(a float64) float64 { return -a })
	un("ABS", NUMERICAL, "|a|", math.Abs)

	bin("GT", BOOLEAN, "1 if a > b else -1", func(a, b float64) float64 {
		if a > b {
			return 1
		}
		return -1
	})
	bin("LT", BOOLEAN, "1 if a < b else -1", func(a, b float64) float64 {
		if a < b {
			return 1
		}
		return -1
	})
	bin("AND", BOOLEAN, "1 if both a > 0 and b > 0 else -1", func(a, b float64) float64 {
		if a > 0 && b > 0 {
			return 1
		}
		return -1
	})
	bin("OR", BOOLEAN, "1 if either a > 0 or b > 0 else -1", func(a, b float64) float64 {
		if a > 0 || b > 0 {
			return 1
		}
		return -1
	})
	un("NOT", BOOLEAN, "-a", func(a float64) float64 { return -a })

	r.MustRegister(BranchOperatorSpec("IF_POS", DECISION_SIGNAL, "if a > 0 then b else c (decision-typed)"))
	r.MustRegister(BranchOperatorSpec("IF_POS_NUM", NUMERICAL, "if a > 0 then b else c (numerical-typed)"))
}
