package rulestore_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/rules"
	"github.com/aristath/sentinel/internal/rulestore"
)

func newTestRegistry(t *testing.T) *rules.Registry {
	t.Helper()
	r := rules.NewRegistry(zerolog.Nop())
	rules.RegisterCoreOperators(r)
	require.NoError(t, r.Register(rules.ConstantSpec("CONST_0_5", rules.DECISION_SIGNAL, "0.5", 0.5)))
	return r
}

func buildRule(t *testing.T, r *rules.Registry, ruleID string) *rules.Rule {
	t.Helper()
	root, err := r.CreateNode("CONST_0_5", nil, nil)
	require.NoError(t, err)
	return &rules.Rule{
		RuleID: ruleID, Name: "half-weight", Purpose: rules.DECISION_SIGNAL,
		Status: rules.StatusReady, Root: root,
	}
}

// Invariant: saving a rule with no RuleID assigns one, and the rule round
// trips through List unchanged in identity and evaluated value.
func TestStoreSaveAssignsIDAndRoundTrips(t *testing.T) {
	registry := newTestRegistry(t)
	store, err := rulestore.Open(":memory:", registry, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	rule := buildRule(t, registry, "")
	require.NoError(t, store.Save(context.Background(), rule))
	assert.NotEmpty(t, rule.RuleID)

	loaded, err := store.List(context.Background(), rules.DECISION_SIGNAL)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, rule.RuleID, loaded[0].RuleID)
	assert.Equal(t, 0.5, loaded[0].Execute(nil))
}

func TestStoreListFiltersByPurposeAndDeleteRemoves(t *testing.T) {
	registry := newTestRegistry(t)
	require.NoError(t, registry.Register(rules.ConstantSpec("CONST_RISK", rules.RISK_LEVEL, "0.2", 0.2)))
	store, err := rulestore.Open(":memory:", registry, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	decisionRule := buildRule(t, registry, "")
	require.NoError(t, store.Save(context.Background(), decisionRule))

	riskRoot, err := registry.CreateNode("CONST_RISK", nil, nil)
	require.NoError(t, err)
	riskRule := &rules.Rule{Name: "risk-floor", Purpose: rules.RISK_LEVEL, Status: rules.StatusReady, Root: riskRoot}
	require.NoError(t, store.Save(context.Background(), riskRule))

	decisionOnly := store.RulesFor(rules.DECISION_SIGNAL)
	require.Len(t, decisionOnly, 1)
	assert.Equal(t, decisionRule.RuleID, decisionOnly[0].RuleID)

	require.NoError(t, store.Delete(context.Background(), decisionRule.RuleID))
	afterDelete := store.RulesFor(rules.DECISION_SIGNAL)
	assert.Empty(t, afterDelete)
}
