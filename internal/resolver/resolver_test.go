package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Provenance(t *testing.T) {
	org := Layer{Config: map[string]any{"a": 1, "b": 2}, IsEnabled: true}
	team := &Layer{Config: map[string]any{"b": 3}, IsEnabled: true}
	employee := &Layer{Config: map[string]any{"a": 4}, IsEnabled: true}

	r := Resolve(nil, org, team, employee)

	assert.Equal(t, 4, r.Config["a"])
	assert.Equal(t, 3, r.Config["b"])
	assert.Equal(t, SourceEmployee, r.Provenance["a"])
	assert.Equal(t, SourceTeam, r.Provenance["b"])
}

func TestResolve_OrgOnlyKeysAttributedToOrg(t *testing.T) {
	org := Layer{Config: map[string]any{"model": "gpt-4o", "temperature": 0.2}, IsEnabled: true}

	r := Resolve(nil, org, nil, nil)

	assert.Equal(t, SourceOrg, r.Provenance["model"])
	assert.Equal(t, SourceOrg, r.Provenance["temperature"])
}

func TestResolve_DefaultOnlyKeysAttributedToDefault(t *testing.T) {
	def := map[string]any{"max_tokens": 8192.0}
	org := Layer{Config: map[string]any{"model": "claude-sonnet-4"}, IsEnabled: true}

	r := Resolve(def, org, nil, nil)

	assert.Equal(t, 8192.0, r.Config["max_tokens"])
	assert.Equal(t, SourceDefault, r.Provenance["max_tokens"])
	assert.Equal(t, SourceOrg, r.Provenance["model"])
}

func TestResolve_EmptyOverrideInheritsParent(t *testing.T) {
	org := Layer{Config: map[string]any{"a": 1, "b": 2}, IsEnabled: true}
	team := &Layer{Config: map[string]any{}, IsEnabled: true}
	employee := &Layer{Config: map[string]any{}, IsEnabled: true}

	r := Resolve(nil, org, team, employee)

	assert.Equal(t, map[string]any{"a": 1, "b": 2}, r.Config)
	assert.Equal(t, SourceOrg, r.Provenance["a"])
	assert.Equal(t, SourceOrg, r.Provenance["b"])
}

func TestResolve_ExplicitNullMasksParent(t *testing.T) {
	org := Layer{Config: map[string]any{"proxy": "http://proxy:8080"}, IsEnabled: true}
	employee := &Layer{Config: map[string]any{"proxy": nil}, IsEnabled: true}

	r := Resolve(nil, org, nil, employee)

	v, ok := r.Config["proxy"]
	require.True(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, SourceEmployee, r.Provenance["proxy"])
}

func TestResolve_NestedObjectsMergeRecursively(t *testing.T) {
	org := Layer{Config: map[string]any{
		"limits": map[string]any{"rpm": 60, "tpm": 100000},
	}, IsEnabled: true}
	team := &Layer{Config: map[string]any{
		"limits": map[string]any{"rpm": 30},
	}, IsEnabled: true}

	r := Resolve(nil, org, team, nil)

	limits := r.Config["limits"].(map[string]any)
	assert.Equal(t, 30, limits["rpm"])
	assert.Equal(t, 100000, limits["tpm"])
	// Top-level attribution: the team wrote "limits" last.
	assert.Equal(t, SourceTeam, r.Provenance["limits"])
}

func TestResolve_ScalarReplacesNestedObject(t *testing.T) {
	org := Layer{Config: map[string]any{"tools": map[string]any{"bash": true}}, IsEnabled: true}
	employee := &Layer{Config: map[string]any{"tools": "none"}, IsEnabled: true}

	r := Resolve(nil, org, nil, employee)

	assert.Equal(t, "none", r.Config["tools"])
}

func TestResolve_EnabledIsANDAcrossLayers(t *testing.T) {
	org := Layer{Config: map[string]any{}, IsEnabled: true}

	r := Resolve(nil, org, &Layer{IsEnabled: false}, &Layer{IsEnabled: true})
	assert.False(t, r.IsEnabled)

	r = Resolve(nil, org, &Layer{IsEnabled: true}, &Layer{IsEnabled: true})
	assert.True(t, r.IsEnabled)

	r = Resolve(nil, Layer{IsEnabled: false}, nil, nil)
	assert.False(t, r.IsEnabled)
}

func TestResolve_DoesNotMutateInputs(t *testing.T) {
	def := map[string]any{"a": 1}
	org := Layer{Config: map[string]any{"b": 2}, IsEnabled: true}

	_ = Resolve(def, org, nil, nil)

	assert.Equal(t, map[string]any{"a": 1}, def)
	assert.Equal(t, map[string]any{"b": 2}, org.Config)
}

func TestJoinPrompts(t *testing.T) {
	assert.Equal(t, "org\n\nteam\n\nme", JoinPrompts("org", "team", "me"))
	assert.Equal(t, "org\n\nme", JoinPrompts("org", "", "me"))
	assert.Equal(t, "", JoinPrompts("", "  ", ""))
}

func TestSyncToken_StableUnderKeyOrder(t *testing.T) {
	a, err := SyncToken(map[string]any{"model": "gpt-4o", "temperature": 0.2, "nested": map[string]any{"x": 1, "y": 2}})
	require.NoError(t, err)
	b, err := SyncToken(map[string]any{"nested": map[string]any{"y": 2, "x": 1}, "temperature": 0.2, "model": "gpt-4o"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestSyncToken_ChangesWithContent(t *testing.T) {
	a, err := SyncToken(map[string]any{"model": "gpt-4o"})
	require.NoError(t, err)
	b, err := SyncToken(map[string]any{"model": "gpt-4o-mini"})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
