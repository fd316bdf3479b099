// Package resolver merges the layered agent configuration for one employee:
// catalog default -> organization config -> team override -> employee
// override. Overrides are partial maps; a key that is absent inherits from
// the parent layer, and only a key that is present masks the parent's value.
// An explicit null is a value like any other: it masks the parent with null
// and does not mean "revert to parent".
package resolver

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
)

// Source identifies the layer that last wrote a resolved key.
type Source string

const (
	SourceDefault  Source = "default"
	SourceOrg      Source = "org"
	SourceTeam     Source = "team"
	SourceEmployee Source = "employee"
)

// Layer is one configuration layer's contribution: its (possibly partial)
// config map and its own enabled flag.
type Layer struct {
	Config    map[string]any
	IsEnabled bool
}

// Resolved is the merged configuration for one agent and one employee.
type Resolved struct {
	Config map[string]any
	// Provenance attributes each top-level key of Config to the layer that
	// last overrode it, checked in priority order employee -> team -> org ->
	// default.
	Provenance map[string]Source
	// IsEnabled is the AND of every present layer's flag: disabling an agent
	// at any level disables it for everyone below.
	IsEnabled bool
	// SystemPrompt is the org -> team -> employee prompt concatenation.
	SystemPrompt string
}

// Resolve merges the layers for one agent. org is required (an agent with no
// org-level row is not configured for the tenant at all); team and employee
// are nil when the corresponding override row does not exist, which includes
// the employee-without-a-team case.
func Resolve(defaultConfig map[string]any, org Layer, team, employee *Layer) Resolved {
	merged := deepMerge(defaultConfig, org.Config)
	enabled := org.IsEnabled

	if team != nil {
		merged = deepMerge(merged, team.Config)
		enabled = enabled && team.IsEnabled
	}
	if employee != nil {
		merged = deepMerge(merged, employee.Config)
		enabled = enabled && employee.IsEnabled
	}

	prov := make(map[string]Source, len(merged))
	for k := range merged {
		prov[k] = provenanceOf(k, org, team, employee)
	}

	return Resolved{Config: merged, Provenance: prov, IsEnabled: enabled}
}

func provenanceOf(key string, org Layer, team, employee *Layer) Source {
	if employee != nil {
		if _, ok := employee.Config[key]; ok {
			return SourceEmployee
		}
	}
	if team != nil {
		if _, ok := team.Config[key]; ok {
			return SourceTeam
		}
	}
	if _, ok := org.Config[key]; ok {
		return SourceOrg
	}
	return SourceDefault
}

// deepMerge returns base overlaid with override. Nested objects merge
// recursively; any other value kind replaces the base value. Inputs are not
// mutated.
func deepMerge(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		if baseMap, ok := result[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMerge(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// JoinPrompts concatenates the non-empty prompts in hierarchy order with
// blank lines between them.
func JoinPrompts(prompts ...string) string {
	parts := make([]string, 0, len(prompts))
	for _, p := range prompts {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n")
}

// SyncToken derives a deterministic token for a resolved config: the hex
// sha256 of its RFC 8785 canonical JSON. Two structurally equal configs
// always yield the same token regardless of key order, so an external client
// can compare tokens to decide whether it must re-pull.
func SyncToken(config map[string]any) (string, error) {
	raw, err := json.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	canonical, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize config: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
