package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"arfa/internal/resolver"
	"arfa/internal/store"
)

// employeeFromOrg loads the employee and enforces org membership.
func (s server) employeeFromOrg(w http.ResponseWriter, r *http.Request) (store.Employee, bool) {
	empID, ok := urlUUID(r, "employeeID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid employee id")
		return store.Employee{}, false
	}
	emp, err := s.st.GetEmployeeByID(r.Context(), orgIDFromCtx(r), empID)
	if err != nil {
		s.writeStoreError(w, r, err, "employee not found", "")
		return store.Employee{}, false
	}
	return emp, true
}

func (s server) handleUpsertEmployeeConfig(w http.ResponseWriter, r *http.Request) {
	emp, ok := s.employeeFromOrg(w, r)
	if !ok {
		return
	}
	agentID, ok := urlUUID(r, "agentID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	var req agentConfigRequest
	if !readJSONLimited(w, r, &req, 256*1024) {
		return
	}
	cfg, ok := decodeConfigObject(req.Config)
	if !ok {
		writeError(w, http.StatusBadRequest, "config must be a JSON object")
		return
	}

	ctx := r.Context()
	if _, err := s.st.GetOrgAgentConfig(ctx, emp.OrgID, agentID); err != nil {
		s.writeStoreError(w, r, err, "agent not configured for this organization", "")
		return
	}

	enabled := true
	if req.IsEnabled != nil {
		enabled = *req.IsEnabled
	}
	out, err := s.st.UpsertEmployeeAgentConfig(ctx, emp.ID, agentID, cfg, req.OverrideReason, enabled)
	if err != nil {
		s.writeStoreError(w, r, err, "agent not found", "conflict")
		return
	}

	s.audit(r, "config.employee_updated", "configs", map[string]any{"employee_id": emp.ID, "agent_id": agentID})
	writeJSON(w, http.StatusOK, out)
}

func (s server) handleListEmployeeConfigs(w http.ResponseWriter, r *http.Request) {
	emp, ok := s.employeeFromOrg(w, r)
	if !ok {
		return
	}
	configs, err := s.st.ListEmployeeAgentConfigs(r.Context(), emp.ID)
	if err != nil {
		s.writeStoreError(w, r, err, "", "")
		return
	}
	if configs == nil {
		configs = []store.EmployeeAgentConfig{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"configs": configs})
}

func (s server) handleDeleteEmployeeConfig(w http.ResponseWriter, r *http.Request) {
	emp, ok := s.employeeFromOrg(w, r)
	if !ok {
		return
	}
	agentID, ok := urlUUID(r, "agentID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	if err := s.st.DeleteEmployeeAgentConfig(r.Context(), emp.ID, agentID); err != nil {
		s.writeStoreError(w, r, err, "no employee override for this agent", "")
		return
	}

	s.audit(r, "config.employee_deleted", "configs", map[string]any{"employee_id": emp.ID, "agent_id": agentID})
	writeJSON(w, http.StatusOK, map[string]string{"message": "override removed"})
}

var errAgentNotConfigured = errors.New("agent not configured at org level")

// resolveForEmployee assembles the layered configuration for one employee
// and agent. The org row is required; team and employee overrides are
// optional layers.
func (s server) resolveForEmployee(r *http.Request, emp store.Employee, agentID uuid.UUID) (resolver.Resolved, store.Agent, error) {
	ctx := r.Context()

	agent, err := s.st.GetAgentByID(ctx, agentID)
	if err != nil {
		return resolver.Resolved{}, store.Agent{}, err
	}

	orgCfg, err := s.st.GetOrgAgentConfig(ctx, emp.OrgID, agentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return resolver.Resolved{}, agent, errAgentNotConfigured
		}
		return resolver.Resolved{}, agent, err
	}

	defaultCfg, err := decodeLayerConfig(agent.DefaultConfig)
	if err != nil {
		return resolver.Resolved{}, agent, fmt.Errorf("default config: %w", err)
	}
	orgMap, err := decodeLayerConfig(orgCfg.Config)
	if err != nil {
		return resolver.Resolved{}, agent, fmt.Errorf("org config: %w", err)
	}
	orgLayer := resolver.Layer{Config: orgMap, IsEnabled: orgCfg.IsEnabled}

	var teamLayer *resolver.Layer
	if emp.TeamID != nil {
		teamCfg, err := s.st.GetTeamAgentConfig(ctx, *emp.TeamID, agentID)
		if err == nil {
			m, err := decodeLayerConfig(teamCfg.ConfigOverride)
			if err != nil {
				return resolver.Resolved{}, agent, fmt.Errorf("team config: %w", err)
			}
			teamLayer = &resolver.Layer{Config: m, IsEnabled: teamCfg.IsEnabled}
		} else if !errors.Is(err, store.ErrNotFound) {
			return resolver.Resolved{}, agent, err
		}
	}

	var empLayer *resolver.Layer
	empCfg, err := s.st.GetEmployeeAgentConfig(ctx, emp.ID, agentID)
	if err == nil {
		m, err := decodeLayerConfig(empCfg.ConfigOverride)
		if err != nil {
			return resolver.Resolved{}, agent, fmt.Errorf("employee config: %w", err)
		}
		empLayer = &resolver.Layer{Config: m, IsEnabled: empCfg.IsEnabled}
	} else if !errors.Is(err, store.ErrNotFound) {
		return resolver.Resolved{}, agent, err
	}

	resolved := resolver.Resolve(defaultCfg, orgLayer, teamLayer, empLayer)
	resolved.SystemPrompt = resolver.JoinPrompts(
		promptOf(orgLayer.Config),
		promptOfLayer(teamLayer),
		promptOfLayer(empLayer),
	)
	return resolved, agent, nil
}

func decodeLayerConfig(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

func promptOf(cfg map[string]any) string {
	v, _ := cfg["system_prompt"].(string)
	return v
}

func promptOfLayer(l *resolver.Layer) string {
	if l == nil {
		return ""
	}
	return promptOf(l.Config)
}

// handleResolveEmployeeConfig returns the fully merged configuration with
// per-key provenance, the effective enabled flag and the sync token.
func (s server) handleResolveEmployeeConfig(w http.ResponseWriter, r *http.Request) {
	emp, ok := s.employeeFromOrg(w, r)
	if !ok {
		return
	}
	agentID, ok := urlUUID(r, "agentID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	resolved, agent, err := s.resolveForEmployee(r, emp, agentID)
	if err != nil {
		if errors.Is(err, errAgentNotConfigured) {
			writeError(w, http.StatusNotFound, "agent not configured for this organization")
			return
		}
		s.writeStoreError(w, r, err, "agent not found", "")
		return
	}

	token, err := resolver.SyncToken(resolved.Config)
	if err != nil {
		logError(r.Context(), "derive sync token failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id":      agent.ID,
		"employee_id":   emp.ID,
		"config":        resolved.Config,
		"provenance":    resolved.Provenance,
		"is_enabled":    resolved.IsEnabled,
		"system_prompt": resolved.SystemPrompt,
		"sync_token":    token,
	})
}

// handleResolveEmployeeConfigs resolves every agent the organization has
// configured for one employee in a single call.
func (s server) handleResolveEmployeeConfigs(w http.ResponseWriter, r *http.Request) {
	emp, ok := s.employeeFromOrg(w, r)
	if !ok {
		return
	}
	orgCfgs, err := s.st.ListOrgAgentConfigs(r.Context(), emp.OrgID)
	if err != nil {
		s.writeStoreError(w, r, err, "", "")
		return
	}

	agents := make([]map[string]any, 0, len(orgCfgs))
	for _, oc := range orgCfgs {
		resolved, agent, err := s.resolveForEmployee(r, emp, oc.AgentID)
		if err != nil {
			s.writeStoreError(w, r, err, "agent not found", "")
			return
		}
		token, err := resolver.SyncToken(resolved.Config)
		if err != nil {
			logError(r.Context(), "derive sync token failed", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		agents = append(agents, map[string]any{
			"agent_id":      agent.ID,
			"agent_name":    agent.Name,
			"config":        resolved.Config,
			"provenance":    resolved.Provenance,
			"is_enabled":    resolved.IsEnabled,
			"system_prompt": resolved.SystemPrompt,
			"sync_token":    token,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"employee_id": emp.ID,
		"agents":      agents,
	})
}
