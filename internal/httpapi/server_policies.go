package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"arfa/internal/store"
	"arfa/internal/validate"
)

type toolPolicyRequest struct {
	ToolName   string          `json:"tool_name"`
	Action     string          `json:"action"`
	TeamID     *uuid.UUID      `json:"team_id"`
	EmployeeID *uuid.UUID      `json:"employee_id"`
	Reason     *string         `json:"reason"`
	Conditions json.RawMessage `json:"conditions"`
}

func validPolicyAction(action string) bool {
	return action == store.PolicyActionDeny || action == store.PolicyActionAudit
}

func (s server) handleCreateToolPolicy(w http.ResponseWriter, r *http.Request) {
	var req toolPolicyRequest
	if !readJSONLimited(w, r, &req, 64*1024) {
		return
	}

	fe := validate.FieldErrors{}
	if strings.TrimSpace(req.ToolName) == "" {
		fe.Add("tool_name", "tool name is required")
	}
	if !validPolicyAction(req.Action) {
		fe.Add("action", "action must be deny or audit")
	}
	if req.TeamID != nil && req.EmployeeID != nil {
		fe.Add("scope", "a policy targets the org, one team or one employee, not several")
	}
	if len(req.Conditions) > 0 {
		var m map[string]any
		if err := json.Unmarshal(req.Conditions, &m); err != nil {
			fe.Add("conditions", "conditions must be a JSON object")
		}
	}
	if !fe.Empty() {
		writeFieldErrors(w, fe)
		return
	}

	ctx := r.Context()
	orgID := orgIDFromCtx(r)

	if req.TeamID != nil {
		if _, err := s.st.GetTeam(ctx, orgID, *req.TeamID); err != nil {
			s.writeStoreError(w, r, err, "team not found", "")
			return
		}
	}
	if req.EmployeeID != nil {
		if _, err := s.st.GetEmployeeByID(ctx, orgID, *req.EmployeeID); err != nil {
			s.writeStoreError(w, r, err, "employee not found", "")
			return
		}
	}

	actor := employeeIDFromCtx(r)
	policy, err := s.st.CreateToolPolicy(ctx, store.CreateToolPolicyParams{
		OrgID:      orgID,
		TeamID:     req.TeamID,
		EmployeeID: req.EmployeeID,
		ToolName:   strings.TrimSpace(req.ToolName),
		Action:     req.Action,
		Reason:     req.Reason,
		Conditions: req.Conditions,
		CreatedBy:  &actor,
	})
	if err != nil {
		s.writeStoreError(w, r, err, "organization not found", "conflict")
		return
	}

	s.audit(r, "policy.created", "policies", map[string]any{
		"policy_id": policy.ID,
		"tool_name": policy.ToolName,
		"action":    policy.Action,
		"scope":     policy.Scope(),
	})
	writeJSON(w, http.StatusCreated, policyDTO(policy))
}

// policyDTO augments the stored row with its derived scope.
func policyDTO(p store.ToolPolicy) map[string]any {
	return map[string]any{
		"id":          p.ID,
		"org_id":      p.OrgID,
		"team_id":     p.TeamID,
		"employee_id": p.EmployeeID,
		"tool_name":   p.ToolName,
		"action":      p.Action,
		"scope":       p.Scope(),
		"reason":      p.Reason,
		"conditions":  p.Conditions,
		"created_by":  p.CreatedBy,
		"created_at":  p.CreatedAt,
		"updated_at":  p.UpdatedAt,
	}
}

func (s server) handleListToolPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := s.st.ListToolPolicies(r.Context(), orgIDFromCtx(r))
	if err != nil {
		s.writeStoreError(w, r, err, "", "")
		return
	}
	out := make([]map[string]any, 0, len(policies))
	for _, p := range policies {
		out = append(out, policyDTO(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"policies": out})
}

// handleMyToolPolicies returns every policy that binds the calling employee:
// org-wide rules, their team's rules and rules targeting them directly.
// External clients enforce these, so the payload carries a version stamp.
func (s server) handleMyToolPolicies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	emp, err := s.st.GetEmployeeByID(ctx, orgIDFromCtx(r), employeeIDFromCtx(r))
	if err != nil {
		s.writeStoreError(w, r, err, "employee not found", "")
		return
	}
	policies, err := s.st.ListToolPolicies(ctx, emp.OrgID)
	if err != nil {
		s.writeStoreError(w, r, err, "", "")
		return
	}

	out := make([]map[string]any, 0, len(policies))
	for _, p := range policies {
		switch {
		case p.EmployeeID != nil:
			if *p.EmployeeID != emp.ID {
				continue
			}
		case p.TeamID != nil:
			if emp.TeamID == nil || *p.TeamID != *emp.TeamID {
				continue
			}
		}
		out = append(out, policyDTO(p))
	}

	now := time.Now().UTC()
	writeJSON(w, http.StatusOK, map[string]any{
		"policies":  out,
		"version":   now.Unix(),
		"synced_at": now,
	})
}

func (s server) handleGetToolPolicy(w http.ResponseWriter, r *http.Request) {
	policyID, ok := urlUUID(r, "policyID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid policy id")
		return
	}
	policy, err := s.st.GetToolPolicy(r.Context(), orgIDFromCtx(r), policyID)
	if err != nil {
		s.writeStoreError(w, r, err, "policy not found", "")
		return
	}
	writeJSON(w, http.StatusOK, policyDTO(policy))
}

type updateToolPolicyRequest struct {
	Action     *string         `json:"action"`
	Reason     *string         `json:"reason"`
	Conditions json.RawMessage `json:"conditions"`
}

func (s server) handleUpdateToolPolicy(w http.ResponseWriter, r *http.Request) {
	policyID, ok := urlUUID(r, "policyID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid policy id")
		return
	}
	var req updateToolPolicyRequest
	if !readJSONLimited(w, r, &req, 64*1024) {
		return
	}

	fe := validate.FieldErrors{}
	if req.Action != nil && !validPolicyAction(*req.Action) {
		fe.Add("action", "action must be deny or audit")
	}
	if len(req.Conditions) > 0 {
		var m map[string]any
		if err := json.Unmarshal(req.Conditions, &m); err != nil {
			fe.Add("conditions", "conditions must be a JSON object")
		}
	}
	if !fe.Empty() {
		writeFieldErrors(w, fe)
		return
	}

	policy, err := s.st.UpdateToolPolicy(r.Context(), orgIDFromCtx(r), policyID, store.UpdateToolPolicyParams{
		Action:     req.Action,
		Reason:     req.Reason,
		Conditions: req.Conditions,
	})
	if err != nil {
		s.writeStoreError(w, r, err, "policy not found", "conflict")
		return
	}

	s.audit(r, "policy.updated", "policies", map[string]any{"policy_id": policy.ID})
	writeJSON(w, http.StatusOK, policyDTO(policy))
}

func (s server) handleDeleteToolPolicy(w http.ResponseWriter, r *http.Request) {
	policyID, ok := urlUUID(r, "policyID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid policy id")
		return
	}
	if err := s.st.DeleteToolPolicy(r.Context(), orgIDFromCtx(r), policyID); err != nil {
		s.writeStoreError(w, r, err, "policy not found", "")
		return
	}

	s.audit(r, "policy.deleted", "policies", map[string]any{"policy_id": policyID})
	writeJSON(w, http.StatusOK, map[string]string{"message": "policy deleted"})
}
