package httpapi

import (
	"errors"
	"net/http"
	"time"

	"arfa/internal/resolver"
)

// handleSyncBundle serves the caller's own resolved configuration for one
// agent. When the client presents the sync token from its previous pull and
// nothing changed, the bundle is omitted so the client keeps what it has.
func (s server) handleSyncBundle(w http.ResponseWriter, r *http.Request) {
	agentID, ok := urlUUID(r, "agentID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	ctx := r.Context()
	emp, err := s.st.GetEmployeeByID(ctx, orgIDFromCtx(r), employeeIDFromCtx(r))
	if err != nil {
		s.writeStoreError(w, r, err, "employee not found", "")
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
		logError(ctx, "derive sync token failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if since := r.URL.Query().Get("since_token"); since != "" && since == token {
		writeJSON(w, http.StatusOK, map[string]any{
			"changed":    false,
			"sync_token": token,
		})
		return
	}

	now := time.Now().UTC()
	if err := s.st.SetEmployeeSyncState(ctx, emp.ID, agent.ID, token, now); err != nil {
		logError(ctx, "record sync state failed", err)
	}
	s.audit(r, "sync.pulled", "sync", map[string]any{"agent_id": agent.ID})

	writeJSON(w, http.StatusOK, map[string]any{
		"changed":       true,
		"agent_id":      agent.ID,
		"agent_name":    agent.Name,
		"config":        resolved.Config,
		"is_enabled":    resolved.IsEnabled,
		"system_prompt": resolved.SystemPrompt,
		"sync_token":    token,
		"synced_at":     now,
	})
}
