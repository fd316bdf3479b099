package httpapi

import (
	"encoding/json"
	"net/http"

	"arfa/internal/store"
)

type agentConfigRequest struct {
	Config         json.RawMessage `json:"config"`
	IsEnabled      *bool           `json:"is_enabled"`
	OverrideReason *string         `json:"override_reason"`
}

// decodeConfigObject enforces that the config payload is a JSON object.
// Returns the normalized raw bytes to store.
func decodeConfigObject(raw json.RawMessage) (json.RawMessage, bool) {
	if len(raw) == 0 {
		return json.RawMessage(`{}`), true
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	return raw, true
}

func (s server) handleUpsertOrgConfig(w http.ResponseWriter, r *http.Request) {
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
	if _, err := s.st.GetAgentByID(ctx, agentID); err != nil {
		s.writeStoreError(w, r, err, "agent not found", "")
		return
	}

	enabled := true
	if req.IsEnabled != nil {
		enabled = *req.IsEnabled
	}
	out, err := s.st.UpsertOrgAgentConfig(ctx, orgIDFromCtx(r), agentID, cfg, enabled)
	if err != nil {
		s.writeStoreError(w, r, err, "agent not found", "conflict")
		return
	}

	s.audit(r, "config.org_updated", "configs", map[string]any{"agent_id": agentID})
	writeJSON(w, http.StatusOK, out)
}

func (s server) handleGetOrgConfig(w http.ResponseWriter, r *http.Request) {
	agentID, ok := urlUUID(r, "agentID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	cfg, err := s.st.GetOrgAgentConfig(r.Context(), orgIDFromCtx(r), agentID)
	if err != nil {
		s.writeStoreError(w, r, err, "agent not configured for this organization", "")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s server) handleListOrgConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.st.ListOrgAgentConfigs(r.Context(), orgIDFromCtx(r))
	if err != nil {
		s.writeStoreError(w, r, err, "", "")
		return
	}
	if configs == nil {
		configs = []store.OrgAgentConfig{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"configs": configs})
}

func (s server) handleDeleteOrgConfig(w http.ResponseWriter, r *http.Request) {
	agentID, ok := urlUUID(r, "agentID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	if err := s.st.DeleteOrgAgentConfig(r.Context(), orgIDFromCtx(r), agentID); err != nil {
		s.writeStoreError(w, r, err, "agent not configured for this organization", "")
		return
	}

	s.audit(r, "config.org_deleted", "configs", map[string]any{"agent_id": agentID})
	writeJSON(w, http.StatusOK, map[string]string{"message": "configuration removed"})
}
