package httpapi

import (
	"net/http"

	"arfa/internal/store"
)

// teamFromOrg loads the team and enforces that it belongs to the caller's
// org before any config mutation.
func (s server) teamFromOrg(w http.ResponseWriter, r *http.Request) (store.Team, bool) {
	teamID, ok := urlUUID(r, "teamID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid team id")
		return store.Team{}, false
	}
	team, err := s.st.GetTeam(r.Context(), orgIDFromCtx(r), teamID)
	if err != nil {
		s.writeStoreError(w, r, err, "team not found", "")
		return store.Team{}, false
	}
	return team, true
}

func (s server) handleUpsertTeamConfig(w http.ResponseWriter, r *http.Request) {
	team, ok := s.teamFromOrg(w, r)
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
	// A team override only makes sense under an org-level config.
	if _, err := s.st.GetOrgAgentConfig(ctx, orgIDFromCtx(r), agentID); err != nil {
		s.writeStoreError(w, r, err, "agent not configured for this organization", "")
		return
	}

	enabled := true
	if req.IsEnabled != nil {
		enabled = *req.IsEnabled
	}
	out, err := s.st.UpsertTeamAgentConfig(ctx, team.ID, agentID, cfg, enabled)
	if err != nil {
		s.writeStoreError(w, r, err, "agent not found", "conflict")
		return
	}

	s.audit(r, "config.team_updated", "configs", map[string]any{"team_id": team.ID, "agent_id": agentID})
	writeJSON(w, http.StatusOK, out)
}

func (s server) handleListTeamConfigs(w http.ResponseWriter, r *http.Request) {
	team, ok := s.teamFromOrg(w, r)
	if !ok {
		return
	}
	configs, err := s.st.ListTeamAgentConfigs(r.Context(), team.ID)
	if err != nil {
		s.writeStoreError(w, r, err, "", "")
		return
	}
	if configs == nil {
		configs = []store.TeamAgentConfig{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"configs": configs})
}

func (s server) handleDeleteTeamConfig(w http.ResponseWriter, r *http.Request) {
	team, ok := s.teamFromOrg(w, r)
	if !ok {
		return
	}
	agentID, ok := urlUUID(r, "agentID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	if err := s.st.DeleteTeamAgentConfig(r.Context(), team.ID, agentID); err != nil {
		s.writeStoreError(w, r, err, "no team override for this agent", "")
		return
	}

	s.audit(r, "config.team_deleted", "configs", map[string]any{"team_id": team.ID, "agent_id": agentID})
	writeJSON(w, http.StatusOK, map[string]string{"message": "override removed"})
}
