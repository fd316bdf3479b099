package httpapi

import (
	"net/http"
	"strings"

	"arfa/internal/store"
	"arfa/internal/validate"
)

type teamRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if !readJSONLimited(w, r, &req, 16*1024) {
		return
	}

	fe := validate.FieldErrors{}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		fe.Add("name", "team name is required")
	}
	if !fe.Empty() {
		writeFieldErrors(w, fe)
		return
	}

	name := strings.TrimSpace(*req.Name)
	team, err := s.st.CreateTeam(r.Context(), orgIDFromCtx(r), name, req.Description)
	if err != nil {
		s.writeStoreError(w, r, err, "team not found", "a team with that name already exists")
		return
	}

	s.audit(r, "team.created", "teams", map[string]any{"team_id": team.ID, "name": team.Name})
	writeJSON(w, http.StatusCreated, team)
}

func (s server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.st.ListTeams(r.Context(), orgIDFromCtx(r))
	if err != nil {
		s.writeStoreError(w, r, err, "", "")
		return
	}
	if teams == nil {
		teams = []store.Team{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

func (s server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	teamID, ok := urlUUID(r, "teamID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid team id")
		return
	}
	team, err := s.st.GetTeam(r.Context(), orgIDFromCtx(r), teamID)
	if err != nil {
		s.writeStoreError(w, r, err, "team not found", "")
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (s server) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	teamID, ok := urlUUID(r, "teamID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid team id")
		return
	}
	var req teamRequest
	if !readJSONLimited(w, r, &req, 16*1024) {
		return
	}
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			fe := validate.FieldErrors{}
			fe.Add("name", "team name is required")
			writeFieldErrors(w, fe)
			return
		}
		req.Name = &trimmed
	}

	team, err := s.st.UpdateTeam(r.Context(), orgIDFromCtx(r), teamID, req.Name, req.Description)
	if err != nil {
		s.writeStoreError(w, r, err, "team not found", "a team with that name already exists")
		return
	}

	s.audit(r, "team.updated", "teams", map[string]any{"team_id": team.ID})
	writeJSON(w, http.StatusOK, team)
}

func (s server) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	teamID, ok := urlUUID(r, "teamID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid team id")
		return
	}
	if err := s.st.DeleteTeam(r.Context(), orgIDFromCtx(r), teamID); err != nil {
		s.writeStoreError(w, r, err, "team not found", "")
		return
	}

	s.audit(r, "team.deleted", "teams", map[string]any{"team_id": teamID})
	writeJSON(w, http.StatusOK, map[string]string{"message": "team deleted"})
}
