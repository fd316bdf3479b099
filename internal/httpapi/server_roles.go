package httpapi

import (
	"net/http"

	"arfa/internal/store"
)

func (s server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.st.ListRoles(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err, "", "")
		return
	}
	if roles == nil {
		roles = []store.Role{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (s server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.st.ListAgents(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err, "", "")
		return
	}
	if agents == nil {
		agents = []store.Agent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": agents})
}

func (s server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	agentID, ok := urlUUID(r, "agentID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	agent, err := s.st.GetAgentByID(r.Context(), agentID)
	if err != nil {
		s.writeStoreError(w, r, err, "agent not found", "")
		return
	}
	writeJSON(w, http.StatusOK, agent)
}
