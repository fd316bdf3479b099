package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"arfa/internal/store"
)

func (s server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := store.ActivityLogFilter{
		EventCategory: q.Get("category"),
		EventType:     q.Get("event_type"),
		Limit:         clampInt(queryInt(r, "limit", "50"), 1, 200),
		Offset:        clampInt(queryInt(r, "offset", "0"), 0, 1<<30),
	}
	if v := q.Get("employee_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid employee_id")
			return
		}
		f.EmployeeID = &id
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		f.Since = &t
	}
	if v := q.Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "until must be RFC 3339")
			return
		}
		f.Until = &t
	}

	logs, total, err := s.st.ListActivityLogs(r.Context(), orgIDFromCtx(r), f)
	if err != nil {
		s.writeStoreError(w, r, err, "", "")
		return
	}

	out := make([]map[string]any, 0, len(logs))
	for _, l := range logs {
		out = append(out, activityDTO(l))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"logs":   out,
		"total":  total,
		"limit":  f.Limit,
		"offset": f.Offset,
	})
}

func activityDTO(l store.ActivityLog) map[string]any {
	return map[string]any{
		"id":             l.ID,
		"employee_id":    l.EmployeeID,
		"event_type":     l.EventType,
		"event_category": l.EventCategory,
		"payload":        l.Payload,
		"message":        activityMessage(l),
		"created_at":     l.CreatedAt,
	}
}

// activityMessage renders a short human line for the feed. Unknown event
// types fall back to the raw type.
func activityMessage(l store.ActivityLog) string {
	var p map[string]any
	_ = json.Unmarshal(l.Payload, &p)
	str := func(key string) string {
		v, _ := p[key].(string)
		return v
	}

	switch l.EventType {
	case "employee.updated":
		return "Employee profile updated"
	case "employee.deleted":
		return "Employee removed from the organization"
	case "team.created":
		if name := str("name"); name != "" {
			return fmt.Sprintf("Team %q created", name)
		}
		return "Team created"
	case "team.updated":
		return "Team updated"
	case "team.deleted":
		return "Team deleted"
	case "invitation.created", "invitation.resent":
		if email := str("email"); email != "" {
			return fmt.Sprintf("Invitation sent to %s", email)
		}
		return "Invitation sent"
	case "invitation.cancelled":
		return "Invitation cancelled"
	case "config.org_updated":
		return "Organization agent configuration updated"
	case "config.org_deleted":
		return "Organization agent configuration removed"
	case "config.team_updated":
		return "Team agent override updated"
	case "config.team_deleted":
		return "Team agent override removed"
	case "config.employee_updated":
		return "Employee agent override updated"
	case "config.employee_deleted":
		return "Employee agent override removed"
	case "policy.created":
		if tool := str("tool_name"); tool != "" {
			return fmt.Sprintf("Tool policy created for %q (%s)", tool, str("action"))
		}
		return "Tool policy created"
	case "policy.updated":
		return "Tool policy updated"
	case "policy.deleted":
		return "Tool policy deleted"
	case "auth.password_changed":
		return "Password changed"
	case "sync.pulled":
		return "Agent configuration synced"
	default:
		return l.EventType
	}
}

// handleActivityStream pushes new activity entries for the caller's org over
// SSE until the client disconnects.
func (s server) handleActivityStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	orgID := orgIDFromCtx(r)
	ch := s.br.subscribe(orgID)
	defer s.br.unsubscribe(orgID, ch)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepalive := time.NewTicker(25 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case entry, open := <-ch:
			if !open {
				return
			}
			payload, err := json.Marshal(activityDTO(entry))
			if err != nil {
				logError(r.Context(), "marshal activity event failed", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: activity\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
