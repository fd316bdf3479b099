package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"arfa/internal/auth"
	"arfa/internal/logging"
	"arfa/internal/store"
	"arfa/internal/validate"
)

type server struct {
	st  store.Store
	jwt *auth.JWT
	log *logging.Logger

	sessionTTL       time.Duration
	inviteExpiry     time.Duration
	inviteDailyLimit int
	resetTokenTTL    time.Duration

	br *broker
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeFieldErrors(w http.ResponseWriter, fe validate.FieldErrors) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error":  "validation_failed",
		"fields": fe,
	})
}

// writeStoreError maps persistence errors onto the HTTP surface. Anything
// unexpected becomes a 500 with a generic body; the detail goes to the log.
func (s server) writeStoreError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg, conflictMsg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, conflictMsg)
	default:
		logError(r.Context(), "store error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func readJSONLimited(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := readJSON(r, dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func urlUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

func queryInt(r *http.Request, name, def string) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		v = def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

type ctxKey string

const (
	ctxEmployeeID ctxKey = "employee_id"
	ctxOrgID      ctxKey = "org_id"
	ctxRoleName   ctxKey = "role_name"
)

func employeeIDFromCtx(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(ctxEmployeeID).(uuid.UUID)
	return id
}

func orgIDFromCtx(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(ctxOrgID).(uuid.UUID)
	return id
}

func roleFromCtx(r *http.Request) string {
	name, _ := r.Context().Value(ctxRoleName).(string)
	return name
}

// audit records an activity log row and fans it out to live subscribers.
// Failures never fail the request that triggered them.
func (s server) audit(r *http.Request, eventType, category string, payload map[string]any) {
	orgID := orgIDFromCtx(r)
	if orgID == uuid.Nil {
		return
	}
	empID := employeeIDFromCtx(r)
	var actor *uuid.UUID
	if empID != uuid.Nil {
		actor = &empID
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = json.RawMessage(`{}`)
	}
	entry, err := s.st.InsertActivityLog(r.Context(), store.InsertActivityLogParams{
		OrgID:         orgID,
		EmployeeID:    actor,
		EventType:     eventType,
		EventCategory: category,
		Payload:       raw,
	})
	if err != nil {
		logError(r.Context(), "insert activity log failed", err)
		return
	}
	s.br.publish(orgID, entry)
}
