package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"arfa/internal/auth"
	"arfa/internal/store"
	"arfa/internal/validate"
)

func (s server) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	var teamID *uuid.UUID
	if v := r.URL.Query().Get("team_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid team_id")
			return
		}
		teamID = &id
	}
	status := r.URL.Query().Get("status")
	switch status {
	case "", "active", "inactive", "suspended":
	default:
		writeError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	employees, err := s.st.ListEmployees(r.Context(), orgIDFromCtx(r), teamID, status)
	if err != nil {
		s.writeStoreError(w, r, err, "", "")
		return
	}
	if employees == nil {
		employees = []store.Employee{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"employees": employees})
}

type createEmployeeRequest struct {
	Email    string     `json:"email"`
	FullName string     `json:"full_name"`
	RoleID   uuid.UUID  `json:"role_id"`
	TeamID   *uuid.UUID `json:"team_id"`
}

// handleCreateEmployee provisions an account directly, without the
// invitation flow. The generated temporary password is returned once and
// never stored in the clear.
func (s server) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req createEmployeeRequest
	if !readJSONLimited(w, r, &req, 16*1024) {
		return
	}

	fe := validate.FieldErrors{}
	if !validate.Email(req.Email) {
		fe.Add("email", "invalid email address")
	}
	if !validate.FullName(req.FullName) {
		fe.Add("full_name", "full name is required")
	}
	if req.RoleID == uuid.Nil {
		fe.Add("role_id", "role is required")
	}
	if !fe.Empty() {
		writeFieldErrors(w, fe)
		return
	}

	ctx := r.Context()
	orgID := orgIDFromCtx(r)

	if _, err := s.st.GetRoleByID(ctx, req.RoleID); err != nil {
		s.writeStoreError(w, r, err, "role not found", "")
		return
	}
	if req.TeamID != nil {
		if _, err := s.st.GetTeam(ctx, orgID, *req.TeamID); err != nil {
			s.writeStoreError(w, r, err, "team not found", "")
			return
		}
	}

	if _, err := s.st.GetEmployeeByEmail(ctx, req.Email); err == nil {
		writeError(w, http.StatusConflict, "EMAIL_EXISTS")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		logError(ctx, "email lookup failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	password, err := auth.NewTempPassword()
	if err != nil {
		logError(ctx, "generate password failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		logError(ctx, "hash password failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	emp, err := s.st.CreateEmployee(ctx, store.CreateEmployeeParams{
		OrgID:        orgID,
		TeamID:       req.TeamID,
		RoleID:       req.RoleID,
		Email:        req.Email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
	})
	if err != nil {
		s.writeStoreError(w, r, err, "employee not found", "EMAIL_EXISTS")
		return
	}

	s.audit(r, "employee.created", "employees", map[string]any{"employee_id": emp.ID})
	writeJSON(w, http.StatusCreated, map[string]any{
		"employee":           emp,
		"temporary_password": password,
	})
}

func (s server) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	empID, ok := urlUUID(r, "employeeID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid employee id")
		return
	}
	emp, err := s.st.GetEmployeeByID(r.Context(), orgIDFromCtx(r), empID)
	if err != nil {
		s.writeStoreError(w, r, err, "employee not found", "")
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

type updateEmployeeRequest struct {
	FullName  *string    `json:"full_name"`
	TeamID    *uuid.UUID `json:"team_id"`
	ClearTeam bool       `json:"clear_team,omitempty"`
	RoleID    *uuid.UUID `json:"role_id"`
	Status    *string    `json:"status"`
}

func (s server) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	empID, ok := urlUUID(r, "employeeID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid employee id")
		return
	}
	var req updateEmployeeRequest
	if !readJSONLimited(w, r, &req, 16*1024) {
		return
	}

	fe := validate.FieldErrors{}
	if req.FullName != nil && !validate.FullName(*req.FullName) {
		fe.Add("full_name", "full name is required")
	}
	if req.Status != nil {
		switch *req.Status {
		case "active", "inactive", "suspended":
		default:
			fe.Add("status", "status must be active, inactive or suspended")
		}
	}
	if !fe.Empty() {
		writeFieldErrors(w, fe)
		return
	}
	if req.FullName != nil {
		trimmed := strings.TrimSpace(*req.FullName)
		req.FullName = &trimmed
	}

	ctx := r.Context()
	orgID := orgIDFromCtx(r)

	// Referenced team and role must belong to this org / exist.
	if req.TeamID != nil {
		if _, err := s.st.GetTeam(ctx, orgID, *req.TeamID); err != nil {
			s.writeStoreError(w, r, err, "team not found", "")
			return
		}
	}
	if req.RoleID != nil {
		if _, err := s.st.GetRoleByID(ctx, *req.RoleID); err != nil {
			s.writeStoreError(w, r, err, "role not found", "")
			return
		}
	}

	emp, err := s.st.UpdateEmployee(ctx, orgID, empID, store.UpdateEmployeeParams{
		FullName:  req.FullName,
		TeamID:    req.TeamID,
		ClearTeam: req.ClearTeam,
		RoleID:    req.RoleID,
		Status:    req.Status,
	})
	if err != nil {
		s.writeStoreError(w, r, err, "employee not found", "conflict")
		return
	}

	s.audit(r, "employee.updated", "employees", map[string]any{"employee_id": emp.ID})
	writeJSON(w, http.StatusOK, emp)
}

func (s server) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	empID, ok := urlUUID(r, "employeeID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid employee id")
		return
	}
	if empID == employeeIDFromCtx(r) {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}
	if err := s.st.DeleteEmployee(r.Context(), orgIDFromCtx(r), empID); err != nil {
		s.writeStoreError(w, r, err, "employee not found", "")
		return
	}

	s.audit(r, "employee.deleted", "employees", map[string]any{"employee_id": empID})
	writeJSON(w, http.StatusOK, map[string]string{"message": "employee deleted"})
}
