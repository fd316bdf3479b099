package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"arfa/internal/auth"
	"arfa/internal/store"
	"arfa/internal/validate"
)

type createInvitationRequest struct {
	Email  string     `json:"email"`
	RoleID uuid.UUID  `json:"role_id"`
	TeamID *uuid.UUID `json:"team_id"`
}

func (s server) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req createInvitationRequest
	if !readJSONLimited(w, r, &req, 16*1024) {
		return
	}

	fe := validate.FieldErrors{}
	if !validate.Email(req.Email) {
		fe.Add("email", "invalid email address")
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

	pending, err := s.st.HasPendingInvitation(ctx, orgID, req.Email)
	if err != nil {
		logError(ctx, "pending invitation lookup failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if pending {
		writeError(w, http.StatusConflict, "INVITE_PENDING")
		return
	}

	count, err := s.st.CountInvitationsSince(ctx, orgID, time.Now().Add(-24*time.Hour))
	if err != nil {
		logError(ctx, "invitation count failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if count >= s.inviteDailyLimit {
		writeError(w, http.StatusTooManyRequests, "daily invitation limit reached")
		return
	}

	token, err := auth.NewSecureToken()
	if err != nil {
		logError(ctx, "generate invitation token failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	inv, err := s.st.CreateInvitation(ctx, store.CreateInvitationParams{
		OrgID:     orgID,
		InviterID: employeeIDFromCtx(r),
		Email:     req.Email,
		RoleID:    req.RoleID,
		TeamID:    req.TeamID,
		Token:     token,
		ExpiresAt: time.Now().Add(s.inviteExpiry),
	})
	if err != nil {
		s.writeStoreError(w, r, err, "organization not found", "INVITE_PENDING")
		return
	}

	s.audit(r, "invitation.created", "invitations", map[string]any{"invitation_id": inv.ID, "email": inv.Email})

	// The token is returned once, to the admin who created the invite.
	writeJSON(w, http.StatusCreated, map[string]any{
		"invitation": inv,
		"token":      token,
	})
}

func (s server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case "", store.InvitationPending, store.InvitationAccepted, store.InvitationCancelled, store.InvitationExpired:
	default:
		writeError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	invs, err := s.st.ListInvitations(r.Context(), orgIDFromCtx(r), status)
	if err != nil {
		s.writeStoreError(w, r, err, "", "")
		return
	}
	if invs == nil {
		invs = []store.Invitation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitations": invs})
}

func (s server) handleCancelInvitation(w http.ResponseWriter, r *http.Request) {
	invID, ok := urlUUID(r, "invitationID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid invitation id")
		return
	}

	ctx := r.Context()
	inv, err := s.st.GetInvitationByID(ctx, orgIDFromCtx(r), invID)
	if err != nil {
		s.writeStoreError(w, r, err, "invitation not found", "")
		return
	}
	if inv.Status != store.InvitationPending {
		writeError(w, http.StatusConflict, "only pending invitations can be cancelled")
		return
	}

	out, err := s.st.SetInvitationStatus(ctx, inv.ID, store.InvitationCancelled, nil)
	if err != nil {
		s.writeStoreError(w, r, err, "invitation not found", "")
		return
	}

	s.audit(r, "invitation.cancelled", "invitations", map[string]any{"invitation_id": inv.ID})
	writeJSON(w, http.StatusOK, out)
}

// handleResendInvitation reissues a pending invitation with a fresh token
// and a fresh expiry window.
func (s server) handleResendInvitation(w http.ResponseWriter, r *http.Request) {
	invID, ok := urlUUID(r, "invitationID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid invitation id")
		return
	}

	ctx := r.Context()
	inv, err := s.st.GetInvitationByID(ctx, orgIDFromCtx(r), invID)
	if err != nil {
		s.writeStoreError(w, r, err, "invitation not found", "")
		return
	}
	if inv.Status != store.InvitationPending {
		writeError(w, http.StatusConflict, "only pending invitations can be resent")
		return
	}

	// Cancel and recreate rather than mutating the token in place, so the
	// audit trail keeps both.
	if _, err := s.st.SetInvitationStatus(ctx, inv.ID, store.InvitationCancelled, nil); err != nil {
		s.writeStoreError(w, r, err, "invitation not found", "")
		return
	}
	token, err := auth.NewSecureToken()
	if err != nil {
		logError(ctx, "generate invitation token failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	fresh, err := s.st.CreateInvitation(ctx, store.CreateInvitationParams{
		OrgID:     inv.OrgID,
		InviterID: employeeIDFromCtx(r),
		Email:     inv.Email,
		RoleID:    inv.RoleID,
		TeamID:    inv.TeamID,
		Token:     token,
		ExpiresAt: time.Now().Add(s.inviteExpiry),
	})
	if err != nil {
		s.writeStoreError(w, r, err, "organization not found", "INVITE_PENDING")
		return
	}

	s.audit(r, "invitation.resent", "invitations", map[string]any{"invitation_id": fresh.ID, "email": fresh.Email})
	writeJSON(w, http.StatusCreated, map[string]any{
		"invitation": fresh,
		"token":      token,
	})
}

// invitationByToken applies the acceptance state machine shared by the
// public lookup and accept endpoints: unknown tokens 404, expired ones 410,
// already-settled ones 409. Only a live pending invitation passes.
func (s server) invitationByToken(w http.ResponseWriter, r *http.Request) (store.Invitation, bool) {
	token := strings.TrimSpace(chi.URLParam(r, "token"))
	if token == "" {
		writeError(w, http.StatusNotFound, "invitation not found")
		return store.Invitation{}, false
	}

	inv, err := s.st.GetInvitationByToken(r.Context(), token)
	if err != nil {
		s.writeStoreError(w, r, err, "invitation not found", "")
		return store.Invitation{}, false
	}

	switch inv.Status {
	case store.InvitationExpired:
		writeError(w, http.StatusGone, "invitation has expired")
		return store.Invitation{}, false
	case store.InvitationAccepted:
		writeError(w, http.StatusConflict, "invitation has already been accepted")
		return store.Invitation{}, false
	case store.InvitationCancelled:
		writeError(w, http.StatusConflict, "invitation has been cancelled")
		return store.Invitation{}, false
	}
	if time.Now().After(inv.ExpiresAt) {
		// The background sweep may not have run yet; treat as expired now.
		if _, err := s.st.SetInvitationStatus(r.Context(), inv.ID, store.InvitationExpired, nil); err != nil {
			logError(r.Context(), "expire invitation failed", err)
		}
		writeError(w, http.StatusGone, "invitation has expired")
		return store.Invitation{}, false
	}
	return inv, true
}

func (s server) handleGetInvitationByToken(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.invitationByToken(w, r)
	if !ok {
		return
	}

	org, err := s.st.GetOrganizationByID(r.Context(), inv.OrgID)
	if err != nil {
		s.writeStoreError(w, r, err, "organization not found", "")
		return
	}
	role, err := s.st.GetRoleByID(r.Context(), inv.RoleID)
	if err != nil {
		s.writeStoreError(w, r, err, "role not found", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"email":             inv.Email,
		"organization_name": org.Name,
		"role_name":         role.Name,
		"expires_at":        inv.ExpiresAt,
	})
}

type acceptInvitationRequest struct {
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

func (s server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req acceptInvitationRequest
	if !readJSONLimited(w, r, &req, 16*1024) {
		return
	}

	fe := validate.FieldErrors{}
	if !validate.FullName(req.FullName) {
		fe.Add("full_name", "full name is required")
	}
	for _, msg := range validate.Password(req.Password) {
		fe.Add("password", msg)
	}
	if !fe.Empty() {
		writeFieldErrors(w, fe)
		return
	}

	inv, ok := s.invitationByToken(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if _, err := s.st.GetEmployeeByEmail(ctx, inv.Email); err == nil {
		writeError(w, http.StatusConflict, "EMAIL_EXISTS")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		logError(ctx, "email lookup failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logError(ctx, "hash password failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	emp, err := s.st.CreateEmployee(ctx, store.CreateEmployeeParams{
		OrgID:        inv.OrgID,
		TeamID:       inv.TeamID,
		RoleID:       inv.RoleID,
		Email:        inv.Email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
	})
	if err != nil {
		s.writeStoreError(w, r, err, "organization not found", "EMAIL_EXISTS")
		return
	}

	if _, err := s.st.SetInvitationStatus(ctx, inv.ID, store.InvitationAccepted, &emp.ID); err != nil {
		logError(ctx, "mark invitation accepted failed", err)
	}

	token, expiresAt, err := s.issueSession(r, emp)
	if err != nil {
		logError(ctx, "issue session failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"token":      token,
		"expires_at": expiresAt,
		"employee":   emp,
	})
}
