package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"arfa/internal/auth"
	"arfa/internal/store"
	"arfa/internal/validate"
)

type registerRequest struct {
	OrganizationName string `json:"organization_name"`
	OrganizationSlug string `json:"organization_slug"`
	Email            string `json:"email"`
	FullName         string `json:"full_name"`
	Password         string `json:"password"`
}

// handleRegister creates an organization and its first admin employee in one
// step. All field validation runs before any store access.
func (s server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !readJSONLimited(w, r, &req, 64*1024) {
		return
	}

	fe := validate.FieldErrors{}
	if strings.TrimSpace(req.OrganizationName) == "" {
		fe.Add("organization_name", "organization name is required")
	}
	if !validate.OrgSlug(req.OrganizationSlug) {
		fe.Add("organization_slug", "slug must start with a lowercase letter and contain only lowercase letters, digits or dashes (3-50 characters)")
	}
	if !validate.Email(req.Email) {
		fe.Add("email", "invalid email address")
	}
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

	ctx := r.Context()
	if _, err := s.st.GetEmployeeByEmail(ctx, req.Email); err == nil {
		writeError(w, http.StatusConflict, "EMAIL_EXISTS")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		logError(ctx, "email lookup failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	org, err := s.st.CreateOrganization(ctx, strings.TrimSpace(req.OrganizationName), req.OrganizationSlug)
	if err != nil {
		s.writeStoreError(w, r, err, "organization not found", "SLUG_EXISTS")
		return
	}

	role, err := s.st.GetRoleByName(ctx, "admin")
	if err != nil {
		logError(ctx, "admin role lookup failed", err)
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
		OrgID:        org.ID,
		RoleID:       role.ID,
		Email:        req.Email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
	})
	if err != nil {
		s.writeStoreError(w, r, err, "employee not found", "EMAIL_EXISTS")
		return
	}

	token, expiresAt, err := s.issueSession(r, emp)
	if err != nil {
		logError(ctx, "issue session failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"token":        token,
		"expires_at":   expiresAt,
		"employee":     emp,
		"organization": org,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !readJSONLimited(w, r, &req, 16*1024) {
		return
	}

	ctx := r.Context()
	emp, err := s.st.GetEmployeeByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		logError(ctx, "employee lookup failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !auth.VerifyPassword(req.Password, emp.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if emp.Status != "active" {
		writeError(w, http.StatusForbidden, "account disabled")
		return
	}

	token, expiresAt, err := s.issueSession(r, emp)
	if err != nil {
		logError(ctx, "issue session failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := s.st.TouchEmployeeLogin(ctx, emp.ID); err != nil {
		logError(ctx, "touch last login failed", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiresAt,
		"employee":   emp,
	})
}

// issueSession signs a JWT and stores its hash so logout can revoke it.
// The session row lives for sessionTTL; the effective expiry is the earlier
// of the row horizon and the JWT exp, since either lapsing ends the session.
func (s server) issueSession(r *http.Request, emp store.Employee) (string, time.Time, error) {
	token, expiresAt, err := s.jwt.Generate(emp.ID, emp.OrgID)
	if err != nil {
		return "", time.Time{}, err
	}
	var ip, ua *string
	if v := clientIP(r); v != "" {
		ip = &v
	}
	if v := r.UserAgent(); v != "" {
		ua = &v
	}
	sessionExpiry := time.Now().Add(s.sessionTTL)
	if _, err := s.st.CreateSession(r.Context(), emp.ID, auth.HashToken(token), ip, ua, sessionExpiry); err != nil {
		return "", time.Time{}, err
	}
	if sessionExpiry.Before(expiresAt) {
		expiresAt = sessionExpiry
	}
	return token, expiresAt, nil
}

func (s server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if err := s.st.DeleteSessionByTokenHash(r.Context(), auth.HashToken(token)); err != nil {
		logError(r.Context(), "delete session failed", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s server) handleMe(w http.ResponseWriter, r *http.Request) {
	emp, err := s.st.GetEmployeeByID(r.Context(), orgIDFromCtx(r), employeeIDFromCtx(r))
	if err != nil {
		s.writeStoreError(w, r, err, "employee not found", "")
		return
	}
	org, err := s.st.GetOrganizationByID(r.Context(), emp.OrgID)
	if err != nil {
		s.writeStoreError(w, r, err, "organization not found", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"employee":     emp,
		"organization": org,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !readJSONLimited(w, r, &req, 16*1024) {
		return
	}

	fe := validate.FieldErrors{}
	for _, msg := range validate.Password(req.NewPassword) {
		fe.Add("new_password", msg)
	}
	if !fe.Empty() {
		writeFieldErrors(w, fe)
		return
	}

	ctx := r.Context()
	emp, err := s.st.GetEmployeeByID(ctx, orgIDFromCtx(r), employeeIDFromCtx(r))
	if err != nil {
		s.writeStoreError(w, r, err, "employee not found", "")
		return
	}
	if !auth.VerifyPassword(req.CurrentPassword, emp.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		logError(ctx, "hash password failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := s.st.UpdateEmployeePassword(ctx, emp.ID, hash); err != nil {
		s.writeStoreError(w, r, err, "employee not found", "")
		return
	}

	s.audit(r, "auth.password_changed", "auth", map[string]any{"employee_id": emp.ID})
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// handleForgotPassword always answers with the same message so it cannot be
// used to probe which emails exist.
func (s server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !readJSONLimited(w, r, &req, 16*1024) {
		return
	}

	generic := map[string]string{"message": "If that email is registered, a password reset link has been sent."}

	ctx := r.Context()
	emp, err := s.st.GetEmployeeByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logError(ctx, "employee lookup failed", err)
		}
		writeJSON(w, http.StatusOK, generic)
		return
	}

	token, err := auth.NewSecureToken()
	if err != nil {
		logError(ctx, "generate reset token failed", err)
		writeJSON(w, http.StatusOK, generic)
		return
	}
	if _, err := s.st.CreatePasswordResetToken(ctx, emp.ID, token, time.Now().Add(s.resetTokenTTL)); err != nil {
		logError(ctx, "create reset token failed", err)
	}
	// TODO: wire an email sender; until then the token is only reachable
	// through the database by an operator.

	writeJSON(w, http.StatusOK, generic)
}

// handleVerifyResetToken lets the reset form check a token before asking for
// a new password.
func (s server) handleVerifyResetToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}
	reset, err := s.st.GetPasswordResetToken(r.Context(), token)
	if err != nil {
		s.writeStoreError(w, r, err, "invalid or expired reset token", "")
		return
	}
	if reset.UsedAt != nil || time.Now().After(reset.ExpiresAt) {
		writeError(w, http.StatusBadRequest, "invalid or expired reset token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (s server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !readJSONLimited(w, r, &req, 16*1024) {
		return
	}

	fe := validate.FieldErrors{}
	for _, msg := range validate.Password(req.Password) {
		fe.Add("password", msg)
	}
	if !fe.Empty() {
		writeFieldErrors(w, fe)
		return
	}

	ctx := r.Context()
	reset, err := s.st.GetPasswordResetToken(ctx, req.Token)
	if err != nil {
		s.writeStoreError(w, r, err, "invalid or expired reset token", "")
		return
	}
	if reset.UsedAt != nil || time.Now().After(reset.ExpiresAt) {
		writeError(w, http.StatusBadRequest, "invalid or expired reset token")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logError(ctx, "hash password failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := s.st.UpdateEmployeePassword(ctx, reset.EmployeeID, hash); err != nil {
		s.writeStoreError(w, r, err, "employee not found", "")
		return
	}
	if err := s.st.MarkPasswordResetTokenUsed(ctx, reset.ID); err != nil {
		logError(ctx, "mark reset token used failed", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
