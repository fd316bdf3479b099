package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(d Deps) http.Handler {
	if d.Log != nil {
		httpLog = d.Log.Sub("httpapi")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(observeMiddleware)
	r.Use(corsMiddleware(d.CORSAllowedOrigins))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	limit := d.RateLimitPerMinute
	if limit <= 0 {
		limit = 120
	}
	r.Use(newIPRateLimiter(limit, time.Minute).middleware)
	r.Use(middleware.Heartbeat("/healthz"))

	s := server{
		st:               d.Store,
		jwt:              d.JWT,
		log:              d.Log,
		sessionTTL:       d.SessionTTL,
		inviteExpiry:     d.InviteExpiry,
		inviteDailyLimit: d.InviteDailyLimit,
		resetTokenTTL:    d.ResetTokenTTL,
		br:               newBroker(),
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = 30 * 24 * time.Hour
	}
	if s.inviteExpiry <= 0 {
		s.inviteExpiry = 7 * 24 * time.Hour
	}
	if s.inviteDailyLimit <= 0 {
		s.inviteDailyLimit = 20
	}
	if s.resetTokenTTL <= 0 {
		s.resetTokenTTL = time.Hour
	}

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/forgot-password", s.handleForgotPassword)
		r.Get("/auth/verify-reset-token", s.handleVerifyResetToken)
		r.Post("/auth/reset-password", s.handleResetPassword)

		// Invitation acceptance is reached from an email link, before the
		// invitee has an account.
		r.Get("/invitations/token/{token}", s.handleGetInvitationByToken)
		r.Post("/invitations/token/{token}/accept", s.handleAcceptInvitation)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/logout", s.handleLogout)
			r.Get("/auth/me", s.handleMe)
			r.Post("/auth/change-password", s.handleChangePassword)

			r.Get("/roles", s.handleListRoles)
			r.Get("/agents", s.handleListAgents)
			r.Get("/agents/{agentID}", s.handleGetAgent)

			r.Get("/teams", s.handleListTeams)
			r.Get("/teams/{teamID}", s.handleGetTeam)
			r.Get("/teams/{teamID}/agent-configs", s.handleListTeamConfigs)
			r.Get("/employees/me/tool-policies", s.handleMyToolPolicies)
			r.Get("/employees", s.handleListEmployees)
			r.Get("/employees/{employeeID}", s.handleGetEmployee)
			r.Get("/employees/{employeeID}/agent-configs", s.handleListEmployeeConfigs)
			r.Get("/employees/{employeeID}/agent-configs/resolved", s.handleResolveEmployeeConfigs)
			r.Get("/employees/{employeeID}/agent-configs/{agentID}/resolved", s.handleResolveEmployeeConfig)
			r.Get("/org/agent-configs", s.handleListOrgConfigs)
			r.Get("/org/agent-configs/{agentID}", s.handleGetOrgConfig)

			r.Get("/activity", s.handleListActivity)
			r.Get("/activity/stream", s.handleActivityStream)

			r.Get("/sync/agents/{agentID}", s.handleSyncBundle)

			r.Group(func(r chi.Router) {
				r.Use(requireRole("admin", "manager"))
				r.Post("/teams", s.handleCreateTeam)
				r.Patch("/teams/{teamID}", s.handleUpdateTeam)
				r.Delete("/teams/{teamID}", s.handleDeleteTeam)
				r.Put("/teams/{teamID}/agent-configs/{agentID}", s.handleUpsertTeamConfig)
				r.Delete("/teams/{teamID}/agent-configs/{agentID}", s.handleDeleteTeamConfig)
				r.Put("/employees/{employeeID}/agent-configs/{agentID}", s.handleUpsertEmployeeConfig)
				r.Delete("/employees/{employeeID}/agent-configs/{agentID}", s.handleDeleteEmployeeConfig)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireRole("admin"))
				r.Post("/employees", s.handleCreateEmployee)
				r.Patch("/employees/{employeeID}", s.handleUpdateEmployee)
				r.Delete("/employees/{employeeID}", s.handleDeleteEmployee)

				r.Put("/org/agent-configs/{agentID}", s.handleUpsertOrgConfig)
				r.Delete("/org/agent-configs/{agentID}", s.handleDeleteOrgConfig)

				r.Post("/invitations", s.handleCreateInvitation)
				r.Get("/invitations", s.handleListInvitations)
				r.Post("/invitations/{invitationID}/cancel", s.handleCancelInvitation)
				r.Post("/invitations/{invitationID}/resend", s.handleResendInvitation)

				r.Post("/tool-policies", s.handleCreateToolPolicy)
				r.Get("/tool-policies", s.handleListToolPolicies)
				r.Get("/tool-policies/{policyID}", s.handleGetToolPolicy)
				r.Patch("/tool-policies/{policyID}", s.handleUpdateToolPolicy)
				r.Delete("/tool-policies/{policyID}", s.handleDeleteToolPolicy)
			})
		})
	})

	return r
}
