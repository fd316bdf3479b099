// Package store is the Postgres persistence layer. Handlers depend on the
// Store interface so tests can substitute an in-memory fake.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Role struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Permissions json.RawMessage `json:"permissions"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type Team struct {
	ID          uuid.UUID `json:"id"`
	OrgID       uuid.UUID `json:"org_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Employee struct {
	ID           uuid.UUID  `json:"id"`
	OrgID        uuid.UUID  `json:"org_id"`
	TeamID       *uuid.UUID `json:"team_id"`
	RoleID       uuid.UUID  `json:"role_id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	PasswordHash string     `json:"-"`
	Status       string     `json:"status"`
	RoleName     string     `json:"role_name,omitempty"`
	TeamName     *string    `json:"team_name,omitempty"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type Session struct {
	ID         uuid.UUID `json:"id"`
	EmployeeID uuid.UUID `json:"employee_id"`
	TokenHash  string    `json:"-"`
	IPAddress  *string   `json:"ip_address"`
	UserAgent  *string   `json:"user_agent"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

type PasswordResetToken struct {
	ID         uuid.UUID  `json:"id"`
	EmployeeID uuid.UUID  `json:"employee_id"`
	Token      string     `json:"-"`
	UsedAt     *time.Time `json:"used_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

const (
	InvitationPending   = "pending"
	InvitationAccepted  = "accepted"
	InvitationCancelled = "cancelled"
	InvitationExpired   = "expired"
)

type Invitation struct {
	ID         uuid.UUID  `json:"id"`
	OrgID      uuid.UUID  `json:"org_id"`
	InviterID  uuid.UUID  `json:"inviter_id"`
	Email      string     `json:"email"`
	RoleID     uuid.UUID  `json:"role_id"`
	TeamID     *uuid.UUID `json:"team_id"`
	Token      string     `json:"-"`
	Status     string     `json:"status"`
	AcceptedBy *uuid.UUID `json:"accepted_by"`
	AcceptedAt *time.Time `json:"accepted_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type Agent struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Provider      string          `json:"provider"`
	LLMProvider   *string         `json:"llm_provider"`
	LLMModel      *string         `json:"llm_model"`
	Description   *string         `json:"description"`
	IsPublic      bool            `json:"is_public"`
	Capabilities  json.RawMessage `json:"capabilities"`
	DefaultConfig json.RawMessage `json:"default_config"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type OrgAgentConfig struct {
	ID        uuid.UUID       `json:"id"`
	OrgID     uuid.UUID       `json:"org_id"`
	AgentID   uuid.UUID       `json:"agent_id"`
	Config    json.RawMessage `json:"config"`
	IsEnabled bool            `json:"is_enabled"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type TeamAgentConfig struct {
	ID             uuid.UUID       `json:"id"`
	TeamID         uuid.UUID       `json:"team_id"`
	AgentID        uuid.UUID       `json:"agent_id"`
	ConfigOverride json.RawMessage `json:"config_override"`
	IsEnabled      bool            `json:"is_enabled"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type EmployeeAgentConfig struct {
	ID             uuid.UUID       `json:"id"`
	EmployeeID     uuid.UUID       `json:"employee_id"`
	AgentID        uuid.UUID       `json:"agent_id"`
	ConfigOverride json.RawMessage `json:"config_override"`
	OverrideReason *string         `json:"override_reason"`
	IsEnabled      bool            `json:"is_enabled"`
	SyncToken      *string         `json:"sync_token"`
	LastSyncedAt   *time.Time      `json:"last_synced_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

const (
	PolicyActionDeny  = "deny"
	PolicyActionAudit = "audit"
)

type ToolPolicy struct {
	ID         uuid.UUID       `json:"id"`
	OrgID      uuid.UUID       `json:"org_id"`
	TeamID     *uuid.UUID      `json:"team_id"`
	EmployeeID *uuid.UUID      `json:"employee_id"`
	ToolName   string          `json:"tool_name"`
	Action     string          `json:"action"`
	Reason     *string         `json:"reason"`
	Conditions json.RawMessage `json:"conditions"`
	CreatedBy  *uuid.UUID      `json:"created_by"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Scope reports where the policy applies, derived from which IDs are set.
func (p ToolPolicy) Scope() string {
	switch {
	case p.EmployeeID != nil:
		return "employee"
	case p.TeamID != nil:
		return "team"
	default:
		return "org"
	}
}

type ActivityLog struct {
	ID            uuid.UUID       `json:"id"`
	OrgID         uuid.UUID       `json:"org_id"`
	EmployeeID    *uuid.UUID      `json:"employee_id"`
	EventType     string          `json:"event_type"`
	EventCategory string          `json:"event_category"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
}

type CreateEmployeeParams struct {
	OrgID        uuid.UUID
	TeamID       *uuid.UUID
	RoleID       uuid.UUID
	Email        string
	FullName     string
	PasswordHash string
}

type UpdateEmployeeParams struct {
	FullName  *string
	TeamID    *uuid.UUID
	ClearTeam bool
	RoleID    *uuid.UUID
	Status    *string
}

type CreateInvitationParams struct {
	OrgID     uuid.UUID
	InviterID uuid.UUID
	Email     string
	RoleID    uuid.UUID
	TeamID    *uuid.UUID
	Token     string
	ExpiresAt time.Time
}

type CreateToolPolicyParams struct {
	OrgID      uuid.UUID
	TeamID     *uuid.UUID
	EmployeeID *uuid.UUID
	ToolName   string
	Action     string
	Reason     *string
	Conditions json.RawMessage
	CreatedBy  *uuid.UUID
}

type UpdateToolPolicyParams struct {
	Action     *string
	Reason     *string
	Conditions json.RawMessage
}

type ActivityLogFilter struct {
	EmployeeID    *uuid.UUID
	EventCategory string
	EventType     string
	Since         *time.Time
	Until         *time.Time
	Limit         int
	Offset        int
}

type InsertActivityLogParams struct {
	OrgID         uuid.UUID
	EmployeeID    *uuid.UUID
	EventType     string
	EventCategory string
	Payload       json.RawMessage
}

type Store interface {
	// Organizations
	CreateOrganization(ctx context.Context, name, slug string) (Organization, error)
	GetOrganizationByID(ctx context.Context, id uuid.UUID) (Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (Organization, error)

	// Roles
	ListRoles(ctx context.Context) ([]Role, error)
	GetRoleByID(ctx context.Context, id uuid.UUID) (Role, error)
	GetRoleByName(ctx context.Context, name string) (Role, error)

	// Teams
	CreateTeam(ctx context.Context, orgID uuid.UUID, name string, description *string) (Team, error)
	ListTeams(ctx context.Context, orgID uuid.UUID) ([]Team, error)
	GetTeam(ctx context.Context, orgID, id uuid.UUID) (Team, error)
	UpdateTeam(ctx context.Context, orgID, id uuid.UUID, name *string, description *string) (Team, error)
	DeleteTeam(ctx context.Context, orgID, id uuid.UUID) error

	// Employees
	CreateEmployee(ctx context.Context, p CreateEmployeeParams) (Employee, error)
	GetEmployeeByID(ctx context.Context, orgID, id uuid.UUID) (Employee, error)
	GetEmployeeByEmail(ctx context.Context, email string) (Employee, error)
	ListEmployees(ctx context.Context, orgID uuid.UUID, teamID *uuid.UUID, status string) ([]Employee, error)
	UpdateEmployee(ctx context.Context, orgID, id uuid.UUID, p UpdateEmployeeParams) (Employee, error)
	DeleteEmployee(ctx context.Context, orgID, id uuid.UUID) error
	UpdateEmployeePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	TouchEmployeeLogin(ctx context.Context, id uuid.UUID) error

	// Sessions
	CreateSession(ctx context.Context, employeeID uuid.UUID, tokenHash string, ip, userAgent *string, expiresAt time.Time) (Session, error)
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (Session, error)
	DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)

	// Password resets
	CreatePasswordResetToken(ctx context.Context, employeeID uuid.UUID, token string, expiresAt time.Time) (PasswordResetToken, error)
	GetPasswordResetToken(ctx context.Context, token string) (PasswordResetToken, error)
	MarkPasswordResetTokenUsed(ctx context.Context, id uuid.UUID) error
	DeleteExpiredPasswordResetTokens(ctx context.Context) (int64, error)

	// Invitations
	CreateInvitation(ctx context.Context, p CreateInvitationParams) (Invitation, error)
	ListInvitations(ctx context.Context, orgID uuid.UUID, status string) ([]Invitation, error)
	GetInvitationByID(ctx context.Context, orgID, id uuid.UUID) (Invitation, error)
	GetInvitationByToken(ctx context.Context, token string) (Invitation, error)
	CountInvitationsSince(ctx context.Context, orgID uuid.UUID, since time.Time) (int, error)
	HasPendingInvitation(ctx context.Context, orgID uuid.UUID, email string) (bool, error)
	SetInvitationStatus(ctx context.Context, id uuid.UUID, status string, acceptedBy *uuid.UUID) (Invitation, error)
	ExpireOverdueInvitations(ctx context.Context) (int64, error)

	// Agents
	ListAgents(ctx context.Context) ([]Agent, error)
	GetAgentByID(ctx context.Context, id uuid.UUID) (Agent, error)

	// Agent configs
	UpsertOrgAgentConfig(ctx context.Context, orgID, agentID uuid.UUID, cfg json.RawMessage, isEnabled bool) (OrgAgentConfig, error)
	GetOrgAgentConfig(ctx context.Context, orgID, agentID uuid.UUID) (OrgAgentConfig, error)
	ListOrgAgentConfigs(ctx context.Context, orgID uuid.UUID) ([]OrgAgentConfig, error)
	DeleteOrgAgentConfig(ctx context.Context, orgID, agentID uuid.UUID) error

	UpsertTeamAgentConfig(ctx context.Context, teamID, agentID uuid.UUID, cfg json.RawMessage, isEnabled bool) (TeamAgentConfig, error)
	GetTeamAgentConfig(ctx context.Context, teamID, agentID uuid.UUID) (TeamAgentConfig, error)
	ListTeamAgentConfigs(ctx context.Context, teamID uuid.UUID) ([]TeamAgentConfig, error)
	DeleteTeamAgentConfig(ctx context.Context, teamID, agentID uuid.UUID) error

	UpsertEmployeeAgentConfig(ctx context.Context, employeeID, agentID uuid.UUID, cfg json.RawMessage, overrideReason *string, isEnabled bool) (EmployeeAgentConfig, error)
	GetEmployeeAgentConfig(ctx context.Context, employeeID, agentID uuid.UUID) (EmployeeAgentConfig, error)
	ListEmployeeAgentConfigs(ctx context.Context, employeeID uuid.UUID) ([]EmployeeAgentConfig, error)
	DeleteEmployeeAgentConfig(ctx context.Context, employeeID, agentID uuid.UUID) error
	SetEmployeeSyncState(ctx context.Context, employeeID, agentID uuid.UUID, syncToken string, syncedAt time.Time) error

	// Tool policies
	CreateToolPolicy(ctx context.Context, p CreateToolPolicyParams) (ToolPolicy, error)
	ListToolPolicies(ctx context.Context, orgID uuid.UUID) ([]ToolPolicy, error)
	GetToolPolicy(ctx context.Context, orgID, id uuid.UUID) (ToolPolicy, error)
	UpdateToolPolicy(ctx context.Context, orgID, id uuid.UUID, p UpdateToolPolicyParams) (ToolPolicy, error)
	DeleteToolPolicy(ctx context.Context, orgID, id uuid.UUID) error

	// Activity logs
	InsertActivityLog(ctx context.Context, p InsertActivityLogParams) (ActivityLog, error)
	ListActivityLogs(ctx context.Context, orgID uuid.UUID, f ActivityLogFilter) ([]ActivityLog, int, error)
	ListActivityLogsBefore(ctx context.Context, cutoff time.Time, limit int) ([]ActivityLog, error)
	DeleteActivityLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
