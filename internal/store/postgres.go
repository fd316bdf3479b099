package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var _ Store = (*Postgres)(nil)

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}

// Organizations

func (s *Postgres) CreateOrganization(ctx context.Context, name, slug string) (Organization, error) {
	var o Organization
	err := s.pool.QueryRow(ctx, `
		insert into organizations (name, slug)
		values ($1, $2)
		returning id, name, slug, created_at, updated_at`,
		name, slug,
	).Scan(&o.ID, &o.Name, &o.Slug, &o.CreatedAt, &o.UpdatedAt)
	return o, mapErr(err)
}

func (s *Postgres) GetOrganizationByID(ctx context.Context, id uuid.UUID) (Organization, error) {
	var o Organization
	err := s.pool.QueryRow(ctx, `
		select id, name, slug, created_at, updated_at
		from organizations where id = $1`, id,
	).Scan(&o.ID, &o.Name, &o.Slug, &o.CreatedAt, &o.UpdatedAt)
	return o, mapErr(err)
}

func (s *Postgres) GetOrganizationBySlug(ctx context.Context, slug string) (Organization, error) {
	var o Organization
	err := s.pool.QueryRow(ctx, `
		select id, name, slug, created_at, updated_at
		from organizations where slug = $1`, slug,
	).Scan(&o.ID, &o.Name, &o.Slug, &o.CreatedAt, &o.UpdatedAt)
	return o, mapErr(err)
}

// Roles

func (s *Postgres) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.pool.Query(ctx, `
		select id, name, description, permissions, created_at, updated_at
		from roles order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.Permissions, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Postgres) GetRoleByID(ctx context.Context, id uuid.UUID) (Role, error) {
	var r Role
	err := s.pool.QueryRow(ctx, `
		select id, name, description, permissions, created_at, updated_at
		from roles where id = $1`, id,
	).Scan(&r.ID, &r.Name, &r.Description, &r.Permissions, &r.CreatedAt, &r.UpdatedAt)
	return r, mapErr(err)
}

func (s *Postgres) GetRoleByName(ctx context.Context, name string) (Role, error) {
	var r Role
	err := s.pool.QueryRow(ctx, `
		select id, name, description, permissions, created_at, updated_at
		from roles where name = $1`, name,
	).Scan(&r.ID, &r.Name, &r.Description, &r.Permissions, &r.CreatedAt, &r.UpdatedAt)
	return r, mapErr(err)
}

// Teams

func (s *Postgres) CreateTeam(ctx context.Context, orgID uuid.UUID, name string, description *string) (Team, error) {
	var t Team
	err := s.pool.QueryRow(ctx, `
		insert into teams (org_id, name, description)
		values ($1, $2, $3)
		returning id, org_id, name, description, created_at, updated_at`,
		orgID, name, description,
	).Scan(&t.ID, &t.OrgID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	return t, mapErr(err)
}

func (s *Postgres) ListTeams(ctx context.Context, orgID uuid.UUID) ([]Team, error) {
	rows, err := s.pool.Query(ctx, `
		select t.id, t.org_id, t.name, t.description,
		       (select count(*) from employees e where e.team_id = t.id),
		       t.created_at, t.updated_at
		from teams t where t.org_id = $1 order by t.name`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Team
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.ID, &t.OrgID, &t.Name, &t.Description, &t.MemberCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Postgres) GetTeam(ctx context.Context, orgID, id uuid.UUID) (Team, error) {
	var t Team
	err := s.pool.QueryRow(ctx, `
		select t.id, t.org_id, t.name, t.description,
		       (select count(*) from employees e where e.team_id = t.id),
		       t.created_at, t.updated_at
		from teams t where t.org_id = $1 and t.id = $2`, orgID, id,
	).Scan(&t.ID, &t.OrgID, &t.Name, &t.Description, &t.MemberCount, &t.CreatedAt, &t.UpdatedAt)
	return t, mapErr(err)
}

func (s *Postgres) UpdateTeam(ctx context.Context, orgID, id uuid.UUID, name *string, description *string) (Team, error) {
	var t Team
	err := s.pool.QueryRow(ctx, `
		update teams set
			name = coalesce($3, name),
			description = coalesce($4, description),
			updated_at = now()
		where org_id = $1 and id = $2
		returning id, org_id, name, description, created_at, updated_at`,
		orgID, id, name, description,
	).Scan(&t.ID, &t.OrgID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	return t, mapErr(err)
}

func (s *Postgres) DeleteTeam(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `delete from teams where org_id = $1 and id = $2`, orgID, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Employees

const employeeCols = `
	e.id, e.org_id, e.team_id, e.role_id, e.email, e.full_name, e.password_hash,
	e.status, r.name, t.name, e.last_login_at, e.created_at, e.updated_at`

const employeeJoin = `
	from employees e
	join roles r on r.id = e.role_id
	left join teams t on t.id = e.team_id`

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.OrgID, &e.TeamID, &e.RoleID, &e.Email, &e.FullName,
		&e.PasswordHash, &e.Status, &e.RoleName, &e.TeamName, &e.LastLoginAt,
		&e.CreatedAt, &e.UpdatedAt)
	return e, mapErr(err)
}

func (s *Postgres) CreateEmployee(ctx context.Context, p CreateEmployeeParams) (Employee, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		insert into employees (org_id, team_id, role_id, email, full_name, password_hash)
		values ($1, $2, $3, $4, $5, $6)
		returning id`,
		p.OrgID, p.TeamID, p.RoleID, strings.ToLower(p.Email), p.FullName, p.PasswordHash,
	).Scan(&id)
	if err != nil {
		return Employee{}, mapErr(err)
	}
	return s.GetEmployeeByID(ctx, p.OrgID, id)
}

func (s *Postgres) GetEmployeeByID(ctx context.Context, orgID, id uuid.UUID) (Employee, error) {
	return scanEmployee(s.pool.QueryRow(ctx,
		`select `+employeeCols+employeeJoin+` where e.org_id = $1 and e.id = $2`, orgID, id))
}

func (s *Postgres) GetEmployeeByEmail(ctx context.Context, email string) (Employee, error) {
	return scanEmployee(s.pool.QueryRow(ctx,
		`select `+employeeCols+employeeJoin+` where e.email = $1`, strings.ToLower(email)))
}

func (s *Postgres) ListEmployees(ctx context.Context, orgID uuid.UUID, teamID *uuid.UUID, status string) ([]Employee, error) {
	q := `select ` + employeeCols + employeeJoin + ` where e.org_id = $1`
	args := []any{orgID}
	if teamID != nil {
		args = append(args, *teamID)
		q += fmt.Sprintf(" and e.team_id = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		q += fmt.Sprintf(" and e.status = $%d", len(args))
	}
	q += " order by e.full_name"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Postgres) UpdateEmployee(ctx context.Context, orgID, id uuid.UUID, p UpdateEmployeeParams) (Employee, error) {
	q := `update employees set updated_at = now()`
	args := []any{orgID, id}
	if p.FullName != nil {
		args = append(args, *p.FullName)
		q += fmt.Sprintf(", full_name = $%d", len(args))
	}
	if p.ClearTeam {
		q += ", team_id = null"
	} else if p.TeamID != nil {
		args = append(args, *p.TeamID)
		q += fmt.Sprintf(", team_id = $%d", len(args))
	}
	if p.RoleID != nil {
		args = append(args, *p.RoleID)
		q += fmt.Sprintf(", role_id = $%d", len(args))
	}
	if p.Status != nil {
		args = append(args, *p.Status)
		q += fmt.Sprintf(", status = $%d", len(args))
	}
	q += ` where org_id = $1 and id = $2`

	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return Employee{}, mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return Employee{}, ErrNotFound
	}
	return s.GetEmployeeByID(ctx, orgID, id)
}

func (s *Postgres) DeleteEmployee(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `delete from employees where org_id = $1 and id = $2`, orgID, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) UpdateEmployeePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := s.pool.Exec(ctx,
		`update employees set password_hash = $2, updated_at = now() where id = $1`, id, passwordHash)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) TouchEmployeeLogin(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`update employees set last_login_at = now() where id = $1`, id)
	return mapErr(err)
}

// Sessions

func (s *Postgres) CreateSession(ctx context.Context, employeeID uuid.UUID, tokenHash string, ip, userAgent *string, expiresAt time.Time) (Session, error) {
	var sess Session
	err := s.pool.QueryRow(ctx, `
		insert into sessions (employee_id, token_hash, ip_address, user_agent, expires_at)
		values ($1, $2, $3, $4, $5)
		returning id, employee_id, token_hash, ip_address, user_agent, expires_at, created_at`,
		employeeID, tokenHash, ip, userAgent, expiresAt,
	).Scan(&sess.ID, &sess.EmployeeID, &sess.TokenHash, &sess.IPAddress, &sess.UserAgent, &sess.ExpiresAt, &sess.CreatedAt)
	return sess, mapErr(err)
}

func (s *Postgres) GetSessionByTokenHash(ctx context.Context, tokenHash string) (Session, error) {
	var sess Session
	err := s.pool.QueryRow(ctx, `
		select id, employee_id, token_hash, ip_address, user_agent, expires_at, created_at
		from sessions where token_hash = $1 and expires_at > now()`, tokenHash,
	).Scan(&sess.ID, &sess.EmployeeID, &sess.TokenHash, &sess.IPAddress, &sess.UserAgent, &sess.ExpiresAt, &sess.CreatedAt)
	return sess, mapErr(err)
}

func (s *Postgres) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := s.pool.Exec(ctx, `delete from sessions where token_hash = $1`, tokenHash)
	return mapErr(err)
}

func (s *Postgres) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `delete from sessions where expires_at <= now()`)
	return tag.RowsAffected(), mapErr(err)
}

// Password resets

func (s *Postgres) CreatePasswordResetToken(ctx context.Context, employeeID uuid.UUID, token string, expiresAt time.Time) (PasswordResetToken, error) {
	var t PasswordResetToken
	err := s.pool.QueryRow(ctx, `
		insert into password_reset_tokens (employee_id, token, expires_at)
		values ($1, $2, $3)
		returning id, employee_id, token, used_at, expires_at, created_at`,
		employeeID, token, expiresAt,
	).Scan(&t.ID, &t.EmployeeID, &t.Token, &t.UsedAt, &t.ExpiresAt, &t.CreatedAt)
	return t, mapErr(err)
}

func (s *Postgres) GetPasswordResetToken(ctx context.Context, token string) (PasswordResetToken, error) {
	var t PasswordResetToken
	err := s.pool.QueryRow(ctx, `
		select id, employee_id, token, used_at, expires_at, created_at
		from password_reset_tokens where token = $1`, token,
	).Scan(&t.ID, &t.EmployeeID, &t.Token, &t.UsedAt, &t.ExpiresAt, &t.CreatedAt)
	return t, mapErr(err)
}

func (s *Postgres) MarkPasswordResetTokenUsed(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`update password_reset_tokens set used_at = now() where id = $1 and used_at is null`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) DeleteExpiredPasswordResetTokens(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `delete from password_reset_tokens where expires_at <= now()`)
	return tag.RowsAffected(), mapErr(err)
}

// Invitations

const invitationCols = `
	id, org_id, inviter_id, email, role_id, team_id, token, status,
	accepted_by, accepted_at, expires_at, created_at, updated_at`

func scanInvitation(row pgx.Row) (Invitation, error) {
	var inv Invitation
	err := row.Scan(&inv.ID, &inv.OrgID, &inv.InviterID, &inv.Email, &inv.RoleID,
		&inv.TeamID, &inv.Token, &inv.Status, &inv.AcceptedBy, &inv.AcceptedAt,
		&inv.ExpiresAt, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, mapErr(err)
}

func (s *Postgres) CreateInvitation(ctx context.Context, p CreateInvitationParams) (Invitation, error) {
	return scanInvitation(s.pool.QueryRow(ctx, `
		insert into invitations (org_id, inviter_id, email, role_id, team_id, token, expires_at)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning `+invitationCols,
		p.OrgID, p.InviterID, strings.ToLower(p.Email), p.RoleID, p.TeamID, p.Token, p.ExpiresAt))
}

func (s *Postgres) ListInvitations(ctx context.Context, orgID uuid.UUID, status string) ([]Invitation, error) {
	q := `select ` + invitationCols + ` from invitations where org_id = $1`
	args := []any{orgID}
	if status != "" {
		args = append(args, status)
		q += fmt.Sprintf(" and status = $%d", len(args))
	}
	q += " order by created_at desc"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *Postgres) GetInvitationByID(ctx context.Context, orgID, id uuid.UUID) (Invitation, error) {
	return scanInvitation(s.pool.QueryRow(ctx,
		`select `+invitationCols+` from invitations where org_id = $1 and id = $2`, orgID, id))
}

func (s *Postgres) GetInvitationByToken(ctx context.Context, token string) (Invitation, error) {
	return scanInvitation(s.pool.QueryRow(ctx,
		`select `+invitationCols+` from invitations where token = $1`, token))
}

func (s *Postgres) CountInvitationsSince(ctx context.Context, orgID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`select count(*) from invitations where org_id = $1 and created_at >= $2`, orgID, since,
	).Scan(&n)
	return n, mapErr(err)
}

func (s *Postgres) HasPendingInvitation(ctx context.Context, orgID uuid.UUID, email string) (bool, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		select count(*) from invitations
		where org_id = $1 and email = $2 and status = 'pending' and expires_at > now()`,
		orgID, strings.ToLower(email),
	).Scan(&n)
	return n > 0, mapErr(err)
}

func (s *Postgres) SetInvitationStatus(ctx context.Context, id uuid.UUID, status string, acceptedBy *uuid.UUID) (Invitation, error) {
	return scanInvitation(s.pool.QueryRow(ctx, `
		update invitations set
			status = $2,
			accepted_by = coalesce($3, accepted_by),
			accepted_at = case when $2 = 'accepted' then now() else accepted_at end,
			updated_at = now()
		where id = $1
		returning `+invitationCols,
		id, status, acceptedBy))
}

func (s *Postgres) ExpireOverdueInvitations(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		update invitations set status = 'expired', updated_at = now()
		where status = 'pending' and expires_at <= now()`)
	return tag.RowsAffected(), mapErr(err)
}

// Agents

const agentCols = `
	id, name, type, provider, llm_provider, llm_model, description,
	is_public, capabilities, default_config, created_at, updated_at`

func scanAgent(row pgx.Row) (Agent, error) {
	var a Agent
	err := row.Scan(&a.ID, &a.Name, &a.Type, &a.Provider, &a.LLMProvider, &a.LLMModel,
		&a.Description, &a.IsPublic, &a.Capabilities, &a.DefaultConfig, &a.CreatedAt, &a.UpdatedAt)
	return a, mapErr(err)
}

func (s *Postgres) ListAgents(ctx context.Context) ([]Agent, error) {
	rows, err := s.pool.Query(ctx, `select `+agentCols+` from agents where is_public order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Postgres) GetAgentByID(ctx context.Context, id uuid.UUID) (Agent, error) {
	return scanAgent(s.pool.QueryRow(ctx, `select `+agentCols+` from agents where id = $1`, id))
}

// Agent configs

func (s *Postgres) UpsertOrgAgentConfig(ctx context.Context, orgID, agentID uuid.UUID, cfg json.RawMessage, isEnabled bool) (OrgAgentConfig, error) {
	var c OrgAgentConfig
	err := s.pool.QueryRow(ctx, `
		insert into org_agent_configs (org_id, agent_id, config, is_enabled)
		values ($1, $2, $3, $4)
		on conflict (org_id, agent_id) do update set
			config = excluded.config,
			is_enabled = excluded.is_enabled,
			updated_at = now()
		returning id, org_id, agent_id, config, is_enabled, created_at, updated_at`,
		orgID, agentID, cfg, isEnabled,
	).Scan(&c.ID, &c.OrgID, &c.AgentID, &c.Config, &c.IsEnabled, &c.CreatedAt, &c.UpdatedAt)
	return c, mapErr(err)
}

func (s *Postgres) GetOrgAgentConfig(ctx context.Context, orgID, agentID uuid.UUID) (OrgAgentConfig, error) {
	var c OrgAgentConfig
	err := s.pool.QueryRow(ctx, `
		select id, org_id, agent_id, config, is_enabled, created_at, updated_at
		from org_agent_configs where org_id = $1 and agent_id = $2`, orgID, agentID,
	).Scan(&c.ID, &c.OrgID, &c.AgentID, &c.Config, &c.IsEnabled, &c.CreatedAt, &c.UpdatedAt)
	return c, mapErr(err)
}

func (s *Postgres) ListOrgAgentConfigs(ctx context.Context, orgID uuid.UUID) ([]OrgAgentConfig, error) {
	rows, err := s.pool.Query(ctx, `
		select id, org_id, agent_id, config, is_enabled, created_at, updated_at
		from org_agent_configs where org_id = $1 order by created_at`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrgAgentConfig
	for rows.Next() {
		var c OrgAgentConfig
		if err := rows.Scan(&c.ID, &c.OrgID, &c.AgentID, &c.Config, &c.IsEnabled, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Postgres) DeleteOrgAgentConfig(ctx context.Context, orgID, agentID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`delete from org_agent_configs where org_id = $1 and agent_id = $2`, orgID, agentID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) UpsertTeamAgentConfig(ctx context.Context, teamID, agentID uuid.UUID, cfg json.RawMessage, isEnabled bool) (TeamAgentConfig, error) {
	var c TeamAgentConfig
	err := s.pool.QueryRow(ctx, `
		insert into team_agent_configs (team_id, agent_id, config_override, is_enabled)
		values ($1, $2, $3, $4)
		on conflict (team_id, agent_id) do update set
			config_override = excluded.config_override,
			is_enabled = excluded.is_enabled,
			updated_at = now()
		returning id, team_id, agent_id, config_override, is_enabled, created_at, updated_at`,
		teamID, agentID, cfg, isEnabled,
	).Scan(&c.ID, &c.TeamID, &c.AgentID, &c.ConfigOverride, &c.IsEnabled, &c.CreatedAt, &c.UpdatedAt)
	return c, mapErr(err)
}

func (s *Postgres) GetTeamAgentConfig(ctx context.Context, teamID, agentID uuid.UUID) (TeamAgentConfig, error) {
	var c TeamAgentConfig
	err := s.pool.QueryRow(ctx, `
		select id, team_id, agent_id, config_override, is_enabled, created_at, updated_at
		from team_agent_configs where team_id = $1 and agent_id = $2`, teamID, agentID,
	).Scan(&c.ID, &c.TeamID, &c.AgentID, &c.ConfigOverride, &c.IsEnabled, &c.CreatedAt, &c.UpdatedAt)
	return c, mapErr(err)
}

func (s *Postgres) ListTeamAgentConfigs(ctx context.Context, teamID uuid.UUID) ([]TeamAgentConfig, error) {
	rows, err := s.pool.Query(ctx, `
		select id, team_id, agent_id, config_override, is_enabled, created_at, updated_at
		from team_agent_configs where team_id = $1 order by created_at`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TeamAgentConfig
	for rows.Next() {
		var c TeamAgentConfig
		if err := rows.Scan(&c.ID, &c.TeamID, &c.AgentID, &c.ConfigOverride, &c.IsEnabled, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Postgres) DeleteTeamAgentConfig(ctx context.Context, teamID, agentID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`delete from team_agent_configs where team_id = $1 and agent_id = $2`, teamID, agentID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const employeeConfigCols = `
	id, employee_id, agent_id, config_override, override_reason, is_enabled,
	sync_token, last_synced_at, created_at, updated_at`

func scanEmployeeConfig(row pgx.Row) (EmployeeAgentConfig, error) {
	var c EmployeeAgentConfig
	err := row.Scan(&c.ID, &c.EmployeeID, &c.AgentID, &c.ConfigOverride, &c.OverrideReason,
		&c.IsEnabled, &c.SyncToken, &c.LastSyncedAt, &c.CreatedAt, &c.UpdatedAt)
	return c, mapErr(err)
}

func (s *Postgres) UpsertEmployeeAgentConfig(ctx context.Context, employeeID, agentID uuid.UUID, cfg json.RawMessage, overrideReason *string, isEnabled bool) (EmployeeAgentConfig, error) {
	return scanEmployeeConfig(s.pool.QueryRow(ctx, `
		insert into employee_agent_configs (employee_id, agent_id, config_override, override_reason, is_enabled)
		values ($1, $2, $3, $4, $5)
		on conflict (employee_id, agent_id) do update set
			config_override = excluded.config_override,
			override_reason = excluded.override_reason,
			is_enabled = excluded.is_enabled,
			updated_at = now()
		returning `+employeeConfigCols,
		employeeID, agentID, cfg, overrideReason, isEnabled))
}

func (s *Postgres) GetEmployeeAgentConfig(ctx context.Context, employeeID, agentID uuid.UUID) (EmployeeAgentConfig, error) {
	return scanEmployeeConfig(s.pool.QueryRow(ctx,
		`select `+employeeConfigCols+` from employee_agent_configs where employee_id = $1 and agent_id = $2`,
		employeeID, agentID))
}

func (s *Postgres) ListEmployeeAgentConfigs(ctx context.Context, employeeID uuid.UUID) ([]EmployeeAgentConfig, error) {
	rows, err := s.pool.Query(ctx,
		`select `+employeeConfigCols+` from employee_agent_configs where employee_id = $1 order by created_at`,
		employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EmployeeAgentConfig
	for rows.Next() {
		c, err := scanEmployeeConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Postgres) DeleteEmployeeAgentConfig(ctx context.Context, employeeID, agentID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`delete from employee_agent_configs where employee_id = $1 and agent_id = $2`, employeeID, agentID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) SetEmployeeSyncState(ctx context.Context, employeeID, agentID uuid.UUID, syncToken string, syncedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		insert into employee_agent_configs (employee_id, agent_id, sync_token, last_synced_at)
		values ($1, $2, $3, $4)
		on conflict (employee_id, agent_id) do update set
			sync_token = excluded.sync_token,
			last_synced_at = excluded.last_synced_at,
			updated_at = now()`,
		employeeID, agentID, syncToken, syncedAt)
	return mapErr(err)
}

// Tool policies

const policyCols = `
	id, org_id, team_id, employee_id, tool_name, action, reason, conditions,
	created_by, created_at, updated_at`

func scanPolicy(row pgx.Row) (ToolPolicy, error) {
	var p ToolPolicy
	err := row.Scan(&p.ID, &p.OrgID, &p.TeamID, &p.EmployeeID, &p.ToolName, &p.Action,
		&p.Reason, &p.Conditions, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, mapErr(err)
}

func (s *Postgres) CreateToolPolicy(ctx context.Context, p CreateToolPolicyParams) (ToolPolicy, error) {
	return scanPolicy(s.pool.QueryRow(ctx, `
		insert into tool_policies (org_id, team_id, employee_id, tool_name, action, reason, conditions, created_by)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning `+policyCols,
		p.OrgID, p.TeamID, p.EmployeeID, p.ToolName, p.Action, p.Reason, p.Conditions, p.CreatedBy))
}

func (s *Postgres) ListToolPolicies(ctx context.Context, orgID uuid.UUID) ([]ToolPolicy, error) {
	rows, err := s.pool.Query(ctx,
		`select `+policyCols+` from tool_policies where org_id = $1 order by created_at desc`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ToolPolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Postgres) GetToolPolicy(ctx context.Context, orgID, id uuid.UUID) (ToolPolicy, error) {
	return scanPolicy(s.pool.QueryRow(ctx,
		`select `+policyCols+` from tool_policies where org_id = $1 and id = $2`, orgID, id))
}

func (s *Postgres) UpdateToolPolicy(ctx context.Context, orgID, id uuid.UUID, p UpdateToolPolicyParams) (ToolPolicy, error) {
	return scanPolicy(s.pool.QueryRow(ctx, `
		update tool_policies set
			action = coalesce($3, action),
			reason = coalesce($4, reason),
			conditions = coalesce($5, conditions),
			updated_at = now()
		where org_id = $1 and id = $2
		returning `+policyCols,
		orgID, id, p.Action, p.Reason, p.Conditions))
}

func (s *Postgres) DeleteToolPolicy(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `delete from tool_policies where org_id = $1 and id = $2`, orgID, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Activity logs

func (s *Postgres) InsertActivityLog(ctx context.Context, p InsertActivityLogParams) (ActivityLog, error) {
	payload := p.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	var l ActivityLog
	err := s.pool.QueryRow(ctx, `
		insert into activity_logs (org_id, employee_id, event_type, event_category, payload)
		values ($1, $2, $3, $4, $5)
		returning id, org_id, employee_id, event_type, event_category, payload, created_at`,
		p.OrgID, p.EmployeeID, p.EventType, p.EventCategory, payload,
	).Scan(&l.ID, &l.OrgID, &l.EmployeeID, &l.EventType, &l.EventCategory, &l.Payload, &l.CreatedAt)
	return l, mapErr(err)
}

func (s *Postgres) ListActivityLogs(ctx context.Context, orgID uuid.UUID, f ActivityLogFilter) ([]ActivityLog, int, error) {
	where := `where org_id = $1`
	args := []any{orgID}
	if f.EmployeeID != nil {
		args = append(args, *f.EmployeeID)
		where += fmt.Sprintf(" and employee_id = $%d", len(args))
	}
	if f.EventCategory != "" {
		args = append(args, f.EventCategory)
		where += fmt.Sprintf(" and event_category = $%d", len(args))
	}
	if f.EventType != "" {
		args = append(args, f.EventType)
		where += fmt.Sprintf(" and event_type = $%d", len(args))
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		where += fmt.Sprintf(" and created_at >= $%d", len(args))
	}
	if f.Until != nil {
		args = append(args, *f.Until)
		where += fmt.Sprintf(" and created_at < $%d", len(args))
	}

	var total int
	if err := s.pool.QueryRow(ctx, `select count(*) from activity_logs `+where, args...).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, f.Offset)
	q := fmt.Sprintf(`
		select id, org_id, employee_id, event_type, event_category, payload, created_at
		from activity_logs %s order by created_at desc limit $%d offset $%d`,
		where, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []ActivityLog
	for rows.Next() {
		var l ActivityLog
		if err := rows.Scan(&l.ID, &l.OrgID, &l.EmployeeID, &l.EventType, &l.EventCategory, &l.Payload, &l.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

func (s *Postgres) ListActivityLogsBefore(ctx context.Context, cutoff time.Time, limit int) ([]ActivityLog, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.pool.Query(ctx, `
		select id, org_id, employee_id, event_type, event_category, payload, created_at
		from activity_logs where created_at < $1 order by created_at limit $2`,
		cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActivityLog
	for rows.Next() {
		var l ActivityLog
		if err := rows.Scan(&l.ID, &l.OrgID, &l.EmployeeID, &l.EventType, &l.EventCategory, &l.Payload, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Postgres) DeleteActivityLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `delete from activity_logs where created_at < $1`, cutoff)
	return tag.RowsAffected(), mapErr(err)
}
