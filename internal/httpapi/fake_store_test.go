package httpapi

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"arfa/internal/store"
)

// fakeStore is an in-memory store.Store. Every method bumps calls so tests
// can assert that rejected requests never reach persistence.
type fakeStore struct {
	mu    sync.Mutex
	calls int

	orgs            map[uuid.UUID]store.Organization
	roles           map[uuid.UUID]store.Role
	teams           map[uuid.UUID]store.Team
	employees       map[uuid.UUID]store.Employee
	sessions        map[string]store.Session
	resetTokens     map[string]store.PasswordResetToken
	invitations     map[uuid.UUID]store.Invitation
	agents          map[uuid.UUID]store.Agent
	orgConfigs      map[string]store.OrgAgentConfig
	teamConfigs     map[string]store.TeamAgentConfig
	employeeConfigs map[string]store.EmployeeAgentConfig
	policies        map[uuid.UUID]store.ToolPolicy
	logs            []store.ActivityLog
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	f := &fakeStore{
		orgs:            map[uuid.UUID]store.Organization{},
		roles:           map[uuid.UUID]store.Role{},
		teams:           map[uuid.UUID]store.Team{},
		employees:       map[uuid.UUID]store.Employee{},
		sessions:        map[string]store.Session{},
		resetTokens:     map[string]store.PasswordResetToken{},
		invitations:     map[uuid.UUID]store.Invitation{},
		agents:          map[uuid.UUID]store.Agent{},
		orgConfigs:      map[string]store.OrgAgentConfig{},
		teamConfigs:     map[string]store.TeamAgentConfig{},
		employeeConfigs: map[string]store.EmployeeAgentConfig{},
		policies:        map[uuid.UUID]store.ToolPolicy{},
	}
	for _, name := range []string{"admin", "manager", "developer"} {
		role := store.Role{ID: uuid.New(), Name: name, Permissions: json.RawMessage(`[]`)}
		f.roles[role.ID] = role
	}
	return f
}

func (f *fakeStore) bump() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func pairKey(a, b uuid.UUID) string { return a.String() + "/" + b.String() }

// Organizations

func (f *fakeStore) CreateOrganization(_ context.Context, name, slug string) (store.Organization, error) {
	f.bump()
	for _, o := range f.orgs {
		if o.Slug == slug {
			return store.Organization{}, store.ErrConflict
		}
	}
	o := store.Organization{ID: uuid.New(), Name: name, Slug: slug, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	f.orgs[o.ID] = o
	return o, nil
}

func (f *fakeStore) GetOrganizationByID(_ context.Context, id uuid.UUID) (store.Organization, error) {
	f.bump()
	if o, ok := f.orgs[id]; ok {
		return o, nil
	}
	return store.Organization{}, store.ErrNotFound
}

func (f *fakeStore) GetOrganizationBySlug(_ context.Context, slug string) (store.Organization, error) {
	f.bump()
	for _, o := range f.orgs {
		if o.Slug == slug {
			return o, nil
		}
	}
	return store.Organization{}, store.ErrNotFound
}

// Roles

func (f *fakeStore) ListRoles(context.Context) ([]store.Role, error) {
	f.bump()
	var out []store.Role
	for _, r := range f.roles {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) GetRoleByID(_ context.Context, id uuid.UUID) (store.Role, error) {
	f.bump()
	if r, ok := f.roles[id]; ok {
		return r, nil
	}
	return store.Role{}, store.ErrNotFound
}

func (f *fakeStore) GetRoleByName(_ context.Context, name string) (store.Role, error) {
	f.bump()
	for _, r := range f.roles {
		if r.Name == name {
			return r, nil
		}
	}
	return store.Role{}, store.ErrNotFound
}

// Teams

func (f *fakeStore) CreateTeam(_ context.Context, orgID uuid.UUID, name string, description *string) (store.Team, error) {
	f.bump()
	for _, t := range f.teams {
		if t.OrgID == orgID && t.Name == name {
			return store.Team{}, store.ErrConflict
		}
	}
	t := store.Team{ID: uuid.New(), OrgID: orgID, Name: name, Description: description, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	f.teams[t.ID] = t
	return t, nil
}

func (f *fakeStore) ListTeams(_ context.Context, orgID uuid.UUID) ([]store.Team, error) {
	f.bump()
	var out []store.Team
	for _, t := range f.teams {
		if t.OrgID == orgID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) GetTeam(_ context.Context, orgID, id uuid.UUID) (store.Team, error) {
	f.bump()
	if t, ok := f.teams[id]; ok && t.OrgID == orgID {
		return t, nil
	}
	return store.Team{}, store.ErrNotFound
}

func (f *fakeStore) UpdateTeam(_ context.Context, orgID, id uuid.UUID, name, description *string) (store.Team, error) {
	f.bump()
	t, ok := f.teams[id]
	if !ok || t.OrgID != orgID {
		return store.Team{}, store.ErrNotFound
	}
	if name != nil {
		t.Name = *name
	}
	if description != nil {
		t.Description = description
	}
	t.UpdatedAt = time.Now()
	f.teams[id] = t
	return t, nil
}

func (f *fakeStore) DeleteTeam(_ context.Context, orgID, id uuid.UUID) error {
	f.bump()
	if t, ok := f.teams[id]; ok && t.OrgID == orgID {
		delete(f.teams, id)
		return nil
	}
	return store.ErrNotFound
}

// Employees

func (f *fakeStore) CreateEmployee(_ context.Context, p store.CreateEmployeeParams) (store.Employee, error) {
	f.bump()
	email := strings.ToLower(p.Email)
	for _, e := range f.employees {
		if e.Email == email {
			return store.Employee{}, store.ErrConflict
		}
	}
	role, ok := f.roles[p.RoleID]
	if !ok {
		return store.Employee{}, store.ErrNotFound
	}
	e := store.Employee{
		ID: uuid.New(), OrgID: p.OrgID, TeamID: p.TeamID, RoleID: p.RoleID,
		Email: email, FullName: p.FullName, PasswordHash: p.PasswordHash,
		Status: "active", RoleName: role.Name, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	f.employees[e.ID] = e
	return e, nil
}

func (f *fakeStore) GetEmployeeByID(_ context.Context, orgID, id uuid.UUID) (store.Employee, error) {
	f.bump()
	if e, ok := f.employees[id]; ok && e.OrgID == orgID {
		return e, nil
	}
	return store.Employee{}, store.ErrNotFound
}

func (f *fakeStore) GetEmployeeByEmail(_ context.Context, email string) (store.Employee, error) {
	f.bump()
	email = strings.ToLower(email)
	for _, e := range f.employees {
		if e.Email == email {
			return e, nil
		}
	}
	return store.Employee{}, store.ErrNotFound
}

func (f *fakeStore) ListEmployees(_ context.Context, orgID uuid.UUID, teamID *uuid.UUID, status string) ([]store.Employee, error) {
	f.bump()
	var out []store.Employee
	for _, e := range f.employees {
		if e.OrgID != orgID {
			continue
		}
		if teamID != nil && (e.TeamID == nil || *e.TeamID != *teamID) {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) UpdateEmployee(_ context.Context, orgID, id uuid.UUID, p store.UpdateEmployeeParams) (store.Employee, error) {
	f.bump()
	e, ok := f.employees[id]
	if !ok || e.OrgID != orgID {
		return store.Employee{}, store.ErrNotFound
	}
	if p.FullName != nil {
		e.FullName = *p.FullName
	}
	if p.ClearTeam {
		e.TeamID = nil
	} else if p.TeamID != nil {
		e.TeamID = p.TeamID
	}
	if p.RoleID != nil {
		role, ok := f.roles[*p.RoleID]
		if !ok {
			return store.Employee{}, store.ErrNotFound
		}
		e.RoleID = role.ID
		e.RoleName = role.Name
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	e.UpdatedAt = time.Now()
	f.employees[id] = e
	return e, nil
}

func (f *fakeStore) DeleteEmployee(_ context.Context, orgID, id uuid.UUID) error {
	f.bump()
	if e, ok := f.employees[id]; ok && e.OrgID == orgID {
		delete(f.employees, id)
		return nil
	}
	return store.ErrNotFound
}

func (f *fakeStore) UpdateEmployeePassword(_ context.Context, id uuid.UUID, hash string) error {
	f.bump()
	e, ok := f.employees[id]
	if !ok {
		return store.ErrNotFound
	}
	e.PasswordHash = hash
	f.employees[id] = e
	return nil
}

func (f *fakeStore) TouchEmployeeLogin(_ context.Context, id uuid.UUID) error {
	f.bump()
	e, ok := f.employees[id]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now()
	e.LastLoginAt = &now
	f.employees[id] = e
	return nil
}

// Sessions

func (f *fakeStore) CreateSession(_ context.Context, employeeID uuid.UUID, tokenHash string, ip, ua *string, expiresAt time.Time) (store.Session, error) {
	f.bump()
	s := store.Session{ID: uuid.New(), EmployeeID: employeeID, TokenHash: tokenHash, IPAddress: ip, UserAgent: ua, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	f.sessions[tokenHash] = s
	return s, nil
}

func (f *fakeStore) GetSessionByTokenHash(_ context.Context, tokenHash string) (store.Session, error) {
	f.bump()
	if s, ok := f.sessions[tokenHash]; ok && time.Now().Before(s.ExpiresAt) {
		return s, nil
	}
	return store.Session{}, store.ErrNotFound
}

func (f *fakeStore) DeleteSessionByTokenHash(_ context.Context, tokenHash string) error {
	f.bump()
	delete(f.sessions, tokenHash)
	return nil
}

func (f *fakeStore) DeleteExpiredSessions(context.Context) (int64, error) {
	f.bump()
	var n int64
	for k, s := range f.sessions {
		if time.Now().After(s.ExpiresAt) {
			delete(f.sessions, k)
			n++
		}
	}
	return n, nil
}

// Password resets

func (f *fakeStore) CreatePasswordResetToken(_ context.Context, employeeID uuid.UUID, token string, expiresAt time.Time) (store.PasswordResetToken, error) {
	f.bump()
	t := store.PasswordResetToken{ID: uuid.New(), EmployeeID: employeeID, Token: token, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	f.resetTokens[token] = t
	return t, nil
}

func (f *fakeStore) GetPasswordResetToken(_ context.Context, token string) (store.PasswordResetToken, error) {
	f.bump()
	if t, ok := f.resetTokens[token]; ok {
		return t, nil
	}
	return store.PasswordResetToken{}, store.ErrNotFound
}

func (f *fakeStore) MarkPasswordResetTokenUsed(_ context.Context, id uuid.UUID) error {
	f.bump()
	for k, t := range f.resetTokens {
		if t.ID == id {
			now := time.Now()
			t.UsedAt = &now
			f.resetTokens[k] = t
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) DeleteExpiredPasswordResetTokens(context.Context) (int64, error) {
	f.bump()
	return 0, nil
}

// Invitations

func (f *fakeStore) CreateInvitation(_ context.Context, p store.CreateInvitationParams) (store.Invitation, error) {
	f.bump()
	inv := store.Invitation{
		ID: uuid.New(), OrgID: p.OrgID, InviterID: p.InviterID,
		Email: strings.ToLower(p.Email), RoleID: p.RoleID, TeamID: p.TeamID,
		Token: p.Token, Status: store.InvitationPending, ExpiresAt: p.ExpiresAt,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	f.invitations[inv.ID] = inv
	return inv, nil
}

func (f *fakeStore) ListInvitations(_ context.Context, orgID uuid.UUID, status string) ([]store.Invitation, error) {
	f.bump()
	var out []store.Invitation
	for _, inv := range f.invitations {
		if inv.OrgID == orgID && (status == "" || inv.Status == status) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *fakeStore) GetInvitationByID(_ context.Context, orgID, id uuid.UUID) (store.Invitation, error) {
	f.bump()
	if inv, ok := f.invitations[id]; ok && inv.OrgID == orgID {
		return inv, nil
	}
	return store.Invitation{}, store.ErrNotFound
}

func (f *fakeStore) GetInvitationByToken(_ context.Context, token string) (store.Invitation, error) {
	f.bump()
	for _, inv := range f.invitations {
		if inv.Token == token {
			return inv, nil
		}
	}
	return store.Invitation{}, store.ErrNotFound
}

func (f *fakeStore) CountInvitationsSince(_ context.Context, orgID uuid.UUID, since time.Time) (int, error) {
	f.bump()
	n := 0
	for _, inv := range f.invitations {
		if inv.OrgID == orgID && !inv.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) HasPendingInvitation(_ context.Context, orgID uuid.UUID, email string) (bool, error) {
	f.bump()
	email = strings.ToLower(email)
	for _, inv := range f.invitations {
		if inv.OrgID == orgID && inv.Email == email && inv.Status == store.InvitationPending && time.Now().Before(inv.ExpiresAt) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) SetInvitationStatus(_ context.Context, id uuid.UUID, status string, acceptedBy *uuid.UUID) (store.Invitation, error) {
	f.bump()
	inv, ok := f.invitations[id]
	if !ok {
		return store.Invitation{}, store.ErrNotFound
	}
	inv.Status = status
	if acceptedBy != nil {
		inv.AcceptedBy = acceptedBy
	}
	if status == store.InvitationAccepted {
		now := time.Now()
		inv.AcceptedAt = &now
	}
	inv.UpdatedAt = time.Now()
	f.invitations[id] = inv
	return inv, nil
}

func (f *fakeStore) ExpireOverdueInvitations(context.Context) (int64, error) {
	f.bump()
	var n int64
	for id, inv := range f.invitations {
		if inv.Status == store.InvitationPending && time.Now().After(inv.ExpiresAt) {
			inv.Status = store.InvitationExpired
			f.invitations[id] = inv
			n++
		}
	}
	return n, nil
}

// Agents

func (f *fakeStore) ListAgents(context.Context) ([]store.Agent, error) {
	f.bump()
	var out []store.Agent
	for _, a := range f.agents {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeStore) GetAgentByID(_ context.Context, id uuid.UUID) (store.Agent, error) {
	f.bump()
	if a, ok := f.agents[id]; ok {
		return a, nil
	}
	return store.Agent{}, store.ErrNotFound
}

// Agent configs

func (f *fakeStore) UpsertOrgAgentConfig(_ context.Context, orgID, agentID uuid.UUID, cfg json.RawMessage, isEnabled bool) (store.OrgAgentConfig, error) {
	f.bump()
	key := pairKey(orgID, agentID)
	c, ok := f.orgConfigs[key]
	if !ok {
		c = store.OrgAgentConfig{ID: uuid.New(), OrgID: orgID, AgentID: agentID, CreatedAt: time.Now()}
	}
	c.Config = cfg
	c.IsEnabled = isEnabled
	c.UpdatedAt = time.Now()
	f.orgConfigs[key] = c
	return c, nil
}

func (f *fakeStore) GetOrgAgentConfig(_ context.Context, orgID, agentID uuid.UUID) (store.OrgAgentConfig, error) {
	f.bump()
	if c, ok := f.orgConfigs[pairKey(orgID, agentID)]; ok {
		return c, nil
	}
	return store.OrgAgentConfig{}, store.ErrNotFound
}

func (f *fakeStore) ListOrgAgentConfigs(_ context.Context, orgID uuid.UUID) ([]store.OrgAgentConfig, error) {
	f.bump()
	var out []store.OrgAgentConfig
	for _, c := range f.orgConfigs {
		if c.OrgID == orgID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteOrgAgentConfig(_ context.Context, orgID, agentID uuid.UUID) error {
	f.bump()
	key := pairKey(orgID, agentID)
	if _, ok := f.orgConfigs[key]; !ok {
		return store.ErrNotFound
	}
	delete(f.orgConfigs, key)
	return nil
}

func (f *fakeStore) UpsertTeamAgentConfig(_ context.Context, teamID, agentID uuid.UUID, cfg json.RawMessage, isEnabled bool) (store.TeamAgentConfig, error) {
	f.bump()
	key := pairKey(teamID, agentID)
	c, ok := f.teamConfigs[key]
	if !ok {
		c = store.TeamAgentConfig{ID: uuid.New(), TeamID: teamID, AgentID: agentID, CreatedAt: time.Now()}
	}
	c.ConfigOverride = cfg
	c.IsEnabled = isEnabled
	c.UpdatedAt = time.Now()
	f.teamConfigs[key] = c
	return c, nil
}

func (f *fakeStore) GetTeamAgentConfig(_ context.Context, teamID, agentID uuid.UUID) (store.TeamAgentConfig, error) {
	f.bump()
	if c, ok := f.teamConfigs[pairKey(teamID, agentID)]; ok {
		return c, nil
	}
	return store.TeamAgentConfig{}, store.ErrNotFound
}

func (f *fakeStore) ListTeamAgentConfigs(_ context.Context, teamID uuid.UUID) ([]store.TeamAgentConfig, error) {
	f.bump()
	var out []store.TeamAgentConfig
	for _, c := range f.teamConfigs {
		if c.TeamID == teamID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteTeamAgentConfig(_ context.Context, teamID, agentID uuid.UUID) error {
	f.bump()
	key := pairKey(teamID, agentID)
	if _, ok := f.teamConfigs[key]; !ok {
		return store.ErrNotFound
	}
	delete(f.teamConfigs, key)
	return nil
}

func (f *fakeStore) UpsertEmployeeAgentConfig(_ context.Context, employeeID, agentID uuid.UUID, cfg json.RawMessage, overrideReason *string, isEnabled bool) (store.EmployeeAgentConfig, error) {
	f.bump()
	key := pairKey(employeeID, agentID)
	c, ok := f.employeeConfigs[key]
	if !ok {
		c = store.EmployeeAgentConfig{ID: uuid.New(), EmployeeID: employeeID, AgentID: agentID, CreatedAt: time.Now()}
	}
	c.ConfigOverride = cfg
	c.OverrideReason = overrideReason
	c.IsEnabled = isEnabled
	c.UpdatedAt = time.Now()
	f.employeeConfigs[key] = c
	return c, nil
}

func (f *fakeStore) GetEmployeeAgentConfig(_ context.Context, employeeID, agentID uuid.UUID) (store.EmployeeAgentConfig, error) {
	f.bump()
	if c, ok := f.employeeConfigs[pairKey(employeeID, agentID)]; ok {
		return c, nil
	}
	return store.EmployeeAgentConfig{}, store.ErrNotFound
}

func (f *fakeStore) ListEmployeeAgentConfigs(_ context.Context, employeeID uuid.UUID) ([]store.EmployeeAgentConfig, error) {
	f.bump()
	var out []store.EmployeeAgentConfig
	for _, c := range f.employeeConfigs {
		if c.EmployeeID == employeeID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteEmployeeAgentConfig(_ context.Context, employeeID, agentID uuid.UUID) error {
	f.bump()
	key := pairKey(employeeID, agentID)
	if _, ok := f.employeeConfigs[key]; !ok {
		return store.ErrNotFound
	}
	delete(f.employeeConfigs, key)
	return nil
}

func (f *fakeStore) SetEmployeeSyncState(_ context.Context, employeeID, agentID uuid.UUID, syncToken string, syncedAt time.Time) error {
	f.bump()
	key := pairKey(employeeID, agentID)
	c, ok := f.employeeConfigs[key]
	if !ok {
		c = store.EmployeeAgentConfig{ID: uuid.New(), EmployeeID: employeeID, AgentID: agentID, ConfigOverride: json.RawMessage(`{}`), IsEnabled: true, CreatedAt: time.Now()}
	}
	c.SyncToken = &syncToken
	c.LastSyncedAt = &syncedAt
	c.UpdatedAt = time.Now()
	f.employeeConfigs[key] = c
	return nil
}

// Tool policies

func (f *fakeStore) CreateToolPolicy(_ context.Context, p store.CreateToolPolicyParams) (store.ToolPolicy, error) {
	f.bump()
	policy := store.ToolPolicy{
		ID: uuid.New(), OrgID: p.OrgID, TeamID: p.TeamID, EmployeeID: p.EmployeeID,
		ToolName: p.ToolName, Action: p.Action, Reason: p.Reason, Conditions: p.Conditions,
		CreatedBy: p.CreatedBy, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	f.policies[policy.ID] = policy
	return policy, nil
}

func (f *fakeStore) ListToolPolicies(_ context.Context, orgID uuid.UUID) ([]store.ToolPolicy, error) {
	f.bump()
	var out []store.ToolPolicy
	for _, p := range f.policies {
		if p.OrgID == orgID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) GetToolPolicy(_ context.Context, orgID, id uuid.UUID) (store.ToolPolicy, error) {
	f.bump()
	if p, ok := f.policies[id]; ok && p.OrgID == orgID {
		return p, nil
	}
	return store.ToolPolicy{}, store.ErrNotFound
}

func (f *fakeStore) UpdateToolPolicy(_ context.Context, orgID, id uuid.UUID, upd store.UpdateToolPolicyParams) (store.ToolPolicy, error) {
	f.bump()
	p, ok := f.policies[id]
	if !ok || p.OrgID != orgID {
		return store.ToolPolicy{}, store.ErrNotFound
	}
	if upd.Action != nil {
		p.Action = *upd.Action
	}
	if upd.Reason != nil {
		p.Reason = upd.Reason
	}
	if len(upd.Conditions) > 0 {
		p.Conditions = upd.Conditions
	}
	p.UpdatedAt = time.Now()
	f.policies[id] = p
	return p, nil
}

func (f *fakeStore) DeleteToolPolicy(_ context.Context, orgID, id uuid.UUID) error {
	f.bump()
	if p, ok := f.policies[id]; ok && p.OrgID == orgID {
		delete(f.policies, id)
		return nil
	}
	return store.ErrNotFound
}

// Activity logs

func (f *fakeStore) InsertActivityLog(_ context.Context, p store.InsertActivityLogParams) (store.ActivityLog, error) {
	f.bump()
	l := store.ActivityLog{
		ID: uuid.New(), OrgID: p.OrgID, EmployeeID: p.EmployeeID,
		EventType: p.EventType, EventCategory: p.EventCategory,
		Payload: p.Payload, CreatedAt: time.Now(),
	}
	f.logs = append(f.logs, l)
	return l, nil
}

func (f *fakeStore) ListActivityLogs(_ context.Context, orgID uuid.UUID, flt store.ActivityLogFilter) ([]store.ActivityLog, int, error) {
	f.bump()
	var matched []store.ActivityLog
	for _, l := range f.logs {
		if l.OrgID != orgID {
			continue
		}
		if flt.EmployeeID != nil && (l.EmployeeID == nil || *l.EmployeeID != *flt.EmployeeID) {
			continue
		}
		if flt.EventCategory != "" && l.EventCategory != flt.EventCategory {
			continue
		}
		if flt.EventType != "" && l.EventType != flt.EventType {
			continue
		}
		matched = append(matched, l)
	}
	total := len(matched)
	if flt.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[flt.Offset:]
	if flt.Limit > 0 && len(matched) > flt.Limit {
		matched = matched[:flt.Limit]
	}
	return matched, total, nil
}

func (f *fakeStore) ListActivityLogsBefore(_ context.Context, cutoff time.Time, limit int) ([]store.ActivityLog, error) {
	f.bump()
	var out []store.ActivityLog
	for _, l := range f.logs {
		if l.CreatedAt.Before(cutoff) {
			out = append(out, l)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteActivityLogsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.bump()
	var kept []store.ActivityLog
	var n int64
	for _, l := range f.logs {
		if l.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, l)
	}
	f.logs = kept
	return n, nil
}
