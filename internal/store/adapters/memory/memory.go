// Package memory implementa core.Repository sobre maps en memoria.
// Útil para desarrollo y testing; también respalda el driver "memory"
// del factory de store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/cogmesh/internal/domain/types"
	"github.com/dropDatabas3/cogmesh/internal/store/core"
)

type Store struct {
	mu sync.RWMutex

	scopes     map[string]*core.AuthorityScope // key: tenant|agent
	overrides  map[string]*core.AuthorityOverride
	consents   []core.ConsentRecord
	agentCons  []core.AgentConsentRecord
	prefs      map[string]*core.AgentConsentPreferences // key: tenant|user
	emergency  map[string]*core.EmergencyOverride
	agents     map[string]*core.Agent // key: tenant|agent
	authAudit  []core.AuthorityAuditRecord
	emergAudit []core.EmergencyOverrideAuditRecord
}

// New crea un Store vacío.
func New() *Store {
	return &Store{
		scopes:    make(map[string]*core.AuthorityScope),
		overrides: make(map[string]*core.AuthorityOverride),
		prefs:     make(map[string]*core.AgentConsentPreferences),
		emergency: make(map[string]*core.EmergencyOverride),
		agents:    make(map[string]*core.Agent),
	}
}

func pairKey(a, b string) string { return a + "|" + b }

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close()                         {}

// ------- Authority -------

func (s *Store) GetAuthorityScope(ctx context.Context, tenantID, agentID string) (*core.AuthorityScope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scopes[pairKey(tenantID, agentID)]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *sc
	return &cp, nil
}

func (s *Store) UpsertAuthorityScope(ctx context.Context, sc *core.AuthorityScope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sc
	cp.UpdatedAt = time.Now().UTC()
	s.scopes[pairKey(sc.TenantID, sc.AgentID)] = &cp
	return nil
}

func (s *Store) CreateOverride(ctx context.Context, o *core.AuthorityOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.overrides[o.Token]; exists {
		return core.ErrConflict
	}
	cp := *o
	s.overrides[o.Token] = &cp
	return nil
}

func (s *Store) GetOverrideByToken(ctx context.Context, token string) (*core.AuthorityOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.overrides[token]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *Store) GetActiveOverride(ctx context.Context, tenantID, agentID string, now time.Time) (*core.AuthorityOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *core.AuthorityOverride
	for _, o := range s.overrides {
		if o.TenantID != tenantID || o.AgentID != agentID || !o.Active(now) {
			continue
		}
		if best == nil || o.CreatedAt.After(best.CreatedAt) {
			best = o
		}
	}
	if best == nil {
		return nil, core.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (s *Store) RevokeOverride(ctx context.Context, token, revokedBy string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.overrides[token]
	if !ok {
		return core.ErrNotFound
	}
	if o.RevokedAt != nil {
		return core.ErrConflict
	}
	t := at
	o.RevokedAt = &t
	o.RevokedBy = revokedBy
	return nil
}

// ------- Consent log -------

func (s *Store) AppendConsent(ctx context.Context, r *core.ConsentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consents = append(s.consents, *r)
	return nil
}

func (s *Store) AppendAgentConsent(ctx context.Context, r *core.AgentConsentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agentCons = append(s.agentCons, *r)
	return nil
}

func (s *Store) LatestConsent(ctx context.Context, tenantID, userID string, t types.ConsentType, scope string) (*core.ConsentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *core.ConsentRecord
	for i := range s.consents {
		r := &s.consents[i]
		if r.TenantID != tenantID || r.UserID != userID || r.ConsentType != t || r.Scope != scope {
			continue
		}
		if best == nil || r.CreatedAt.After(best.CreatedAt) {
			best = r
		}
	}
	if best == nil {
		return nil, core.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (s *Store) LatestAgentConsent(ctx context.Context, tenantID, userID, agentID string, t types.ConsentType, scope string) (*core.AgentConsentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *core.AgentConsentRecord
	for i := range s.agentCons {
		r := &s.agentCons[i]
		if r.TenantID != tenantID || r.UserID != userID || r.AgentID != agentID ||
			r.ConsentType != t || r.Scope != scope {
			continue
		}
		if best == nil || r.CreatedAt.After(best.CreatedAt) {
			best = r
		}
	}
	if best == nil {
		return nil, core.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (s *Store) ListAgentConsents(ctx context.Context, tenantID, userID, agentID string) ([]core.AgentConsentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.AgentConsentRecord
	for _, r := range s.agentCons {
		if r.TenantID == tenantID && r.UserID == userID && r.AgentID == agentID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ------- Preferencias -------

func (s *Store) GetPreferences(ctx context.Context, tenantID, userID string) (*core.AgentConsentPreferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prefs[pairKey(tenantID, userID)]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) UpsertPreferences(ctx context.Context, p *core.AgentConsentPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	cp.UpdatedAt = time.Now().UTC()
	s.prefs[pairKey(p.TenantID, p.UserID)] = &cp
	return nil
}

// ------- Emergency overrides -------

func (s *Store) CreateEmergencyOverride(ctx context.Context, e *core.EmergencyOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.emergency[e.ID]; exists {
		return core.ErrConflict
	}
	cp := *e
	s.emergency[e.ID] = &cp
	return nil
}

func (s *Store) GetActiveEmergencyOverride(ctx context.Context, tenantID, agentID string, now time.Time) (*core.EmergencyOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *core.EmergencyOverride
	for _, e := range s.emergency {
		if e.TenantID != tenantID || e.AgentID != agentID || !e.Active(now) {
			continue
		}
		if best == nil || e.CreatedAt.After(best.CreatedAt) {
			best = e
		}
	}
	if best == nil {
		return nil, core.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (s *Store) RevokeEmergencyOverride(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.emergency[id]
	if !ok {
		return core.ErrNotFound
	}
	if e.RevokedAt != nil {
		return core.ErrConflict
	}
	t := at
	e.RevokedAt = &t
	return nil
}

// ------- Agent registry -------

func (s *Store) CreateAgent(ctx context.Context, a *core.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := pairKey(a.TenantID, a.ID)
	if _, exists := s.agents[k]; exists {
		return core.ErrConflict
	}
	cp := *a
	s.agents[k] = &cp
	return nil
}

func (s *Store) GetAgent(ctx context.Context, tenantID, agentID string) (*core.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[pairKey(tenantID, agentID)]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) ListAgents(ctx context.Context, tenantID string) ([]core.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Agent
	for _, a := range s.agents {
		if a.TenantID == tenantID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateAgentStatus(ctx context.Context, tenantID, agentID string, status core.AgentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[pairKey(tenantID, agentID)]
	if !ok {
		return core.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) TouchAgent(ctx context.Context, tenantID, agentID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[pairKey(tenantID, agentID)]
	if !ok {
		return core.ErrNotFound
	}
	t := at
	a.LastSeenAt = &t
	return nil
}

// ------- Audit trail -------

func (s *Store) AppendAuthorityAudit(ctx context.Context, r *core.AuthorityAuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authAudit = append(s.authAudit, *r)
	return nil
}

func (s *Store) AppendEmergencyAudit(ctx context.Context, r *core.EmergencyOverrideAuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emergAudit = append(s.emergAudit, *r)
	return nil
}

func (s *Store) ListAuthorityAudit(ctx context.Context, tenantID, agentID string, limit int) ([]core.AuthorityAuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.AuthorityAuditRecord
	for i := len(s.authAudit) - 1; i >= 0; i-- {
		r := s.authAudit[i]
		if r.TenantID != tenantID {
			continue
		}
		if agentID != "" && r.AgentID != agentID {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
