// Package registry administra el ciclo de vida de los agentes del mesh:
// alta con emisión de API key, autenticación y baja lógica.
package registry

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/cogmesh/internal/audit"
	"github.com/dropDatabas3/cogmesh/internal/observability/logger"
	"github.com/dropDatabas3/cogmesh/internal/resilience"
	"github.com/dropDatabas3/cogmesh/internal/security/apikey"
	"github.com/dropDatabas3/cogmesh/internal/security/tokens"
	"github.com/dropDatabas3/cogmesh/internal/store/core"
	"github.com/dropDatabas3/cogmesh/internal/validation"
)

// apiKeyBytes es el largo de la API key en claro antes de base64url.
const apiKeyBytes = 32

// Service es el registry de agentes.
type Service interface {
	// RegisterAgent da de alta un agente. La API key en claro se devuelve
	// SOLO acá; después solo existe su hash.
	RegisterAgent(ctx context.Context, req RegisterRequest) (*core.Agent, string, error)

	// Authenticate valida las credenciales de un agente activo y actualiza
	// su last_seen_at.
	Authenticate(ctx context.Context, tenantID, agentID, key string) (*core.Agent, error)

	GetAgent(ctx context.Context, tenantID, agentID string) (*core.Agent, error)
	ListAgents(ctx context.Context, tenantID string) ([]core.Agent, error)

	// DeactivateAgent es una baja lógica: el agente deja de autenticar
	// pero su historial de auditoría se conserva.
	DeactivateAgent(ctx context.Context, tenantID, agentID, actor string) error
}

// RegisterRequest describe el alta de un agente.
type RegisterRequest struct {
	TenantID     string
	Name         string
	Description  string
	Capabilities []string
	Actor        string
}

// Deps contiene las dependencias del service.
type Deps struct {
	Repo  core.Repository
	Exec  *resilience.Executor
	Trail *audit.Trail
}

type service struct {
	deps Deps
}

// NewService crea el registry de agentes.
func NewService(deps Deps) Service {
	if deps.Exec == nil {
		deps.Exec = resilience.New("registry", resilience.Options{})
	}
	return &service{deps: deps}
}

func (s *service) RegisterAgent(ctx context.Context, req RegisterRequest) (*core.Agent, string, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("registry"),
		logger.Op("RegisterAgent"),
		logger.TenantID(req.TenantID),
	)

	if strings.TrimSpace(req.TenantID) == "" {
		return nil, "", ErrMissingTenant
	}
	if !validation.ValidID(req.TenantID) {
		return nil, "", ErrInvalidTenant
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, "", ErrMissingName
	}

	key, err := tokens.GenerateOpaqueToken(apiKeyBytes)
	if err != nil {
		return nil, "", &ServiceError{Op: "GenerateKey", Err: err}
	}
	hash, err := apikey.Hash(apikey.Default, key)
	if err != nil {
		return nil, "", &ServiceError{Op: "HashKey", Err: err}
	}

	now := time.Now().UTC()
	agent := &core.Agent{
		ID:           uuid.NewString(),
		TenantID:     req.TenantID,
		Name:         req.Name,
		Description:  req.Description,
		Capabilities: req.Capabilities,
		Status:       core.AgentStatusActive,
		APIKeyHash:   hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.deps.Exec.Do(ctx, "CreateAgent", func(ctx context.Context) error {
		return s.deps.Repo.CreateAgent(ctx, agent)
	})
	if err != nil {
		return nil, "", &ServiceError{Op: "CreateAgent", Err: err}
	}

	s.deps.Trail.Record(ctx, audit.Event{
		TenantID:  req.TenantID,
		AgentID:   agent.ID,
		EventType: "agent_registered",
		Actor:     req.Actor,
		Metadata:  map[string]any{"name": req.Name},
	})

	log.Info("agent registered", logger.AgentID(agent.ID), logger.String("name", req.Name))
	return agent, key, nil
}

func (s *service) Authenticate(ctx context.Context, tenantID, agentID, key string) (*core.Agent, error) {
	agent, err := s.getAgent(ctx, tenantID, agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		// No filtramos si el agente existe: credencial inválida es
		// indistinguible de agente desconocido.
		return nil, ErrInvalidCredential
	}
	if agent.Status != core.AgentStatusActive {
		return nil, ErrAgentDeactivated
	}
	if !apikey.Verify(key, agent.APIKeyHash) {
		return nil, ErrInvalidCredential
	}

	now := time.Now().UTC()
	err = s.deps.Exec.Do(ctx, "TouchAgent", func(ctx context.Context) error {
		return s.deps.Repo.TouchAgent(ctx, tenantID, agentID, now)
	})
	if err != nil {
		// last_seen es best-effort: la autenticación ya fue exitosa.
		logger.From(ctx).Warn("failed to touch agent",
			logger.Component("registry"),
			logger.AgentID(agentID),
			logger.Err(err),
		)
	}
	return agent, nil
}

func (s *service) GetAgent(ctx context.Context, tenantID, agentID string) (*core.Agent, error) {
	agent, err := s.getAgent(ctx, tenantID, agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, ErrAgentNotFound
	}
	return agent, nil
}

func (s *service) ListAgents(ctx context.Context, tenantID string) ([]core.Agent, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, ErrMissingTenant
	}
	var agents []core.Agent
	err := s.deps.Exec.Do(ctx, "ListAgents", func(ctx context.Context) error {
		var err error
		agents, err = s.deps.Repo.ListAgents(ctx, tenantID)
		return err
	})
	if err != nil {
		return nil, &ServiceError{Op: "ListAgents", Err: err}
	}
	return agents, nil
}

func (s *service) DeactivateAgent(ctx context.Context, tenantID, agentID, actor string) error {
	agent, err := s.getAgent(ctx, tenantID, agentID)
	if err != nil {
		return err
	}
	if agent == nil {
		return ErrAgentNotFound
	}

	err = s.deps.Exec.Do(ctx, "UpdateAgentStatus", func(ctx context.Context) error {
		return s.deps.Repo.UpdateAgentStatus(ctx, tenantID, agentID, core.AgentStatusDeactivated)
	})
	if err != nil {
		return &ServiceError{Op: "UpdateAgentStatus", Err: err}
	}

	s.deps.Trail.Record(ctx, audit.Event{
		TenantID:  tenantID,
		AgentID:   agentID,
		EventType: "agent_deactivated",
		Actor:     actor,
	})

	logger.From(ctx).Info("agent deactivated",
		logger.Layer("service"),
		logger.Component("registry"),
		logger.TenantID(tenantID),
		logger.AgentID(agentID),
	)
	return nil
}

// getAgent retorna nil (sin error) cuando el agente no existe.
func (s *service) getAgent(ctx context.Context, tenantID, agentID string) (*core.Agent, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, ErrMissingTenant
	}
	if strings.TrimSpace(agentID) == "" {
		return nil, ErrAgentNotFound
	}
	var agent *core.Agent
	err := s.deps.Exec.Do(ctx, "GetAgent", func(ctx context.Context) error {
		var err error
		agent, err = s.deps.Repo.GetAgent(ctx, tenantID, agentID)
		if err == core.ErrNotFound {
			agent = nil
			return nil
		}
		return err
	})
	if err != nil {
		return nil, &ServiceError{Op: "GetAgent", Err: err}
	}
	return agent, nil
}
