// Package compliance evalúa operaciones del mesh contra marcos
// regulatorios (GDPR, EU AI Act) con tablas de reglas estáticas. Los
// assessments se guardan en un store TTL en memoria: son derivables y
// re-evaluar es barato, no ameritan persistencia.
package compliance

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/google/uuid"

	"github.com/dropDatabas3/cogmesh/internal/observability/logger"
)

var (
	ErrMissingTenant       = fmt.Errorf("missing tenant id")
	ErrMissingOperation    = fmt.Errorf("missing operation")
	ErrUnknownFramework    = fmt.Errorf("unknown compliance framework")
	ErrAssessmentNotFound  = fmt.Errorf("assessment not found")
	ErrAssessmentMalformed = fmt.Errorf("assessment entry has unexpected type")
)

// Service evalúa descriptores de operación contra frameworks.
type Service interface {
	// Assess corre las reglas del framework sobre el descriptor y guarda
	// el resultado con TTL.
	Assess(ctx context.Context, fw Framework, op OperationDescriptor) (*Assessment, error)

	// AssessAll corre todos los frameworks declarados para la operación.
	AssessAll(ctx context.Context, frameworks []Framework, op OperationDescriptor) ([]Assessment, error)

	// GetAssessment recupera un assessment previo por id, si no expiró.
	GetAssessment(ctx context.Context, id string) (*Assessment, error)
}

// Deps contiene las dependencias del service.
type Deps struct {
	// TTL de retención de assessments. 0 usa el default (1h).
	TTL time.Duration
}

type service struct {
	store *gocache.Cache
}

// NewService crea el evaluador de compliance.
func NewService(deps Deps) Service {
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &service{
		store: gocache.New(ttl, 2*ttl),
	}
}

func (s *service) Assess(ctx context.Context, fw Framework, op OperationDescriptor) (*Assessment, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("compliance"),
		logger.Op("Assess"),
		logger.TenantID(op.TenantID),
		logger.Framework(string(fw)),
	)

	if strings.TrimSpace(op.TenantID) == "" {
		return nil, ErrMissingTenant
	}
	if strings.TrimSpace(op.Operation) == "" {
		return nil, ErrMissingOperation
	}

	var table []rule
	switch fw {
	case FrameworkGDPR:
		table = gdprRules
	case FrameworkEUAIAct:
		table = aiActRules
	default:
		return nil, ErrUnknownFramework
	}

	verdict, findings := runRules(table, op)
	a := &Assessment{
		ID:        uuid.NewString(),
		TenantID:  op.TenantID,
		Framework: fw,
		Operation: op.Operation,
		Verdict:   verdict,
		Findings:  findings,
		CreatedAt: time.Now().UTC(),
	}
	s.store.SetDefault(a.ID, a)

	log.Info("compliance assessed",
		logger.String("verdict", string(verdict)),
		logger.Count(len(findings)),
	)
	return a, nil
}

func (s *service) AssessAll(ctx context.Context, frameworks []Framework, op OperationDescriptor) ([]Assessment, error) {
	if len(frameworks) == 0 {
		frameworks = []Framework{FrameworkGDPR, FrameworkEUAIAct}
	}
	out := make([]Assessment, 0, len(frameworks))
	for _, fw := range frameworks {
		a, err := s.Assess(ctx, fw, op)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

func (s *service) GetAssessment(_ context.Context, id string) (*Assessment, error) {
	v, ok := s.store.Get(id)
	if !ok {
		return nil, ErrAssessmentNotFound
	}
	a, ok := v.(*Assessment)
	if !ok {
		return nil, ErrAssessmentMalformed
	}
	return a, nil
}
