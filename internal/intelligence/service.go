// Package intelligence genera insights de clientes a partir de señales
// de interacción: arma el prompt, llama al LLM y parsea la respuesta
// con heurísticas de prefijo hacia un DTO estable.
package intelligence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/cogmesh/internal/observability/logger"
)

var (
	ErrMissingTenant   = fmt.Errorf("missing tenant id")
	ErrMissingCustomer = fmt.Errorf("missing customer id")
	ErrNoSignals       = fmt.Errorf("no interaction signals provided")
	ErrLLMUnavailable  = fmt.Errorf("llm client not configured")
)

const systemPrompt = `You are a customer-intelligence analyst. Answer ONLY with lines using these prefixes:
SENTIMENT: positive|neutral|negative
CHURN_RISK: a number between 0 and 1
SUMMARY: one sentence
RECOMMENDATION: one action (repeat the line for each action)`

// InsightRequest describe al cliente y sus señales recientes.
type InsightRequest struct {
	TenantID   string   `json:"tenant_id"`
	CustomerID string   `json:"customer_id"`
	Signals    []Signal `json:"signals"`
}

// Signal es una interacción observada del cliente.
type Signal struct {
	Kind       string    `json:"kind"` // support_ticket | purchase | complaint | review | usage
	Detail     string    `json:"detail"`
	OccurredAt time.Time `json:"occurred_at"`
}

// CustomerInsight es el DTO parseado de la respuesta del modelo.
type CustomerInsight struct {
	TenantID        string    `json:"tenant_id"`
	CustomerID      string    `json:"customer_id"`
	Sentiment       string    `json:"sentiment"`
	ChurnRisk       float64   `json:"churn_risk"`
	Summary         string    `json:"summary"`
	Recommendations []string  `json:"recommendations,omitempty"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// Service genera insights de clientes.
type Service interface {
	GenerateInsight(ctx context.Context, req InsightRequest) (*CustomerInsight, error)
}

// Deps contiene las dependencias del service.
type Deps struct {
	LLM LLMClient
}

type service struct {
	deps Deps
}

// NewService crea el generador de insights.
func NewService(deps Deps) Service {
	return &service{deps: deps}
}

func (s *service) GenerateInsight(ctx context.Context, req InsightRequest) (*CustomerInsight, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("intelligence"),
		logger.Op("GenerateInsight"),
		logger.TenantID(req.TenantID),
	)

	if strings.TrimSpace(req.TenantID) == "" {
		return nil, ErrMissingTenant
	}
	if strings.TrimSpace(req.CustomerID) == "" {
		return nil, ErrMissingCustomer
	}
	if len(req.Signals) == 0 {
		return nil, ErrNoSignals
	}
	if s.deps.LLM == nil {
		return nil, ErrLLMUnavailable
	}

	raw, err := s.deps.LLM.Generate(ctx, systemPrompt, buildPrompt(req))
	if err != nil {
		log.Error("insight generation failed", logger.Err(err))
		return nil, err
	}

	insight := parseInsight(raw)
	insight.TenantID = req.TenantID
	insight.CustomerID = req.CustomerID
	insight.GeneratedAt = time.Now().UTC()

	log.Info("insight generated",
		logger.String("sentiment", insight.Sentiment),
		logger.Count(len(insight.Recommendations)),
	)
	return &insight, nil
}

// buildPrompt serializa las señales en texto plano ordenado para el modelo.
func buildPrompt(req InsightRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Customer %s has the following recent interactions:\n", req.CustomerID)
	for _, sig := range req.Signals {
		when := ""
		if !sig.OccurredAt.IsZero() {
			when = sig.OccurredAt.UTC().Format("2006-01-02") + " "
		}
		fmt.Fprintf(&b, "- %s[%s] %s\n", when, sig.Kind, sig.Detail)
	}
	b.WriteString("\nAnalyze sentiment, churn risk and recommend next actions.")
	return b.String()
}
