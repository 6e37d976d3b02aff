package intelligence

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeLLM devuelve una respuesta fija y captura el prompt recibido.
type fakeLLM struct {
	response string
	err      error
	system   string
	prompt   string
}

func (f *fakeLLM) Generate(_ context.Context, system, prompt string) (string, error) {
	f.system = system
	f.prompt = prompt
	return f.response, f.err
}

func insightReq() InsightRequest {
	return InsightRequest{
		TenantID:   "t1",
		CustomerID: "c42",
		Signals: []Signal{
			{Kind: "complaint", Detail: "billing error on last invoice", OccurredAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
			{Kind: "support_ticket", Detail: "asked about cancellation policy"},
		},
	}
}

func TestGenerateInsight(t *testing.T) {
	llm := &fakeLLM{response: "SENTIMENT: negative\nCHURN_RISK: high\nSUMMARY: At risk.\nRECOMMENDATION: Call the customer"}
	svc := NewService(Deps{LLM: llm})

	in, err := svc.GenerateInsight(context.Background(), insightReq())
	require.NoError(t, err)
	require.Equal(t, "t1", in.TenantID)
	require.Equal(t, "c42", in.CustomerID)
	require.Equal(t, "negative", in.Sentiment)
	require.Equal(t, 0.8, in.ChurnRisk)
	require.Equal(t, []string{"Call the customer"}, in.Recommendations)
	require.False(t, in.GeneratedAt.IsZero())

	// El prompt lleva las señales con fecha y tipo.
	require.Contains(t, llm.prompt, "c42")
	require.Contains(t, llm.prompt, "2026-08-01 [complaint] billing error on last invoice")
	require.Contains(t, llm.prompt, "[support_ticket] asked about cancellation policy")
	require.True(t, strings.Contains(llm.system, "SENTIMENT:"))
}

func TestGenerateInsight_Validation(t *testing.T) {
	svc := NewService(Deps{LLM: &fakeLLM{}})
	ctx := context.Background()

	req := insightReq()
	req.TenantID = ""
	_, err := svc.GenerateInsight(ctx, req)
	require.ErrorIs(t, err, ErrMissingTenant)

	req = insightReq()
	req.CustomerID = ""
	_, err = svc.GenerateInsight(ctx, req)
	require.ErrorIs(t, err, ErrMissingCustomer)

	req = insightReq()
	req.Signals = nil
	_, err = svc.GenerateInsight(ctx, req)
	require.ErrorIs(t, err, ErrNoSignals)
}

func TestGenerateInsight_NoLLMConfigured(t *testing.T) {
	svc := NewService(Deps{})
	_, err := svc.GenerateInsight(context.Background(), insightReq())
	require.ErrorIs(t, err, ErrLLMUnavailable)
}

func TestGenerateInsight_LLMError(t *testing.T) {
	boom := errors.New("model overloaded")
	svc := NewService(Deps{LLM: &fakeLLM{err: boom}})
	_, err := svc.GenerateInsight(context.Background(), insightReq())
	require.ErrorIs(t, err, boom)
}
