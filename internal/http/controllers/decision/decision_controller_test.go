package decision

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	authsvc "github.com/dropDatabas3/cogmesh/internal/authority"
	decisionsvc "github.com/dropDatabas3/cogmesh/internal/decision"
)

type stubDecision struct {
	err error
}

func (s stubDecision) Decide(ctx context.Context, req decisionsvc.Request) (*decisionsvc.Result, error) {
	return nil, s.err
}

func postDecision(t *testing.T, ctrl *Controller) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"tenant_id":"t1","agent_id":"a1","action":"query/read"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/decisions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	ctrl.Decide(rr, req)
	return rr
}

func TestDecide_ValidationErrorsMapTo400(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"missing tenant", decisionsvc.ErrMissingTenant},
		{"invalid action", authsvc.ErrInvalidAction},
		{"missing agent", authsvc.ErrMissingAgent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := NewController(stubDecision{err: tc.err}, nil, nil)
			rr := postDecision(t, ctrl)
			require.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestDecide_DependencyFailureMapsTo503(t *testing.T) {
	ctrl := NewController(stubDecision{err: fmt.Errorf("store down")}, nil, nil)
	rr := postDecision(t, ctrl)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
