package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootFlags_ReachClient(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"agents":[],"count":0}`))
	}))
	defer srv.Close()

	root, cl := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"agents", "list", "--tenant", "t1",
		"--url", srv.URL, "--token", "secreto", "--out", "json"})
	require.NoError(t, root.Execute())

	// Los valores parseados llegan al client, no los defaults de env.
	require.Equal(t, srv.URL, cl.BaseURL)
	require.Equal(t, "secreto", cl.Token)
	require.Equal(t, "json", cl.OutFormat)
	require.Equal(t, "Bearer secreto", gotAuth)
	require.Equal(t, "/v1/agents/t1", gotPath)
}

func TestRootFlags_TokenRequired(t *testing.T) {
	t.Setenv("COGMESH_TOKEN", "")

	root, _ := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"agents", "list", "--tenant", "t1"})
	require.Error(t, root.Execute())
}
