package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetDelete(t *testing.T) {
	c := NewMemory("test")
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	require.True(t, IsNotFound(err))

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", v)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	require.True(t, IsNotFound(err))
}

func TestMemory_TTLExpires(t *testing.T) {
	c := NewMemory("")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 5*time.Millisecond))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", v)

	time.Sleep(10 * time.Millisecond)
	_, err = c.Get(ctx, "k")
	require.True(t, IsNotFound(err))
}

func TestJSONHelpers(t *testing.T) {
	c := NewMemory("")
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, SetJSON(ctx, c, "p", payload{Name: "x", Count: 3}, 0))

	var got payload
	require.NoError(t, GetJSON(ctx, c, "p", &got))
	require.Equal(t, payload{Name: "x", Count: 3}, got)

	err := GetJSON(ctx, c, "missing", &got)
	require.True(t, IsNotFound(err))
}
