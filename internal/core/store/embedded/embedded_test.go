package embedded

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soc-console/internal/core/store"
)

func TestEmbeddedStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewEmbeddedStore[string, string]("soc-console:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(ctx))
	assert.NotEmpty(t, s.Server().Addr())

	require.NoError(t, s.Set(ctx, "flowID", "f-1"))
	v, err := s.Get(ctx, "flowID")
	require.NoError(t, err)
	assert.Equal(t, "f-1", v)

	require.NoError(t, s.Delete(ctx, "flowID"))
	_, err = s.Get(ctx, "flowID")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
