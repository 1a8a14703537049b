package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vecbench/internal/domain"
	"vecbench/internal/provider/memory"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(memory.New()))

	p, err := r.Get("memory")
	require.NoError(t, err)
	assert.Equal(t, "memory", p.Name())
	assert.Equal(t, []string{"memory"}, r.Names())

	err = r.Register(memory.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))

	_, err = r.Get("weaviate")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
}
