package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_Deterministic(t *testing.T) {
	e := NewStatic(8)
	a, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 8)
}

func TestStatic_DefaultDim(t *testing.T) {
	e := &Static{}
	vec, err := e.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
}
