package csprng

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallyu/go-mta-tss/pkg/tss"
)

func TestDeterministic(t *testing.T) {
	seed := []byte("0123456789abcdef")

	r1, err := New(seed)
	require.NoError(t, err)
	r2, err := New(seed)
	require.NoError(t, err)

	b1 := make([]byte, 100)
	b2 := make([]byte, 100)
	_, err = io.ReadFull(r1, b1)
	require.NoError(t, err)
	_, err = io.ReadFull(r2, b2)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)

	other, err := New([]byte("0123456789abcdeF"))
	require.NoError(t, err)
	b3 := make([]byte, 100)
	_, err = io.ReadFull(other, b3)
	require.NoError(t, err)
	assert.NotEqual(t, b1, b3)
}

func TestShortSeed(t *testing.T) {
	_, err := New(make([]byte, SeedLen-1))
	assert.True(t, errors.Is(err, tss.ErrRngFailure))
}
