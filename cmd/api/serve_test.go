package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/slicehouse/pizzeria/internal/config"
)

func TestOpenStoreRequiresDatabaseByDefault(t *testing.T) {
	_, err := openStore(context.Background(), config.PostgresConfig{}, zap.NewNop(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--in-memory")
}

func TestOpenStoreInMemoryWhenAllowed(t *testing.T) {
	b, err := openStore(context.Background(), config.PostgresConfig{}, zap.NewNop(), true)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, "memory", b.driver)
	assert.Nil(t, b.pg)
	require.NoError(t, b.store.Ping(context.Background()))
}
