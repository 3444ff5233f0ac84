package db

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolSatisfiedByMock(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	var _ Pool = mock
}

func TestConnectBadConnString(t *testing.T) {
	t.Parallel()

	_, err := Connect(context.Background(), "://not-a-url", nil)
	assert.Error(t, err)
}
