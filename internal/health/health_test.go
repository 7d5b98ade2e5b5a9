package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckBasic(t *testing.T) {
	up := NewHealthChecker(pingerFunc(func(ctx context.Context) error { return nil }))
	status := up.CheckBasic(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "healthy", status.Database.Status)
	assert.Equal(t, "disabled", status.Cache)

	down := NewHealthChecker(pingerFunc(func(ctx context.Context) error { return errors.New("refused") }))
	down.cacheOK = func() bool { return true }
	status = down.CheckBasic(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "healthy", status.Cache)
}

func TestCheckDetailed(t *testing.T) {
	h := NewHealthChecker(pingerFunc(func(ctx context.Context) error { return nil }))
	status := h.CheckDetailed(context.Background())

	assert.Equal(t, "healthy", status.Status)
	assert.NotEmpty(t, status.CheckedAt)
	assert.GreaterOrEqual(t, status.MemoryPercent, 0.0)
}
