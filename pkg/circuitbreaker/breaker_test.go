package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := New[int](Config{Name: "test", MaxFailures: 2, OpenTimeout: time.Minute}, nil)

	for i := 0; i < 2; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, errBoom })
		require.ErrorIs(t, err, errBoom)
	}

	called := false
	_, err := cb.Execute(func() (int, error) {
		called = true
		return 1, nil
	})
	assert.False(t, called, "open breaker must not run the request")
	assert.True(t, IsOpen(err))
}

func TestBreaker_IsSuccessfulKeepsClosed(t *testing.T) {
	errClient := errors.New("bad request")
	cb := New[int](Config{
		Name:        "test",
		MaxFailures: 1,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errClient)
		},
	}, nil)

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, errClient })
		assert.ErrorIs(t, err, errClient)
	}

	v, err := cb.Execute(func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestIsOpen_OtherErrors(t *testing.T) {
	assert.False(t, IsOpen(errBoom))
	assert.False(t, IsOpen(nil))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("cart-api")
	assert.Equal(t, "cart-api", cfg.Name)
	assert.Equal(t, uint32(5), cfg.MaxFailures)
	assert.Equal(t, 30*time.Second, cfg.OpenTimeout)
}
