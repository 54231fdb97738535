package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLMap(t *testing.T) {
	ttl := 100 * time.Millisecond
	m := NewTTLMap[string, int](ttl)

	t.Run("set and get", func(t *testing.T) {
		m.Set("a", 1)
		value, ok := m.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 1, value)
	})

	t.Run("expiry", func(t *testing.T) {
		m.Set("b", 2)
		time.Sleep(ttl + 50*time.Millisecond)
		_, ok := m.Get("b")
		assert.False(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		m.Set("c", 3)
		m.Delete("c")
		_, ok := m.Get("c")
		assert.False(t, ok)
	})

	t.Run("missing key", func(t *testing.T) {
		_, ok := m.Get("missing")
		assert.False(t, ok)
	})

	t.Run("overwrite resets value", func(t *testing.T) {
		m.Set("d", 4)
		m.Set("d", 5)
		value, ok := m.Get("d")
		assert.True(t, ok)
		assert.Equal(t, 5, value)
	})

	t.Run("len skips expired", func(t *testing.T) {
		fresh := NewTTLMap[int, string](ttl)
		fresh.Set(1, "x")
		fresh.Set(2, "y")
		assert.Equal(t, 2, fresh.Len())
		time.Sleep(ttl + 50*time.Millisecond)
		assert.Equal(t, 0, fresh.Len())
	})
}

func TestTTLMapConcurrent(t *testing.T) {
	m := NewTTLMap[string, int](time.Second)

	done := make(chan struct{})
	go func() {
		for i := range 200 {
			m.Set("key", i)
		}
		close(done)
	}()

	for range 200 {
		m.Get("key")
	}
	<-done
}
