package memory

import (
	"fmt"
	"testing"

	"github.com/unkn0wn-root/concache/backend"
	"github.com/unkn0wn-root/concache/backend/backendtest"
)

func TestContract(t *testing.T) {
	backendtest.Run(t, Factory[string, int]())
}

func TestShardCount(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0, DefaultShardCount},  // invalid -> default
		{-1, DefaultShardCount}, // invalid -> default
		{3, DefaultShardCount},  // not power of 2 -> default
		{1, 1},
		{8, 8},
		{64, 64},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("shards=%d", tt.input), func(t *testing.T) {
			m := New[string, int](backend.Config{Shards: tt.input, LoadFactor: 0.75})
			if m.ShardCount() != tt.expected {
				t.Fatalf("ShardCount()=%d want %d", m.ShardCount(), tt.expected)
			}
		})
	}
}

func TestKeysSpreadAcrossShards(t *testing.T) {
	m := New[int, int](backend.Config{Shards: 16, LoadFactor: 0.75})
	for i := 0; i < 1000; i++ {
		_ = m.Set(i, i)
	}
	empty := 0
	for _, s := range m.shards {
		if len(s.items) == 0 {
			empty++
		}
	}
	if empty > 0 {
		t.Fatalf("%d of 16 shards empty after 1000 inserts", empty)
	}
}

type point struct{ X, Y int }

func TestStructKeys(t *testing.T) {
	m := New[point, string](backend.Config{Shards: 4, LoadFactor: 0.75})
	_ = m.Set(point{1, 2}, "a")
	if v, ok, _ := m.Get(point{1, 2}); !ok || v != "a" {
		t.Fatalf("struct key lookup failed: %q %v", v, ok)
	}
	if _, ok, _ := m.Get(point{2, 1}); ok {
		t.Fatalf("unexpected hit for different key")
	}
}
