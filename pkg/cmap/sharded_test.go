package cmap

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
)

func TestNewWithShards(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0, DefaultShardCount},
		{-1, DefaultShardCount},
		{3, DefaultShardCount},
		{1, 1},
		{4, 4},
		{32, 32},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("shards=%d", tt.input), func(t *testing.T) {
			m := NewWithShards[string, int](tt.input)
			if m.ShardCount() != tt.expected {
				t.Errorf("NewWithShards(%d) shard count = %d, want %d", tt.input, m.ShardCount(), tt.expected)
			}
		})
	}
}

func TestSetGetDelete(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)

	if v, ok := m.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = (%d, %v), want (1, true)", v, ok)
	}
	if m.Has("missing") {
		t.Error("Has(missing) = true, want false")
	}

	m.Delete("a")
	if m.Has("a") {
		t.Error("a should be gone after Delete")
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}

	v, ok := m.Pop("b")
	if !ok || v != 2 {
		t.Errorf("Pop(b) = (%d, %v), want (2, true)", v, ok)
	}
	if _, ok := m.Pop("b"); ok {
		t.Error("second Pop(b) reported present")
	}
}

func TestNonStringKeys(t *testing.T) {
	type key struct {
		id  string
		sub string
	}
	m := New[key, int]()
	m.Set(key{"r1", "foo"}, 1)
	m.Set(key{"r1", "bar"}, 2)

	if v, _ := m.Get(key{"r1", "bar"}); v != 2 {
		t.Errorf("Get = %d, want 2", v)
	}
}

func TestGetOrSet(t *testing.T) {
	m := New[string, int]()

	v, loaded := m.GetOrSet("k", 1)
	if loaded || v != 1 {
		t.Errorf("first GetOrSet = (%d, %v), want (1, false)", v, loaded)
	}
	v, loaded = m.GetOrSet("k", 2)
	if !loaded || v != 1 {
		t.Errorf("second GetOrSet = (%d, %v), want (1, true)", v, loaded)
	}
}

func TestCompute(t *testing.T) {
	m := New[string, int]()

	t.Run("creates once", func(t *testing.T) {
		var calls atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = m.Compute("once", func(old int, ok bool) (int, error) {
					if ok {
						return old, nil
					}
					calls.Add(1)
					return 42, nil
				})
			}()
		}
		wg.Wait()

		if calls.Load() != 1 {
			t.Errorf("constructor calls = %d, want 1", calls.Load())
		}
		if v, _ := m.Get("once"); v != 42 {
			t.Errorf("Get(once) = %d, want 42", v)
		}
	})

	t.Run("error leaves map unchanged", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := m.Compute("failing", func(int, bool) (int, error) {
			return 0, boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Compute error = %v, want %v", err, boom)
		}
		if m.Has("failing") {
			t.Error("failed Compute stored a value")
		}
	})
}

func TestRangeAndKeys(t *testing.T) {
	m := New[string, int]()
	for i, k := range []string{"x", "y", "z"} {
		m.Set(k, i)
	}

	keys := m.Keys()
	sort.Strings(keys)
	if fmt.Sprint(keys) != "[x y z]" {
		t.Errorf("Keys() = %v, want [x y z]", keys)
	}
	if len(m.Values()) != 3 {
		t.Errorf("Values() length = %d, want 3", len(m.Values()))
	}

	seen := 0
	m.Range(func(string, int) bool {
		seen++
		return false
	})
	if seen != 1 {
		t.Errorf("Range visited %d items after stop, want 1", seen)
	}

	m.Clear()
	if m.Count() != 0 {
		t.Errorf("Count() after Clear = %d, want 0", m.Count())
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := New[int, int]()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				m.Set(g*1000+i, i)
				m.Get(g*1000 + i)
			}
		}(g)
	}
	wg.Wait()

	if m.Count() != 1600 {
		t.Errorf("Count() = %d, want 1600", m.Count())
	}
}
