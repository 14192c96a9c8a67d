package history

import (
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AddIsNewestFirst(t *testing.T) {
	s := New(0)
	s.Add(Entry{Label: "first"})
	s.Add(Entry{Label: "second"})
	s.Add(Entry{Label: "third"})

	labels := lo.Map(s.List(), func(e Entry, _ int) string { return e.Label })
	assert.Equal(t, []string{"third", "second", "first"}, labels)
}

func TestStore_AddAssignsIDAndTime(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := &Store{now: func() time.Time { return now }}

	e := s.Add(Entry{Label: "Pikachu x Goku"})

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, now, e.Time)
	got, ok := s.Get(e.ID)
	require.True(t, ok)
	assert.Equal(t, e, got)
}

func TestStore_AddKeepsGivenID(t *testing.T) {
	s := New(0)
	e := s.Add(Entry{ID: "abc"})
	assert.Equal(t, "abc", e.ID)
}

func TestStore_MaxDropsOldest(t *testing.T) {
	s := New(2)
	s.Add(Entry{ID: "1"})
	s.Add(Entry{ID: "2"})
	s.Add(Entry{ID: "3"})

	assert.Equal(t, 2, s.Len())
	_, ok := s.Get("1")
	assert.False(t, ok)
}

func TestStore_Clear(t *testing.T) {
	s := New(0)
	s.Add(Entry{ID: "1"})
	snapshot := s.List()

	s.Clear()

	assert.Zero(t, s.Len())
	assert.Empty(t, s.List())
	assert.Len(t, snapshot, 1, "snapshots are not affected by Clear")
}

func TestStore_ConcurrentUse(t *testing.T) {
	s := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Add(Entry{})
		}()
		go func() {
			defer wg.Done()
			_ = s.List()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
}
