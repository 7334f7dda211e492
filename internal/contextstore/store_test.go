package contextstore

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateAndGet(t *testing.T) {
	s := New(10)

	s.Update("u1", "hello", "greeting", "Hello!")
	s.Update("u1", "bye", "goodbye", "Bye!")

	entries := s.Get("u1")
	require.Len(t, entries, 2)
	assert.Equal(t, "hello", entries[0].Message)
	assert.Equal(t, "greeting", entries[0].Intent)
	assert.Equal(t, "bye", entries[1].Message)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestWindowEvictsOldest(t *testing.T) {
	s := New(3)

	for i := 0; i < 5; i++ {
		s.Update("u1", fmt.Sprintf("msg-%d", i), "greeting", "ok")
	}

	entries := s.Get("u1")
	require.Len(t, entries, 3)
	assert.Equal(t, "msg-2", entries[0].Message)
	assert.Equal(t, "msg-4", entries[2].Message)
}

func TestUsersAreIsolated(t *testing.T) {
	s := New(10)

	s.Update("alice", "hello", "greeting", "Hello!")
	s.Update("bob", "bye", "goodbye", "Bye!")

	require.Len(t, s.Get("alice"), 1)
	require.Len(t, s.Get("bob"), 1)
	assert.Equal(t, "hello", s.Get("alice")[0].Message)
	assert.Equal(t, "bye", s.Get("bob")[0].Message)
	assert.Equal(t, 2, s.Users())
}

func TestGetUnknownUser(t *testing.T) {
	s := New(10)
	assert.Empty(t, s.Get("nobody"))

	_, ok := s.Last("nobody")
	assert.False(t, ok)
}

func TestLast(t *testing.T) {
	s := New(10)
	s.Update("u1", "hello", "greeting", "Hello!")
	s.Update("u1", "thanks", "thanks", "Anytime!")

	last, ok := s.Last("u1")
	require.True(t, ok)
	assert.Equal(t, "thanks", last.Message)
}

func TestClear(t *testing.T) {
	s := New(10)
	s.Update("u1", "hello", "greeting", "Hello!")
	s.Clear("u1")
	assert.Empty(t, s.Get("u1"))
	assert.Equal(t, 0, s.Users())
}

func TestGetReturnsCopy(t *testing.T) {
	s := New(10)
	s.Update("u1", "hello", "greeting", "Hello!")

	entries := s.Get("u1")
	entries[0].Message = "mutated"

	assert.Equal(t, "hello", s.Get("u1")[0].Message)
}

func TestConcurrentUpdates(t *testing.T) {
	const turns = 200
	s := New(turns)

	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Update("u1", fmt.Sprintf("msg-%d", i), "greeting", "ok")
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Get("u1"), turns)
}
