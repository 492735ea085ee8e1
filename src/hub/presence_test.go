package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLastConnectWins(t *testing.T) {
	r := NewRegistry()

	superseded, replaced := r.Register("alice", "conn-1")
	assert.False(t, replaced)
	assert.Empty(t, superseded)

	superseded, replaced = r.Register("alice", "conn-2")
	assert.True(t, replaced)
	assert.Equal(t, "conn-1", superseded)

	id, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, "conn-2", id)
	assert.Equal(t, 1, r.Count())
}

func TestRegistryDropSupersededIsNoOp(t *testing.T) {
	r := NewRegistry()
	r.Register("alice", "conn-1")
	r.Register("alice", "conn-2")

	// The superseded handle no longer owns an entry.
	_, dropped := r.Drop("conn-1")
	assert.False(t, dropped)

	id, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, "conn-2", id)

	uid, dropped := r.Drop("conn-2")
	assert.True(t, dropped)
	assert.Equal(t, "alice", uid)
	_, ok = r.Lookup("alice")
	assert.False(t, ok)
}

func TestRegistryDropRemovesExactlyOneEntry(t *testing.T) {
	r := NewRegistry()
	r.Register("alice", "conn-a")
	r.Register("bob", "conn-b")

	uid, dropped := r.Drop("conn-a")
	require.True(t, dropped)
	assert.Equal(t, "alice", uid)

	id, ok := r.Lookup("bob")
	require.True(t, ok)
	assert.Equal(t, "conn-b", id)
	assert.Equal(t, 1, r.Count())
}

func TestRegistryDropUnknownHandle(t *testing.T) {
	r := NewRegistry()
	_, dropped := r.Drop("never-registered")
	assert.False(t, dropped)
}

func TestRegistryOnlineSorted(t *testing.T) {
	r := NewRegistry()
	r.Register("carol", "c3")
	r.Register("alice", "c1")
	r.Register("bob", "c2")

	assert.Equal(t, []string{"alice", "bob", "carol"}, r.Online())
}

func TestRegistryReRegisterSameHandle(t *testing.T) {
	r := NewRegistry()
	r.Register("alice", "conn-1")
	superseded, replaced := r.Register("alice", "conn-1")
	assert.False(t, replaced)
	assert.Empty(t, superseded)
	assert.Equal(t, 1, r.Count())
}
