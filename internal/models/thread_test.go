package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveThreadKey(t *testing.T) {
	assert.Equal(t, "alice_bob", ResolveThreadKey("alice", "bob"))
	assert.Equal(t, "alice_bob", ResolveThreadKey("bob", "alice"))
}

func TestResolveThreadKeySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"a", "b"},
		{"42", "7"},
		{"6b86b273-ff34-4cce", "d4735e3a-265e-4f16"},
		{"zz", "za"},
	}
	for _, p := range pairs {
		assert.Equal(t, ResolveThreadKey(p[0], p[1]), ResolveThreadKey(p[1], p[0]))
	}
}
