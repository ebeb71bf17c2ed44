package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPermissionSet_IgnoresBlanks(t *testing.T) {
	set := NewPermissionSet("eng", " ", "", "everyone")

	assert.Len(t, set, 2)
	assert.True(t, set.Has("eng"))
	assert.True(t, set.Has(PrincipalEveryone))
}

func TestPermissionSet_Intersects(t *testing.T) {
	set := NewPermissionSet("group:eng", "user:alice")

	assert.True(t, set.Intersects([]string{"group:sales", "user:alice"}))
	assert.False(t, set.Intersects([]string{"group:sales"}))
	assert.False(t, set.Intersects(nil), "empty descriptor never intersects")
}

func TestPermissionSet_ScopeIsOrderIndependent(t *testing.T) {
	a := NewPermissionSet("b", "a", "c")
	b := NewPermissionSet("c", "a", "b")

	assert.Equal(t, a.Scope(), b.Scope())
	assert.NotEqual(t, a.Scope(), NewPermissionSet("a").Scope())
}

func TestPermissionSet_Sorted(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, NewPermissionSet("b", "a").Sorted())
}
