package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOwnerActions(t *testing.T) {
	a, err := NewAuthorizer()
	require.NoError(t, err)
	res := Resource{ID: "p1", OwnerID: "alice"}

	for _, act := range []Action{ActionView, ActionUpdateDocuments, ActionExportReport} {
		ok, err := a.IsAuthorized("alice", act, res)
		require.NoError(t, err)
		require.True(t, ok, "owner should be allowed %s", act)

		ok, err = a.IsAuthorized("bob", act, res)
		require.NoError(t, err)
		require.False(t, ok, "non-owner should be denied %s", act)
	}
}

func TestOpenActions(t *testing.T) {
	a, err := NewAuthorizer()
	require.NoError(t, err)
	for _, act := range []Action{ActionRegister, ActionList} {
		ok, err := a.IsAuthorized("carol", act, Resource{})
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestAnonymousDenied(t *testing.T) {
	a, err := NewAuthorizer()
	require.NoError(t, err)
	ok, err := a.IsAuthorized("", ActionList, Resource{})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestViewWithoutOwnerDenied(t *testing.T) {
	a, err := NewAuthorizer()
	require.NoError(t, err)
	ok, err := a.IsAuthorized("alice", ActionView, Resource{ID: "p1"})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBadPolicy(t *testing.T) {
	_, err := NewAuthorizerFromBytes([]byte("permit ("))
	require.Error(t, err)
}
