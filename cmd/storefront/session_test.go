package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
)

func TestParseRole(t *testing.T) {
	r, err := parseRole("admin")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, r)

	r, err = parseRole("")
	require.NoError(t, err)
	require.Equal(t, models.RoleCustomer, r)

	_, err = parseRole("chef")
	require.Error(t, err)
}

func TestWho(t *testing.T) {
	id := 7
	require.Equal(t, "a@b.c", who(models.Session{Email: "a@b.c", Name: "A"}))
	require.Equal(t, "customer #7", who(models.Session{CustomerID: &id}))
	require.Equal(t, "-", orDash(who(models.Session{})))
}
