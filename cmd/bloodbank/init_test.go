package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/bloodbank/internal/model"
	"github.com/erazemk/bloodbank/internal/store"
)

func TestGeneratePassword(t *testing.T) {
	a, err := generatePassword(16)
	require.NoError(t, err)
	b, err := generatePassword(16)
	require.NoError(t, err)

	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}

func TestInitDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.sqlite3")

	database, password, err := initDatabase(path, "root@example.com")
	require.NoError(t, err)
	defer database.Close()

	u, err := store.GetUserByEmail(context.Background(), database, "root@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)))

	units, err := store.StockSnapshot(context.Background(), database)
	require.NoError(t, err)
	assert.Len(t, units, len(model.BloodGroups))
}
