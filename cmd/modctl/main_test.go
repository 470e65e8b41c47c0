package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"modreview/internal/domain"
	impl "modreview/internal/service/impl"
	"modreview/internal/store"
	"modreview/pkg/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := db.OpenGorm(db.Config{Driver: db.DriverSQLite, DSN: dsn})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(context.Background(), gdb, db.DriverSQLite))
	return store.New(gdb)
}

func TestParseUserFlags(t *testing.T) {
	_, err := parseUserFlags("add", nil)
	assert.EqualError(t, err, "-name is required")

	_, err = parseUserFlags("delete", []string{"-name", "x"})
	assert.Error(t, err)

	o, err := parseUserFlags("grant", []string{"-name", " alice ", "-cap", "login"})
	require.NoError(t, err)
	assert.Equal(t, "alice", o.name)
	assert.Equal(t, "login", o.capability)
}

func TestUserLifecycle(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, runUser(ctx, st, 4, "add", []string{"-name", "alice", "-status", "Approved", "-caps", "login, moderator", "-password", "pw"}, &out))
	assert.Contains(t, out.String(), `"username": "alice"`)
	assert.NotContains(t, out.String(), "pw")

	err := runUser(ctx, st, 4, "add", []string{"-name", "alice"}, &out)
	assert.ErrorContains(t, err, "already exists")

	require.NoError(t, runUser(ctx, st, 4, "grant", []string{"-name", "alice", "-cap", "approve_user"}, &out))
	require.NoError(t, runUser(ctx, st, 4, "revoke-cap", []string{"-name", "alice", "-cap", "moderator"}, &out))

	u, err := st.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, u.Status)
	assert.Equal(t, []domain.Capability{domain.CapApproveUser, domain.CapLogin}, u.Permissions.List())

	pw := impl.NewPasswordServiceBcrypt(4)
	assert.True(t, pw.Verify("pw", u.Password))

	require.NoError(t, runUser(ctx, st, 4, "password", []string{"-name", "alice", "-password", "new"}, &out))
	u, err = st.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, pw.Verify("new", u.Password))
}

func TestRevokingLoginOrPasswordEndsSessions(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, runUser(ctx, st, 4, "add", []string{"-name", "bob", "-status", "Approved", "-caps", "login,moderator", "-password", "pw"}, &out))
	u, err := st.Users().GetByUsername(ctx, "bob")
	require.NoError(t, err)
	issue := func(token string) {
		require.NoError(t, st.Tokens().Create(ctx, &domain.AuthToken{UserID: u.ID, Token: token}))
	}

	issue("t1")
	require.NoError(t, runUser(ctx, st, 4, "revoke-cap", []string{"-name", "bob", "-cap", "moderator"}, &out))
	_, err = st.Tokens().GetByToken(ctx, "t1")
	require.NoError(t, err, "dropping an unrelated capability keeps sessions")

	out.Reset()
	require.NoError(t, runUser(ctx, st, 4, "revoke-cap", []string{"-name", "bob", "-cap", "login"}, &out))
	assert.Contains(t, out.String(), "revoked 1 session(s)")
	_, err = st.Tokens().GetByToken(ctx, "t1")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)

	issue("t2")
	issue("t3")
	out.Reset()
	require.NoError(t, runUser(ctx, st, 4, "password", []string{"-name", "bob", "-password", "new"}, &out))
	assert.Equal(t, "password updated for bob, 2 session(s) revoked\n", out.String())
	_, err = st.Tokens().GetByToken(ctx, "t2")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestUserCommandErrors(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	var out bytes.Buffer

	assert.ErrorIs(t, runUser(ctx, st, 4, "add", []string{"-name", "x", "-caps", "admin"}, &out), domain.ErrBadRequest)
	assert.ErrorIs(t, runUser(ctx, st, 4, "add", []string{"-name", "x", "-status", "pending"}, &out), domain.ErrBadRequest)
	assert.ErrorContains(t, runUser(ctx, st, 4, "grant", []string{"-name", "ghost", "-cap", "login"}, &out), "not found")
	assert.ErrorContains(t, runUser(ctx, st, 4, "password", []string{"-name", "ghost"}, &out), "-password is required")
	assert.ErrorContains(t, runUser(ctx, st, 4, "password", []string{"-name", "ghost", "-password", "x"}, &out), "not found")
}
