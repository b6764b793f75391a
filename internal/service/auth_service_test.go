package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marketbook/marketbook-api/internal/domain"
)

func TestAuthRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, RegisterInput{FirstName: "Ann", LastName: "Lee", Email: "ann@example.com", Password: "123"})
	requireCode(t, err, "VALIDATION_FAILED", http.StatusBadRequest)

	session, err := f.auth.Register(ctx, RegisterInput{FirstName: "Ann", LastName: "Lee", Email: " Ann@Example.com ", Password: "secret123"})
	require.NoError(t, err)
	require.Equal(t, "ann@example.com", session.User.Email)
	require.True(t, session.User.IsActive)
	require.NotEmpty(t, session.Token)

	claims, err := f.auth.TokenManager().ParseToken(session.Token)
	require.NoError(t, err)
	require.Equal(t, session.User.ID, claims.SubjectID)
	require.Equal(t, domain.PrincipalUser, claims.Kind)

	_, err = f.auth.Register(ctx, RegisterInput{Email: "ANN@example.com", Password: "secret123"})
	requireCode(t, err, "CONFLICT", http.StatusConflict)

	_, err = f.auth.Login(ctx, "ann@example.com", "wrong-pass")
	requireCode(t, err, "INVALID_CREDENTIALS", http.StatusUnauthorized)
	_, err = f.auth.Login(ctx, "nobody@example.com", "secret123")
	requireCode(t, err, "INVALID_CREDENTIALS", http.StatusUnauthorized)

	logged, err := f.auth.Login(ctx, "ANN@example.com", "secret123")
	require.NoError(t, err)
	require.NotNil(t, logged.User.LastLogin)
}

func TestAuthLoginRejectsUnusableAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ann", "lee")
	u.IsActive = false
	require.NoError(t, f.store.Users.Update(ctx, u))

	_, err := f.auth.Login(ctx, u.Email, "secret123")
	requireCode(t, err, "INVALID_CREDENTIALS", http.StatusUnauthorized)
}

func TestAuthAdminMode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ann", "lee")

	_, err := f.auth.AdminLogin(ctx, u, "anything")
	requireCode(t, err, "ADMIN_NOT_CONFIGURED", http.StatusBadRequest)

	password, err := f.auth.EnableAdminMode(ctx, u)
	require.NoError(t, err)
	require.Len(t, password, 16)
	require.NotNil(t, u.AdminCreatedAt)
	require.NotEqual(t, password, *u.AdminPasswordHash)
	require.Equal(t, "Admin Access Created", f.store.Notifications.ForUser(u.ID)[0].Title)

	_, err = f.auth.EnableAdminMode(ctx, u)
	requireCode(t, err, "ADMIN_ALREADY_CONFIGURED", http.StatusBadRequest)

	_, err = f.auth.AdminLogin(ctx, u, "not-it")
	requireCode(t, err, "INVALID_ADMIN_PASSWORD", http.StatusBadRequest)

	session, err := f.auth.AdminLogin(ctx, u, password)
	require.NoError(t, err)
	claims, err := f.auth.TokenManager().ParseToken(session.Token)
	require.NoError(t, err)
	require.Equal(t, domain.PrincipalUserAdmin, claims.Kind)
	require.NoError(t, f.auth.VerifyAdminPassword(ctx, u, password))

	err = f.auth.ChangeAdminPassword(ctx, u, "not-it", "brand-new")
	requireCode(t, err, "INVALID_ADMIN_PASSWORD", http.StatusBadRequest)
	err = f.auth.ChangeAdminPassword(ctx, u, password, "short")
	requireCode(t, err, "VALIDATION_FAILED", http.StatusBadRequest)

	require.NoError(t, f.auth.ChangeAdminPassword(ctx, u, password, "brand-new"))
	require.Equal(t, "Admin Password Changed", f.store.Notifications.ForUser(u.ID)[0].Title)

	stored, err := f.store.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Error(t, f.auth.VerifyAdminPassword(ctx, stored, password))
	require.NoError(t, f.auth.VerifyAdminPassword(ctx, stored, "brand-new"))
}
