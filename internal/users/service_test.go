package users

import (
	"context"
	"strings"
	"testing"

	"github.com/courrier-mf/courrier/internal/config"
	"github.com/courrier-mf/courrier/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService() *Service {
	s := NewService(NewMemoryUserRepository())
	s.cost = bcrypt.MinCost
	return s
}

func TestGenerateUsername(t *testing.T) {
	if got := GenerateUsername("Jean", "Dupont"); got != "jean.dupont" {
		t.Fatalf("unexpected username: %s", got)
	}
	require.Equal(t, "marieclaire.delarue", GenerateUsername(" Marie Claire ", "De\tLa Rue"))
}

func TestGeneratePassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		p, err := GeneratePassword()
		require.NoError(t, err)
		require.Len(t, p, PasswordLength)
		for _, r := range p {
			require.True(t, strings.ContainsRune(PasswordAlphabet, r), "unexpected rune %q", r)
		}
		seen[p] = true
	}
	require.Greater(t, len(seen), 190)
}

func TestCreateAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	u, password, err := svc.Create(ctx, CreateInput{FirstName: "Jean", LastName: "Dupont", Email: "jean@example.com"})
	require.NoError(t, err)
	require.Equal(t, "jean.dupont", u.Username)
	require.Equal(t, models.RoleOperator, u.Role)
	require.Len(t, password, PasswordLength)
	require.NotEqual(t, password, u.PasswordHash)

	got, err := svc.Authenticate(ctx, "Jean.Dupont", password)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	got, err = svc.Authenticate(ctx, "jean@example.com", password)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "jean.dupont", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody", password)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateRejects(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, _, err := svc.Create(ctx, CreateInput{FirstName: " ", LastName: "Dupont"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = svc.Create(ctx, CreateInput{FirstName: "Jean", LastName: "Dupont", Role: "root"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = svc.Create(ctx, CreateInput{FirstName: "Jean", LastName: "Dupont"})
	require.NoError(t, err)
	_, _, err = svc.Create(ctx, CreateInput{FirstName: "JEAN", LastName: "dupont"})
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestUpdateRegeneratesUsername(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	u, _, err := svc.Create(ctx, CreateInput{FirstName: "Jean", LastName: "Dupont"})
	require.NoError(t, err)

	upd, err := svc.Update(ctx, u.ID, "Jeanne", "Dupont", "jeanne@example.com")
	require.NoError(t, err)
	require.Equal(t, "jeanne.dupont", upd.Username)
	require.Equal(t, u.CreatedAt, upd.CreatedAt)

	_, err = svc.Update(ctx, "missing", "A", "B", "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPasswordChanges(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	u, first, err := svc.Create(ctx, CreateInput{FirstName: "Jean", LastName: "Dupont"})
	require.NoError(t, err)

	reset, err := svc.ResetPassword(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, reset, PasswordLength)
	_, err = svc.Authenticate(ctx, "jean.dupont", first)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "bad", "longenough"), ErrInvalidCredentials)
	require.ErrorIs(t, svc.ChangePassword(ctx, u.ID, reset, "short"), ErrWeakPassword)
	require.NoError(t, svc.ChangePassword(ctx, u.ID, reset, "longenough"))
	_, err = svc.Authenticate(ctx, "jean.dupont", "longenough")
	require.NoError(t, err)
}

func TestFromClaims(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	local, _, err := svc.Create(ctx, CreateInput{FirstName: "Jean", LastName: "Dupont"})
	require.NoError(t, err)

	u, err := svc.FromClaims(ctx, map[string]interface{}{"uid": local.ID, "sub": local.ID})
	require.NoError(t, err)
	require.Equal(t, local.ID, u.ID)

	claims := map[string]interface{}{
		"sub":         "kc-123",
		"given_name":  "Amina",
		"family_name": "Benali",
		"email":       "amina@example.com",
	}
	u, err = svc.FromClaims(ctx, claims)
	require.NoError(t, err)
	require.Equal(t, "amina.benali", u.Username)
	require.Equal(t, "kc-123", u.Sub)

	again, err := svc.FromClaims(ctx, claims)
	require.NoError(t, err)
	require.Equal(t, u.ID, again.ID)

	_, err = svc.FromClaims(ctx, map[string]interface{}{"email": "y@e.com"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFromClaimsUsernameFallback(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	u, err := svc.FromClaims(ctx, map[string]interface{}{"sub": "kc-anon"})
	require.NoError(t, err)
	require.Equal(t, "kc-anon", u.Username)

	u, err = svc.FromClaims(ctx, map[string]interface{}{"sub": "kc-pref", "name": "Madonna", "preferred_username": "Mado"})
	require.NoError(t, err)
	require.Equal(t, "mado", u.Username)

	_, _, err = svc.Create(ctx, CreateInput{FirstName: "Amina", LastName: "Benali"})
	require.NoError(t, err)
	u, err = svc.FromClaims(ctx, map[string]interface{}{"sub": "kc-twin", "name": "Amina Benali"})
	require.NoError(t, err)
	require.Equal(t, "kc-twin", u.Username)
	require.Equal(t, "Amina", u.FirstName)

	_, err = svc.FromClaims(ctx, map[string]interface{}{"sub": "amina.benali", "given_name": "Amina", "family_name": "Benali"})
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestEditChecksRoleBeforeWriting(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	u, _, err := svc.Create(ctx, CreateInput{FirstName: "Jean", LastName: "Dupont"})
	require.NoError(t, err)

	_, err = svc.Edit(ctx, u.ID, CreateInput{FirstName: "Jeanne", LastName: "Dupont", Role: "root"})
	require.ErrorIs(t, err, ErrInvalidInput)
	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "jean.dupont", got.Username)
	require.Equal(t, models.RoleOperator, got.Role)

	got, err = svc.Edit(ctx, u.ID, CreateInput{FirstName: "Jeanne", LastName: "Dupont", Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, "jeanne.dupont", got.Username)
	require.True(t, got.IsAdmin())

	got, err = svc.Edit(ctx, u.ID, CreateInput{FirstName: "Jeanne", LastName: "Martin"})
	require.NoError(t, err)
	require.True(t, got.IsAdmin())
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	u, err := svc.EnsureAdmin(ctx, config.AdminConfig{FirstName: "Admin", LastName: "Courrier"})
	require.NoError(t, err)
	require.Nil(t, u)

	cfg := config.AdminConfig{FirstName: "Admin", LastName: "Courrier", Email: "admin@example.com", Password: "s3cret-pass"}
	u, err = svc.EnsureAdmin(ctx, cfg)
	require.NoError(t, err)
	require.True(t, u.IsAdmin())
	require.Equal(t, "admin.courrier", u.Username)

	again, err := svc.EnsureAdmin(ctx, cfg)
	require.NoError(t, err)
	require.Equal(t, u.ID, again.ID)

	_, err = svc.Authenticate(ctx, "admin@example.com", "s3cret-pass")
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}
