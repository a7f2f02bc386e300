package domain_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"example.com/habittracker/internal/domain"
	"example.com/habittracker/internal/persistence/memory"
)

type stubIssuer struct {
	issued int
}

func (s *stubIssuer) IssuePair(user domain.User) (domain.TokenPair, error) {
	s.issued++
	return domain.TokenPair{
		AccessToken:  fmt.Sprintf("access.%s.%d", user.ID, s.issued),
		RefreshToken: fmt.Sprintf("refresh.%s.%d", user.ID, s.issued),
	}, nil
}

func (s *stubIssuer) ParseRefresh(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] != "refresh" {
		return "", errors.New("not a refresh token")
	}
	return parts[1], nil
}

func newAccounts(t *testing.T) (*domain.AccountService, *memory.Repository) {
	t.Helper()
	repo := memory.NewRepository()
	return domain.NewAccountService(repo, &stubIssuer{}, domain.WithBcryptCost(bcrypt.MinCost)), repo
}

func TestRegisterHashesPasswordAndNormalisesEmail(t *testing.T) {
	accounts, repo := newAccounts(t)

	user, err := accounts.Register(context.Background(), domain.RegisterInput{Name: "Ravi", Email: "  Ravi@Example.COM ", Password: "hunter22"})
	require.NoError(t, err)
	require.Equal(t, "ravi@example.com", user.Email)
	require.NotEqual(t, "hunter22", user.PasswordHash)

	stored, err := repo.GetUserByEmail(context.Background(), "ravi@example.com")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("hunter22")))
}

func TestRegisterValidation(t *testing.T) {
	accounts, _ := newAccounts(t)
	ctx := context.Background()

	_, err := accounts.Register(ctx, domain.RegisterInput{Name: "", Email: "a@example.com", Password: "secret1"})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = accounts.Register(ctx, domain.RegisterInput{Name: "A", Email: "not-an-email", Password: "secret1"})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = accounts.Register(ctx, domain.RegisterInput{Name: "A", Email: "a@example.com", Password: "short"})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = accounts.Register(ctx, domain.RegisterInput{Name: "A", Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = accounts.Register(ctx, domain.RegisterInput{Name: "B", Email: "A@example.com", Password: "secret2"})
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestLoginRefreshLogoutLifecycle(t *testing.T) {
	accounts, _ := newAccounts(t)
	ctx := context.Background()

	_, err := accounts.Register(ctx, domain.RegisterInput{Name: "Mei", Email: "mei@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = accounts.Login(ctx, "nobody@example.com", "correct-horse")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = accounts.Login(ctx, "mei@example.com", "wrong-horse")
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	session, err := accounts.Login(ctx, "MEI@example.com", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, session.Tokens.AccessToken)

	rotated, err := accounts.Refresh(ctx, session.Tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, session.Tokens.RefreshToken, rotated.Tokens.RefreshToken)

	_, err = accounts.Refresh(ctx, session.Tokens.RefreshToken)
	require.ErrorIs(t, err, domain.ErrUnauthenticated, "a rotated-out refresh token must not be accepted")

	require.NoError(t, accounts.Logout(ctx, rotated.User.ID))
	_, err = accounts.Refresh(ctx, rotated.Tokens.RefreshToken)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = accounts.Refresh(ctx, "garbage")
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestCurrentUser(t *testing.T) {
	accounts, _ := newAccounts(t)
	ctx := context.Background()

	user, err := accounts.Register(ctx, domain.RegisterInput{Name: "Ola", Email: "ola@example.com", Password: "secret1"})
	require.NoError(t, err)

	me, err := accounts.CurrentUser(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "Ola", me.Name)

	_, err = accounts.CurrentUser(ctx, "ghost")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
