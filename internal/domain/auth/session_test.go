package auth

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSessionRepo struct {
	byHash map[string]*Identity
	err    error
}

func (m *mockSessionRepo) FindByTokenHash(_ context.Context, hash string) (*Identity, error) {
	if m.err != nil {
		return nil, m.err
	}
	ident, ok := m.byHash[hash]
	if !ok {
		return nil, errors.New("no session")
	}
	return ident, nil
}

func TestVerify_ValidToken(t *testing.T) {
	pepper := []byte("test-pepper")
	hash := HashToken(pepper, "secret-token")
	repo := &mockSessionRepo{byHash: map[string]*Identity{
		hash: {UserID: "u1", TokenHash: hash, Name: "Test User"},
	}}
	v := NewVerifier(repo, pepper)

	ident, err := v.Verify(context.Background(), "secret-token")
	require.NoError(t, err)
	assert.Equal(t, "u1", ident.UserID)
	assert.Equal(t, "Test User", ident.Name)
}

func TestVerify_EmptyToken(t *testing.T) {
	v := NewVerifier(&mockSessionRepo{}, []byte("p"))

	_, err := v.Verify(context.Background(), "")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerify_UnknownToken(t *testing.T) {
	v := NewVerifier(&mockSessionRepo{byHash: map[string]*Identity{}}, []byte("p"))

	_, err := v.Verify(context.Background(), "never-issued")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerify_RepoError(t *testing.T) {
	v := NewVerifier(&mockSessionRepo{err: errors.New("db down")}, []byte("p"))

	_, err := v.Verify(context.Background(), "some-token")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerify_StoredHashMismatch(t *testing.T) {
	pepper := []byte("test-pepper")
	hash := HashToken(pepper, "secret-token")
	// Repository returns a row whose stored hash does not match the lookup key.
	repo := &mockSessionRepo{byHash: map[string]*Identity{
		hash: {UserID: "u1", TokenHash: HashToken(pepper, "different-token")},
	}}
	v := NewVerifier(repo, pepper)

	_, err := v.Verify(context.Background(), "secret-token")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestHashToken_Deterministic(t *testing.T) {
	pepper := []byte("pepper")

	assert.Equal(t, HashToken(pepper, "tok"), HashToken(pepper, "tok"))
	assert.NotEqual(t, HashToken(pepper, "tok"), HashToken(pepper, "tok2"))
	assert.NotEqual(t, HashToken(pepper, "tok"), HashToken([]byte("other"), "tok"))
	assert.Len(t, HashToken(pepper, "tok"), 64)
}
