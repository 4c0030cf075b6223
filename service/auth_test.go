package service

import (
	"testing"
	"time"

	"github.com/beka-birhanu/maze-swarm/identity"
	"github.com/beka-birhanu/maze-swarm/infrastruture/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth(t *testing.T) {
	tokenizer := token.NewJwtService("test-secret", "maze-swarm")
	repo := &memoryOperatorRepo{operators: make(map[string]*identity.Operator)}
	auth, err := NewAuthService(repo, tokenizer)
	require.NoError(t, err)

	const password = "correct-Horse-battery-staple-91"
	require.NoError(t, auth.Register("navigator", password))

	t.Run("Signs in with the right password", func(t *testing.T) {
		operator, tok, err := auth.SignIn("navigator", password)
		require.NoError(t, err)
		assert.Equal(t, "navigator", operator.Username)

		claims, err := tokenizer.Decode(tok)
		require.NoError(t, err)
		assert.Equal(t, operator.ID.String(), claims["operatorID"])
		assert.Greater(t, claims["exp"], float64(time.Now().Unix()))
	})

	t.Run("Rejects bad credentials", func(t *testing.T) {
		_, _, err := auth.SignIn("navigator", "nope")
		assert.ErrorIs(t, err, identity.ErrInvalidCredential)
		_, _, err = auth.SignIn("ghost", password)
		assert.ErrorIs(t, err, identity.ErrInvalidCredential)
	})

	t.Run("Rejects weak passwords on register", func(t *testing.T) {
		assert.ErrorIs(t, auth.Register("weakling", "123"), identity.ErrWeakPassword)
	})

	t.Run("Requires its dependencies", func(t *testing.T) {
		_, err := NewAuthService(nil, tokenizer)
		assert.ErrorIs(t, err, ErrMissingDependency)
	})
}
