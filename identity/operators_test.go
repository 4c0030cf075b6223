package identity

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strongPassword = "correct-Horse-battery-staple-91"

func TestNewOperator(t *testing.T) {
	t.Run("Hashes the password", func(t *testing.T) {
		id := uuid.New()
		op, err := NewOperator(OperatorConfig{ID: id, Username: "maze_runner", PlainPassword: strongPassword})
		require.NoError(t, err)

		assert.Equal(t, id, op.ID)
		assert.Equal(t, defaultRunQuota, op.RunQuota)
		assert.NotEqual(t, strongPassword, op.PasswordHash)
		assert.True(t, op.VerifyPassword(strongPassword))
		assert.False(t, op.VerifyPassword("wrong"))
	})

	t.Run("Validates the username", func(t *testing.T) {
		cases := map[string]error{
			"ab":                    ErrUsernameTooShort,
			strings.Repeat("a", 21): ErrUsernameTooLong,
			"maze runner":           ErrInvalidUsername,
		}
		for username, want := range cases {
			_, err := NewOperator(OperatorConfig{ID: uuid.New(), Username: username, PlainPassword: strongPassword})
			assert.ErrorIs(t, err, want, username)
		}
	})

	t.Run("Rejects weak passwords", func(t *testing.T) {
		_, err := NewOperator(OperatorConfig{ID: uuid.New(), Username: "maze_runner", PlainPassword: "password"})
		assert.ErrorIs(t, err, ErrWeakPassword)
	})
}

func TestRunQuota(t *testing.T) {
	op := &Operator{ID: uuid.New(), Username: "maze_runner", RunQuota: 2}

	t.Run("Allows runs below the quota", func(t *testing.T) {
		assert.NoError(t, op.CheckRunQuota(0))
		assert.NoError(t, op.CheckRunQuota(1))
	})

	t.Run("Rejects runs at the quota", func(t *testing.T) {
		assert.ErrorIs(t, op.CheckRunQuota(2), ErrRunQuotaExceeded)
		assert.ErrorIs(t, op.CheckRunQuota(5), ErrRunQuotaExceeded)
	})

	t.Run("An operator without quota may not run", func(t *testing.T) {
		assert.ErrorIs(t, (&Operator{}).CheckRunQuota(0), ErrRunQuotaExceeded)
	})

	t.Run("Days start at UTC midnight", func(t *testing.T) {
		addis := time.FixedZone("EAT", 3*60*60)
		at := time.Date(2025, 3, 1, 1, 30, 0, 0, addis)
		assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), QuotaDay(at))
	})
}
