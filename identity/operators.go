package identity

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/nbutton23/zxcvbn-go"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordStrengthScore = 3
	passwordHashCost         = 14

	usernamePattern   = `^[a-zA-Z0-9_]+$` // Alphanumeric with underscores
	minUsernameLength = 3
	maxUsernameLength = 20

	defaultRunQuota = 20 // simulations an operator may submit per UTC day
)

var (
	usernameRegex = regexp.MustCompile(usernamePattern)
)

var (
	ErrUsernameTooShort  = errors.New("username too short")
	ErrUsernameTooLong   = errors.New("username too long")
	ErrInvalidUsername   = errors.New("invalid username format")
	ErrWeakPassword      = errors.New("weak password")
	ErrInvalidCredential = errors.New("invalid username or password")
	ErrUsernameTaken     = errors.New("username is taken")
	ErrRunQuotaExceeded  = errors.New("daily run quota exhausted")
)

// Operator is an account allowed to start and watch simulation runs.
type Operator struct {
	ID           uuid.UUID `bson:"_id"`
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"passwordHash"`
	RunQuota     int       `bson:"runQuota"`
	CreatedAt    time.Time `bson:"createdAt"`
}

// OperatorConfig holds parameters for creating an Operator from a plain password.
type OperatorConfig struct {
	ID            uuid.UUID
	Username      string
	PlainPassword string
}

// NewOperator creates a new Operator with the provided configuration.
func NewOperator(config OperatorConfig) (*Operator, error) {
	if err := validateUsername(config.Username); err != nil {
		return nil, err
	}

	if err := validatePassword(config.PlainPassword); err != nil {
		return nil, err
	}

	passwordHash, err := hashPassword(config.PlainPassword)
	if err != nil {
		return nil, err
	}

	return &Operator{
		ID:           config.ID,
		Username:     config.Username,
		PasswordHash: passwordHash,
		RunQuota:     defaultRunQuota,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// QuotaDay returns the start of the UTC day t falls in. Run quotas reset at that instant.
func QuotaDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CheckRunQuota returns ErrRunQuotaExceeded when an operator who already submitted
// runsToday runs since QuotaDay may not submit another one.
func (o *Operator) CheckRunQuota(runsToday int) error {
	if runsToday >= o.RunQuota {
		return fmt.Errorf("%w: %d of %d runs used", ErrRunQuotaExceeded, runsToday, o.RunQuota)
	}
	return nil
}

// VerifyPassword verifies if the given password matches the stored hash.
func (o *Operator) VerifyPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(o.PasswordHash), []byte(password))
	return err == nil
}

// validateUsername validates the username.
func validateUsername(username string) error {
	if len(username) < minUsernameLength {
		return ErrUsernameTooShort
	}
	if len(username) > maxUsernameLength {
		return ErrUsernameTooLong
	}
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// validatePassword checks the strength of the password.
func validatePassword(password string) error {
	result := zxcvbn.PasswordStrength(password, nil)
	if result.Score < minPasswordStrengthScore {
		return ErrWeakPassword
	}
	return nil
}

// hashPassword generates a bcrypt hash for the given password.
func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	return string(bytes), err
}
