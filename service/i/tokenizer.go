package i

import (
	"time"
)

// Tokenizer issues and checks the bearer tokens handed to operators.
type Tokenizer interface {
	// Generate signs claims into a token that expires after expTime.
	Generate(claims map[string]interface{}, expTime time.Duration) (string, error)

	// Decode verifies the signature, expiry and issuer of token and returns its claims.
	Decode(token string) (map[string]interface{}, error)
}
