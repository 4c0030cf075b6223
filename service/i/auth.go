package i

import (
	"github.com/beka-birhanu/maze-swarm/identity"
)

type Authenticator interface {
	Register(string, string) error
	SignIn(string, string) (*identity.Operator, string, error)
}
