package service

import (
	"errors"
	"time"

	"github.com/beka-birhanu/maze-swarm/identity"
	"github.com/beka-birhanu/maze-swarm/service/i"
	"github.com/google/uuid"
)

const tokenLifetime = 24 * time.Hour

var ErrMissingDependency = errors.New("missing service dependency")

type Auth struct {
	operatorRepo i.OperatorRepo
	tokenizer    i.Tokenizer
}

func NewAuthService(repo i.OperatorRepo, tokenizer i.Tokenizer) (*Auth, error) {
	if repo == nil || tokenizer == nil {
		return nil, ErrMissingDependency
	}
	return &Auth{operatorRepo: repo, tokenizer: tokenizer}, nil
}

func (a *Auth) Register(username, password string) error {
	operatorConfig := identity.OperatorConfig{
		ID:            uuid.New(),
		Username:      username,
		PlainPassword: password,
	}

	operator, err := identity.NewOperator(operatorConfig)
	if err != nil {
		return err
	}

	return a.operatorRepo.Save(operator)
}

func (a *Auth) SignIn(username, password string) (*identity.Operator, string, error) {
	operator, err := a.operatorRepo.ByUsername(username)
	if err != nil {
		return nil, "", identity.ErrInvalidCredential
	}

	if !operator.VerifyPassword(password) {
		return nil, "", identity.ErrInvalidCredential
	}

	token, err := a.tokenizer.Generate(map[string]interface{}{
		"operatorID": operator.ID.String(),
		"username":   operator.Username,
	}, tokenLifetime)
	if err != nil {
		return nil, "", err
	}

	return operator, token, nil
}
