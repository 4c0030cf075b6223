package identity

import (
	"errors"
	"net/http"

	dmn "github.com/beka-birhanu/maze-swarm/identity"
	"github.com/beka-birhanu/maze-swarm/service/i"
	"github.com/gin-gonic/gin"
)

// IdentityServer handles HTTP requests related to operator authentication.
type IdentityServer struct {
	authService i.Authenticator
}

// NewIdentityServer creates a new IdentityServer.
func NewIdentityServer(a i.Authenticator) *IdentityServer {
	return &IdentityServer{
		authService: a,
	}
}

// RegisterPublic registers public routes.
func (c *IdentityServer) RegisterPublic(route *gin.RouterGroup) {
	auth := route.Group("/auth")
	{
		auth.POST("/register", c.registerOperator)
		auth.POST("/login", c.login)
	}
}

// RegisterProtected registers privileged routes.
func (c *IdentityServer) RegisterProtected(route *gin.RouterGroup) {
}

// registerOperator handles operator registration.
func (c *IdentityServer) registerOperator(ctx *gin.Context) {
	var request AuthRequest

	if err := ctx.ShouldBind(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := c.authService.Register(request.Username, request.Password)
	if err != nil {
		ctx.JSON(registerStatus(err), gin.H{"error": err.Error()})
		return
	}

	response := gin.H{"message": "Operator registered successfully"}
	ctx.JSON(http.StatusCreated, response)
}

// login handles user login.
func (c *IdentityServer) login(ctx *gin.Context) {
	var request AuthRequest

	if err := ctx.ShouldBind(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	operator, token, err := c.authService.SignIn(request.Username, request.Password)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	response := &AuthResponse{
		ID:       operator.ID.String(),
		Username: operator.Username,
		RunQuota: operator.RunQuota,
		Token:    token,
	}
	ctx.JSON(http.StatusOK, response)
}

func registerStatus(err error) int {
	if errors.Is(err, dmn.ErrUsernameTaken) {
		return http.StatusConflict
	}
	for _, invalid := range []error{dmn.ErrUsernameTooShort, dmn.ErrUsernameTooLong, dmn.ErrInvalidUsername, dmn.ErrWeakPassword} {
		if errors.Is(err, invalid) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}
