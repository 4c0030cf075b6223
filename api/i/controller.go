package i

import "github.com/gin-gonic/gin"

// Controller mounts its routes on the public and the authorized /v1 groups.
type Controller interface {
	RegisterPublic(*gin.RouterGroup)
	RegisterProtected(*gin.RouterGroup)
}
