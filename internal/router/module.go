package router

import "github.com/gin-gonic/gin"

// Module is a feature that registers its routes on a group. Name shows up in
// the startup log.
type Module interface {
	Name() string
	Register(rg *gin.RouterGroup)
}
