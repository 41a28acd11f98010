package handler

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/ragdex/ragdex/internal/middleware"
)

type RouterDeps struct {
	Upload      *UploadHandler
	Query       *QueryHandler
	CORSOrigins []string
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(deps.CORSOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.GET("/", statusHandler)

	api := router.Group("/api")
	api.GET("/health", statusHandler)
	api.POST("/upload", deps.Upload.Upload)
	api.POST("/query", deps.Query.Query)

	return router
}

func statusHandler(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
