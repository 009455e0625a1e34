package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/sakuralearn/backend/config"
	"github.com/sakuralearn/backend/internal/handler"
	"github.com/sakuralearn/backend/internal/middleware"
)

func Setup(
	cfg *config.Config,
	courseHandler *handler.CourseHandler,
	catalogHandler *handler.CatalogHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// 参照数据无需认证
		api.GET("/levels", catalogHandler.Levels)
		api.GET("/categories", catalogHandler.Categories)

		courses := api.Group("/courses")
		courses.Use(middleware.TeacherAuth(cfg.Auth.JWTSecret))
		{
			courses.POST("", courseHandler.Create)
			courses.GET("", courseHandler.List)
			courses.GET("/:id", courseHandler.Get)
			courses.PUT("/:id", courseHandler.Save)
			courses.DELETE("/:id", courseHandler.Delete)
		}
	}

	return r
}
