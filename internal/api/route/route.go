package route

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/opencomp/recordcache/internal/api/controller"
	"github.com/opencomp/recordcache/internal/api/middleware"
	"github.com/opencomp/recordcache/internal/app"
)

// SetupRoutes builds the gin engine with all middleware and endpoints.
func SetupRoutes(appCtx *app.App, log *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.HoneybadgerMiddleware(log))
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(appCtx.Config.Server.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "UP",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rc := controller.NewRecordsController(appCtx.Cache)
	api := r.Group("/api")
	api.GET("/records", rc.GetRecords)
	api.GET("/records/index", rc.GetIndex)
	api.GET("/status", rc.GetStatus)

	return r
}
