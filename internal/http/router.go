package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/autoassist/backend/internal/config"
	"github.com/autoassist/backend/internal/db"
	"github.com/autoassist/backend/internal/http/handlers"
	"github.com/autoassist/backend/internal/http/middleware"
	"github.com/autoassist/backend/internal/models"
	"github.com/autoassist/backend/internal/service"

	_ "github.com/autoassist/backend/docs"
)

func Router(cfg config.Config, store *db.Store, engine *service.Engine, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.MaxMultipartMemory = cfg.MaxUploadMB << 20

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:     store,
		Engine:    engine,
		Validator: validator.New(),
		Logger:    logger,
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(middleware.Auth(cfg.JWTSecret))
	{
		api.POST("/requests", h.CreateRequest)
		api.GET("/requests/mine", h.RequestsMine)
		api.GET("/requests/pending", h.RequestsPending)
		api.GET("/requests/active", h.RequestsActive)
		api.GET("/requests/closed", h.RequestsClosed)

		api.GET("/profile/vehicles", h.VehiclesList)
		api.POST("/profile/vehicles", h.VehicleAdd)
		api.PATCH("/profile/vehicles/:vehicleId", h.VehicleUpdate)
		api.DELETE("/profile/vehicles/:vehicleId", h.VehicleDelete)

		api.GET("/manual/search", h.ManualSearch)
		api.GET("/manual/status", h.ManualStatus)
	}

	technician := api.Group("")
	technician.Use(middleware.RequireRole(models.RoleTechnician))
	{
		technician.PUT("/requests/:id/accept", h.AcceptRequest)
		technician.PUT("/requests/:id/close", h.CloseRequest)
	}

	manager := api.Group("")
	manager.Use(middleware.RequireRole(models.RoleManager))
	{
		manager.GET("/requests/all", h.RequestsAll)
		manager.GET("/technicians", h.TechniciansList)
		manager.PUT("/requests/:id/assign", h.AssignRequest)
		manager.PUT("/requests/:id/assign-ai", h.AssignRequestAI)
		manager.PUT("/assignments/bulk", h.AssignBulkAI)
		manager.GET("/metrics/dashboard", h.Dashboard)
		manager.POST("/manual/upload", h.ManualUpload)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
