// Package router assembles the HTTP surface of the course registry.
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registry-api/internal/handler"
	"github.com/noah-isme/course-registry-api/internal/middleware"
	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/service"
	"github.com/noah-isme/course-registry-api/pkg/config"
	"github.com/noah-isme/course-registry-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-registry-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-registry-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Courses     *handler.CourseHandler
	Enrollments *handler.EnrollmentHandler
	Registry    *handler.RegistryHandler
	Metrics     *handler.MetricsHandler
}

// Dependencies carries everything New needs besides the handlers.
type Dependencies struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *service.MetricsService
	// Tokens is required when JWT auth is enabled.
	Tokens middleware.TokenValidator
}

// New builds the gin engine with middleware and every route registered.
func New(deps Dependencies, h Handlers) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	logr := deps.Logger
	if logr == nil {
		logr = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(corsmiddleware.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	var staff, self gin.HandlerFunc = noop, noop
	api := r.Group(cfg.APIPrefix)
	if cfg.JWT.Enabled {
		api.Use(middleware.JWT(deps.Tokens))
		staff = middleware.RequireRoles(models.RoleAdmin, models.RoleRegistrar)
		self = middleware.RBAC(string(models.RoleAdmin), string(models.RoleRegistrar), middleware.Self)
	}

	courses := api.Group("/courses")
	courses.GET("", h.Courses.List)
	courses.POST("", staff, h.Courses.Create)
	courses.GET("/:id", h.Courses.Get)
	courses.PUT("/:id", staff, h.Courses.Update)
	courses.DELETE("/:id", staff, h.Courses.Delete)

	courses.GET("/:id/students", staff, h.Enrollments.ListStudents)
	courses.POST("/:id/students", staff, h.Enrollments.Enroll)
	courses.GET("/:id/students/export", staff, h.Courses.ExportRoster)
	courses.GET("/:id/students/:ssn", self, h.Enrollments.GetStudent)
	courses.DELETE("/:id/students/:ssn", self, h.Enrollments.Withdraw)

	courses.GET("/:id/waitinglist", staff, h.Enrollments.ListWaiting)
	courses.POST("/:id/waitinglist", staff, h.Enrollments.AddToWaitingList)

	api.GET("/templates", h.Registry.ListTemplates)
	api.POST("/templates", staff, h.Registry.CreateTemplate)
	api.POST("/students", staff, h.Registry.CreateStudent)
	api.GET("/students/:ssn", self, h.Registry.GetStudent)

	return r
}

func noop(c *gin.Context) {
	c.Next()
}
