package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lms-grading-api/api/swagger"
	"github.com/noah-isme/lms-grading-api/internal/handler"
	"github.com/noah-isme/lms-grading-api/internal/middleware"
	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/internal/service"
	"github.com/noah-isme/lms-grading-api/pkg/config"
	"github.com/noah-isme/lms-grading-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-grading-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-grading-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, app *application, ops *handler.MetricsHandler) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/health", "/ready", "/metrics", "/docs"))

	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	columns := handler.NewGradeColumnHandler(app.columns)
	quizzes := handler.NewColumnQuizHandler(app.quizzes)
	results := handler.NewGradeResultHandler(app.results, app.exports)
	configs := handler.NewGradeConfigHandler(app.configs)

	staff := middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)
	staffOrSelf := middleware.RequireRolesOrSelf(models.RoleTeacher, models.RoleAdmin)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(app.tokens))

	api.GET("/metrics/summary", middleware.RequireRoles(models.RoleAdmin), ops.Summary)

	course := api.Group("/courses/:courseId")
	course.GET("/grade-columns", columns.List)
	course.POST("/grade-columns", staff, columns.Create)
	course.GET("/grade-columns/weight-total", columns.WeightTotal)
	course.GET("/grade-config", configs.Get)
	course.PUT("/grade-config", staff, configs.Update)
	course.GET("/grade-results", staff, results.List)
	course.GET("/grade-results/export", staff, results.Export)
	course.POST("/grade-results/recalculate", staff, results.Recalculate)
	course.GET("/grade-results/:studentId", staffOrSelf, results.Get)
	course.POST("/grade-results/:studentId/calculate", staff, results.Calculate)
	course.PUT("/grade-results/:studentId/final-exam", staff, results.FinalExam)
	course.POST("/quiz-results/changed", staff, results.QuizResultChanged)

	column := api.Group("/grade-columns/:columnId")
	column.PUT("", staff, columns.Update)
	column.POST("/deactivate", staff, columns.Deactivate)
	column.POST("/activate", staff, columns.Activate)
	column.GET("/quizzes", quizzes.List)
	column.POST("/quizzes", staff, quizzes.Assign)
	column.DELETE("/quizzes/:quizId", staff, quizzes.Unassign)
	column.GET("/students/:studentId/average", staffOrSelf, results.ColumnAverage)

	return r
}
