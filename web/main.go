package main

import (
	"flag"
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gatelog.io/gatelog/config"
	"gatelog.io/gatelog/core"
	"gatelog.io/gatelog/web/handlers"
	"gatelog.io/gatelog/web/middlewares"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	db, err := core.Open(cfg.Database, core.LogLevelWarn)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	if err := core.EnsureInitialAdmin(db, logger); err != nil {
		logger.Fatal("bootstrap admin", zap.Error(err))
	}

	reporter := core.NewReporter(db, cfg.Filtering.ExcludeEmployees, logger)
	ep := &handlers.Endpoint{DB: db, Reporter: reporter, Cfg: cfg, Log: logger}

	r := gin.Default()
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	public := r.Group("/api")
	handlers.RegisterAuthPublic(public, ep)

	protected := r.Group("/api")
	protected.Use(middlewares.Authentication(db))
	{
		handlers.RegisterAuth(protected, ep)
		handlers.RegisterEmployees(protected, ep)
		handlers.RegisterDepartments(protected, ep)
		handlers.RegisterExceptions(protected, ep)
		handlers.RegisterReports(protected, ep)
		handlers.RegisterExport(protected, ep)

		operator := protected.Group("", middlewares.RequireRole(core.RoleOperator))
		handlers.RegisterUpload(operator, ep)
	}

	logger.Info("listening", zap.String("addr", cfg.Server.Addr))
	if err := r.Run(cfg.Server.Addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
