package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shieldmail/internal/classifier"
	"shieldmail/internal/config"
	"shieldmail/internal/handler"
	"shieldmail/internal/store"
)

type Server struct {
	router *gin.Engine
	loader *classifier.Loader
	engine *classifier.Engine
	store  *store.Store
	cfg    *config.Config
	logger *zap.Logger
}

func NewServer(loader *classifier.Loader, engine *classifier.Engine, st *store.Store, cfg *config.Config, logger *zap.Logger) *Server {
	router := gin.Default()

	// CORS for the web frontend
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
	}))

	s := &Server{
		router: router,
		loader: loader,
		engine: engine,
		store:  st,
		cfg:    cfg,
		logger: logger,
	}

	// Setup routes
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	predictionHandler := handler.NewPredictionHandler(s.loader, s.engine, s.store, s.logger)
	statsHandler := handler.NewStatsHandler(s.store, s.logger)
	sampleHandler := handler.NewSampleDataHandler(s.loader, s.engine, s.store, s.logger)
	systemHandler := handler.NewSystemHandler(s.loader, s.logger)

	s.router.GET("/", systemHandler.Root)

	api := s.router.Group("/api")
	{
		api.GET("/health", systemHandler.Health)
		api.GET("/model/info", systemHandler.ModelInfo)

		api.POST("/predict", predictionHandler.Predict)
		api.POST("/batch-predict", predictionHandler.BatchPredict)
		api.GET("/predictions", predictionHandler.GetAll)
		api.GET("/predictions/:id", predictionHandler.GetByID)
		api.PUT("/predictions/:id", predictionHandler.UpdateFeedback)
		api.DELETE("/predictions/:id", predictionHandler.Delete)

		api.GET("/stats", statsHandler.GetStats)
		api.POST("/generate-sample-data", sampleHandler.Generate)
	}
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	s.logger.Info("Server starting", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
