package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/securesign/securesign/internal/access"
	"github.com/securesign/securesign/internal/audit"
	auditdomain "github.com/securesign/securesign/internal/audit/domain"
	"github.com/securesign/securesign/internal/auth"
	authdomain "github.com/securesign/securesign/internal/auth/domain"
	"github.com/securesign/securesign/internal/config"
	"github.com/securesign/securesign/internal/document"
	docdomain "github.com/securesign/securesign/internal/document/domain"
	"github.com/securesign/securesign/internal/events"
	"github.com/securesign/securesign/internal/finalize"
	"github.com/securesign/securesign/internal/invitation"
	invdomain "github.com/securesign/securesign/internal/invitation/domain"
	"github.com/securesign/securesign/internal/providers/email"
	"github.com/securesign/securesign/internal/providers/storage"
	"github.com/securesign/securesign/internal/signature"
	sigdomain "github.com/securesign/securesign/internal/signature/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewHTTPMetrics),
	fx.Provide(NewEngine),
	auth.Module,
	document.Module,
	invitation.Module,
	signature.Module,
	audit.Module,
	events.Module,
	access.Module,
	finalize.Module,
	email.Module,
	storage.Module,
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, httpMetrics *HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log.Named("http")))
	r.Use(MetricsMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine   *gin.Engine
	cfg      config.Config
	log      *zap.Logger
	authsvc  authdomain.Service
	docsvc   docdomain.Service
	invsvc   invdomain.Service
	sigsvc   sigdomain.Service
	auditsvc auditdomain.Service
	engineFn *finalize.Engine
	gate     *access.Gate
	hub      *events.Hub
	storage  storage.Provider
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Cfg      config.Config
	Log      *zap.Logger
	Authsvc  authdomain.Service
	Docsvc   docdomain.Service
	Invsvc   invdomain.Service
	Sigsvc   sigdomain.Service
	Auditsvc auditdomain.Service
	Finalize *finalize.Engine
	Gate     *access.Gate
	Hub      *events.Hub
	Storage  storage.Provider
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:   p.Gin,
		cfg:      p.Cfg,
		log:      p.Log.Named("http.server"),
		authsvc:  p.Authsvc,
		docsvc:   p.Docsvc,
		invsvc:   p.Invsvc,
		sigsvc:   p.Sigsvc,
		auditsvc: p.Auditsvc,
		engineFn: p.Finalize,
		gate:     p.Gate,
		hub:      p.Hub,
		storage:  p.Storage,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterRoutes() {
	authGroup := s.engine.Group("/auth")
	authGroup.POST("/register", s.Register)
	authGroup.POST("/login", s.Login)
	authGroup.GET("/me", s.AuthRequired(), s.Me)

	api := s.engine.Group("/api")

	// -------- Documents --------
	docs := api.Group("/docs")
	docs.POST("", s.AuthRequired(), s.UploadDocument)
	docs.GET("", s.AuthRequired(), s.ListDocuments)
	docs.GET("/token/:token", s.GetDocumentByShareToken)
	docs.GET("/:id", s.OptionalAuth(), s.GetDocument)
	docs.DELETE("/:id", s.AuthRequired(), s.DeleteDocument)
	docs.POST("/share/:id", s.AuthRequired(), s.RotateShareToken)
	docs.POST("/reject/:id", s.OptionalAuth(), s.RejectDocument)
	docs.GET("/download/:id", s.OptionalAuth(), s.DownloadDocument)

	// -------- Invitations --------
	docs.POST("/invite/:id", s.AuthRequired(), s.InviteGuest)
	docs.GET("/invite/:id", s.AuthRequired(), s.ListInvitations)
	docs.DELETE("/invite/:id/:invitationId", s.AuthRequired(), s.RevokeInvitation)

	// -------- Signature fields --------
	sigs := api.Group("/signatures")
	sigs.POST("", s.OptionalAuth(), s.CreateField)
	sigs.GET("/:docId", s.OptionalAuth(), s.ListFields)
	sigs.PUT("/:id", s.OptionalAuth(), s.UpdateField)
	sigs.DELETE("/all/:docId", s.OptionalAuth(), s.ClearFields)
	sigs.DELETE("/:id", s.OptionalAuth(), s.DeleteField)
	sigs.POST("/finalize", s.OptionalAuth(), s.FinalizeDocument)

	// -------- Audit / live events --------
	api.GET("/audit/:docId", s.AuthRequired(), s.ListAuditLogs)
	api.GET("/events/:docId", s.OptionalAuth(), s.StreamDocumentEvents)
}
