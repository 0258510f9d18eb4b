package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	catalogdomain "github.com/wecloud/backoffice/internal/catalog/domain"
	"github.com/wecloud/backoffice/internal/clock"
	"github.com/wecloud/backoffice/internal/config"
	invoicedomain "github.com/wecloud/backoffice/internal/invoice/domain"
	notificationdomain "github.com/wecloud/backoffice/internal/notification/domain"
	"github.com/wecloud/backoffice/internal/observability"
	obsmiddleware "github.com/wecloud/backoffice/internal/observability/logger"
	"github.com/wecloud/backoffice/internal/providers/whatsapp"
	subscriberdomain "github.com/wecloud/backoffice/internal/subscriber/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

func registerGin(obsCfg observability.Config, registry *prometheus.Registry) *gin.Engine {
	return NewEngine(obsCfg, registry)
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: s.Engine(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	subscriberSvc subscriberdomain.Service
	catalogSvc    catalogdomain.Service
	invoiceSvc    invoicedomain.Service
	dispatcher    notificationdomain.Dispatcher
	notifications notificationdomain.Repository
	gateway       whatsapp.Provider
	clock         clock.Clock
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	SubscriberSvc subscriberdomain.Service
	CatalogSvc    catalogdomain.Service
	InvoiceSvc    invoicedomain.Service
	Dispatcher    notificationdomain.Dispatcher
	Notifications notificationdomain.Repository
	Gateway       whatsapp.Provider
	Clock         clock.Clock
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		subscriberSvc: p.SubscriberSvc,
		catalogSvc:    p.CatalogSvc,
		invoiceSvc:    p.InvoiceSvc,
		dispatcher:    p.Dispatcher,
		notifications: p.Notifications,
		gateway:       p.Gateway,
		clock:         p.Clock,
	}

	s.registerAPIRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/status", s.Status)

	api.POST("/subscribers", s.CreateSubscriber)
	api.GET("/subscribers", s.ListSubscribers)
	api.GET("/subscribers/:id", s.GetSubscriberByID)
	api.PATCH("/subscribers/:id", s.UpdateSubscriber)
	api.DELETE("/subscribers/:id", s.DeleteSubscriber)

	api.POST("/packages", s.CreatePackage)
	api.GET("/packages", s.ListPackages)
	api.GET("/packages/:id", s.GetPackageByID)
	api.PATCH("/packages/:id", s.UpdatePackage)
	api.DELETE("/packages/:id", s.DeletePackage)

	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices", s.ListInvoices)
	api.GET("/invoices/live", s.StreamInvoiceEvents)
	api.GET("/invoices/revenue", s.TotalRevenue)
	api.POST("/invoices/reclassify", s.ReclassifyInvoices)
	api.POST("/invoices/generate", s.GenerateMonthlyInvoices)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.PATCH("/invoices/:id", s.UpdateInvoice)
	api.DELETE("/invoices/:id", s.DeleteInvoice)
	api.POST("/invoices/:id/pay", s.MarkInvoicePaid)
	api.POST("/invoices/:id/notifications", s.SendNotification)
	api.GET("/invoices/:id/notifications", s.ListNotifications)
	api.POST("/invoices/:id/document", s.SendInvoiceDocument)

	api.POST("/notifications/reminders", s.SendBulkReminders)
	api.POST("/notifications/broadcast", s.SendBroadcast)

	api.GET("/whatsapp/status", s.WhatsAppStatus)
	api.GET("/whatsapp/qr", s.WhatsAppQR)
	api.POST("/whatsapp/restart", s.WhatsAppRestart)
}
