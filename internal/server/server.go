package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/propline/propline/internal/billing"
	billingdomain "github.com/propline/propline/internal/billing/domain"
	"github.com/propline/propline/internal/clock"
	"github.com/propline/propline/internal/config"
	"github.com/propline/propline/internal/feetype"
	feetypedomain "github.com/propline/propline/internal/feetype/domain"
	"github.com/propline/propline/internal/lease"
	leasedomain "github.com/propline/propline/internal/lease/domain"
	"github.com/propline/propline/internal/lock"
	"github.com/propline/propline/internal/meterreading"
	meterreadingdomain "github.com/propline/propline/internal/meterreading/domain"
	"github.com/propline/propline/internal/observability"
	obsmiddleware "github.com/propline/propline/internal/observability/logger"
	obsmetrics "github.com/propline/propline/internal/observability/metrics"
	obstracing "github.com/propline/propline/internal/observability/tracing"
	"github.com/propline/propline/internal/payment"
	paymentdomain "github.com/propline/propline/internal/payment/domain"
	"github.com/propline/propline/internal/property"
	propertydomain "github.com/propline/propline/internal/property/domain"
	"github.com/propline/propline/internal/providers/pdf"
	"github.com/propline/propline/internal/unitfee"
	unitfeedomain "github.com/propline/propline/internal/unitfee/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	fx.Provide(pdf.New),
	lock.Module,
	property.Module,
	lease.Module,
	feetype.Module,
	unitfee.Module,
	meterreading.Module,
	billing.Module,
	payment.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
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
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	genID      *snowflake.Node
	clock      clock.Clock
	billingCfg *config.BillingConfigHolder

	propertySvc     propertydomain.Service
	leaseSvc        leasedomain.Service
	feeTypeSvc      feetypedomain.Service
	unitFeeSvc      unitfeedomain.Service
	meterReadingSvc meterreadingdomain.Service
	billingSvc      billingdomain.Service
	paymentSvc      paymentdomain.Service
	pdfProvider     pdf.Provider
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	GenID      *snowflake.Node
	Clock      clock.Clock
	BillingCfg *config.BillingConfigHolder

	PropertySvc     propertydomain.Service
	LeaseSvc        leasedomain.Service
	FeeTypeSvc      feetypedomain.Service
	UnitFeeSvc      unitfeedomain.Service
	MeterReadingSvc meterreadingdomain.Service
	BillingSvc      billingdomain.Service
	PaymentSvc      paymentdomain.Service
	PDFProvider     pdf.Provider
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		genID:      p.GenID,
		clock:      p.Clock,
		billingCfg: p.BillingCfg,

		propertySvc:     p.PropertySvc,
		leaseSvc:        p.LeaseSvc,
		feeTypeSvc:      p.FeeTypeSvc,
		unitFeeSvc:      p.UnitFeeSvc,
		meterReadingSvc: p.MeterReadingSvc,
		billingSvc:      p.BillingSvc,
		paymentSvc:      p.PaymentSvc,
		pdfProvider:     p.PDFProvider,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")
	api.Use(s.CompanyContext())

	api.GET("/properties", s.ListProperties)
	api.POST("/properties", s.CreateProperty)
	api.GET("/units", s.ListUnits)
	api.POST("/units", s.CreateUnit)
	api.GET("/units/:id", s.GetUnit)

	api.POST("/tenants", s.CreateTenant)
	api.GET("/leases", s.ListLeases)
	api.POST("/leases", s.CreateLease)
	api.POST("/leases/:id/end", s.EndLease)

	api.GET("/fee-types", s.ListFeeTypes)
	api.POST("/fee-types", s.CreateFeeType)
	api.GET("/fee-types/:id", s.GetFeeType)
	api.PATCH("/fee-types/:id", s.UpdateFeeType)
	api.DELETE("/fee-types/:id", s.DeactivateFeeType)

	api.GET("/unit-fees", s.ListUnitFees)
	api.PUT("/unit-fees", s.UpsertUnitFee)
	api.DELETE("/unit-fees/:id", s.RemoveUnitFee)

	api.GET("/meter-readings", s.ListMeterReadings)
	api.POST("/meter-readings", s.CreateMeterReading)

	api.POST("/billings/generate", s.GenerateBillings)
	api.GET("/billings", s.ListBillings)
	api.GET("/billings/:id", s.GetBillingByID)
	api.POST("/billings/:id/cancel", s.CancelBilling)
	api.GET("/billings/:id/document", s.GetBillingDocument)

	api.POST("/payments", s.RecordPayment)
	api.GET("/billings/:id/payments", s.ListBillingPayments)
}
