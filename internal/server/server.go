package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/academicyear"
	academicyeardomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/academicyear/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/billingperiod"
	billingperioddomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/billingperiod/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee"
	feedomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/importer"
	importerdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/importer/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/notification"
	notificationdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/notification/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability"
	obsmiddleware "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability/logger"
	obsmetrics "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability/metrics"
	obstracing "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability/tracing"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/otherpayment"
	otherpaymentdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/otherpayment/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/payment"
	paymentdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/payment/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/providers"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/ratelimit"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/student"
	studentdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/student/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	providers.Module,
	ratelimit.Module,
	academicyear.Module,
	billingperiod.Module,
	student.Module,
	notification.Module,
	fee.Module,
	otherpayment.Module,
	payment.Module,
	importer.Module,
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

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
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
	engine          *gin.Engine
	cfg             config.Config
	academicYearSvc academicyeardomain.Service
	periodSvc       billingperioddomain.Service
	studentSvc      studentdomain.Service
	feeSvc          feedomain.Service
	otherPaymentSvc otherpaymentdomain.Service
	notificationSvc notificationdomain.Service
	paymentSvc      paymentdomain.Service
	importSvc       importerdomain.Service
	webhookLimiter  *ratelimit.WebhookLimiter
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	AcademicYearSvc academicyeardomain.Service
	PeriodSvc       billingperioddomain.Service
	StudentSvc      studentdomain.Service
	FeeSvc          feedomain.Service
	OtherPaymentSvc otherpaymentdomain.Service
	NotificationSvc notificationdomain.Service
	PaymentSvc      paymentdomain.Service
	ImportSvc       importerdomain.Service
	WebhookLimiter  *ratelimit.WebhookLimiter `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics       `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		academicYearSvc: p.AcademicYearSvc,
		periodSvc:       p.PeriodSvc,
		studentSvc:      p.StudentSvc,
		feeSvc:          p.FeeSvc,
		otherPaymentSvc: p.OtherPaymentSvc,
		notificationSvc: p.NotificationSvc,
		paymentSvc:      p.PaymentSvc,
		importSvc:       p.ImportSvc,
		webhookLimiter:  p.WebhookLimiter,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerWebhookRoutes()
	svc.registerAdminRoutes()
	svc.registerPortalRoutes()
	svc.registerFallback()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	webhooks := s.engine.Group("/webhooks", s.WebhookRateLimit())
	webhooks.POST("/payments", s.HandlePaymentWebhook)
	webhooks.POST("/payments/:provider", s.HandlePaymentWebhook)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin", s.AdminAuthRequired())

	// -------- Academic years --------
	admin.GET("/academic-years", s.ListAcademicYears)
	admin.POST("/academic-years", s.CreateAcademicYear)
	admin.GET("/academic-years/:id", s.GetAcademicYear)
	admin.POST("/academic-years/:id/activate", s.ActivateAcademicYear)
	admin.DELETE("/academic-years/:id", s.DeleteAcademicYear)

	// -------- Billing periods --------
	admin.GET("/billing-periods", s.ListBillingPeriods)
	admin.POST("/billing-periods", s.CreateBillingPeriod)
	admin.GET("/billing-periods/:id", s.GetBillingPeriod)
	admin.PATCH("/billing-periods/:id", s.UpdateBillingPeriod)
	admin.DELETE("/billing-periods/:id", s.DeleteBillingPeriod)
	admin.GET("/billing-periods/:id/assignable-students", s.ListAssignableStudents)
	admin.POST("/billing-periods/:id/fees", s.AssignFees)

	// -------- Students --------
	admin.GET("/students", s.ListStudents)
	admin.POST("/students", s.CreateStudent)
	admin.POST("/students/import/preview", s.PreviewStudentImport)
	admin.POST("/students/import/commit", s.CommitStudentImport)
	admin.GET("/students/:id", s.GetStudent)
	admin.PATCH("/students/:id", s.UpdateStudent)
	admin.DELETE("/students/:id", s.DeleteStudent)
	admin.POST("/students/:id/password", s.ResetStudentPassword)

	// -------- Fees --------
	admin.GET("/fees", s.ListFees)
	admin.POST("/fees/sweep", s.SweepOverdueFees)
	admin.GET("/fees/:id", s.GetFee)
	admin.DELETE("/fees/:id", s.DeleteFee)
	admin.POST("/fees/:id/settle", s.SettleFee)

	// -------- Other payments --------
	admin.GET("/other-payments", s.ListOtherPayments)
	admin.POST("/other-payments", s.AssignOtherPayments)
	admin.GET("/other-payments/:id", s.GetOtherPayment)
	admin.POST("/other-payments/:id/settle", s.SettleOtherPayment)
	admin.DELETE("/other-payments/:id", s.DeleteOtherPayment)

	// -------- Notifications --------
	admin.GET("/notifications", s.ListNotifications)
}

func (s *Server) registerPortalRoutes() {
	portal := s.engine.Group("/api/portal")
	portal.GET("/students/:id/fees", s.PortalStudentFees)
	portal.GET("/students/:id/other-payments", s.PortalStudentOtherPayments)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
