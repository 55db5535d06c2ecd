package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/handler"
	"github.com/mjaychoi/hc-violins/pkg/mq"
)

type Router struct {
	Engine *gin.Engine
}

type Handlers struct {
	Auth        *handler.AuthHandler
	Instruments *handler.InstrumentHandler
	Clients     *handler.ClientHandler
	Sales       *handler.SaleHandler
	Tasks       *handler.TaskHandler
	Invoices    *handler.InvoiceHandler
	Templates   *handler.TemplateHandler
	Settings    *handler.SettingsHandler
	Admin       *handler.AdminHandler
}

func NewRouter(
	h Handlers,
	jwtSecret string,
	logger *zap.Logger,
	db *pgxpool.Pool,
	publisher *mq.Publisher,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))
	r.Use(Metrics())

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		if publisher != nil && !publisher.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/register", h.Auth.Register)
	r.POST("/login", h.Auth.Login)

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.POST("/instruments", h.Instruments.Create)
		auth.GET("/instruments", h.Instruments.List)
		auth.GET("/instruments/:id", h.Instruments.Get)
		auth.PUT("/instruments/:id", h.Instruments.Update)
		auth.DELETE("/instruments/:id", RequireRole("admin"), h.Instruments.Delete)

		auth.POST("/clients", h.Clients.Create)
		auth.GET("/clients", h.Clients.List)
		auth.GET("/clients/:id", h.Clients.Get)
		auth.PUT("/clients/:id", h.Clients.Update)
		auth.DELETE("/clients/:id", RequireRole("admin"), h.Clients.Delete)

		auth.POST("/sales", h.Sales.Create)
		auth.GET("/sales", h.Sales.List)
		auth.GET("/sales/:id", h.Sales.Get)

		auth.POST("/tasks", h.Tasks.Create)
		auth.GET("/tasks", h.Tasks.List)
		auth.GET("/tasks/:id", h.Tasks.Get)
		auth.GET("/tasks/:id/classification", h.Tasks.Classify)
		auth.PUT("/tasks/:id", h.Tasks.Update)
		auth.POST("/tasks/:id/status", h.Tasks.UpdateStatus)
		auth.DELETE("/tasks/:id", RequireRole("admin"), h.Tasks.Delete)

		auth.POST("/invoices", h.Invoices.CreateDraft)
		auth.GET("/invoices", h.Invoices.ListByClient)
		auth.GET("/invoices/:id", h.Invoices.Get)
		auth.POST("/invoices/:id/issue", h.Invoices.Issue)
		auth.POST("/invoices/:id/pay", h.Invoices.MarkPaid)
		auth.GET("/invoices/:id/document", h.Invoices.Document)

		auth.POST("/templates", h.Templates.Create)
		auth.GET("/templates", h.Templates.List)
		auth.GET("/templates/:id", h.Templates.Get)
		auth.PUT("/templates/:id", h.Templates.Update)
		auth.DELETE("/templates/:id", RequireRole("admin"), h.Templates.Delete)
		auth.POST("/templates/:id/render", h.Templates.Render)

		auth.GET("/settings/notifications", h.Settings.Get)
		auth.PUT("/settings/notifications", h.Settings.Update)
	}

	// Admin
	admin := r.Group("/admin")
	admin.Use(AuthMiddleware(jwtSecret), RequireRole("admin"))
	{
		admin.POST("/outbox/:id/replay", h.Admin.ReplayEvent)
		admin.POST("/outbox/replay-failed", h.Admin.ReplayFailed)
		admin.GET("/notification-log", h.Admin.NotificationLog)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
