// Package app assembles the product expiry tracker: store, event sinks,
// services, HTTP routes and background jobs.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"shelflife/internal/config"
	"shelflife/internal/database"
	"shelflife/internal/events"
	"shelflife/internal/handlers"
	"shelflife/internal/jobs"
	"shelflife/internal/metrics"
	"shelflife/internal/middleware"
	"shelflife/internal/repositories"
	"shelflife/internal/services"
	"shelflife/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// App is a fully wired server.
type App struct {
	Fiber   *fiber.App
	Service *services.ProductService
	Sweep   *jobs.ExpirySweep

	cfg *config.Config
	db  *gorm.DB
	mq  *rabbitmq.Client
}

type options struct {
	logger *log.Logger
	clock  func() time.Time
}

// Option customizes New.
type Option func(*options)

// WithLogger sets the logger events are written to.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock replaces the wall clock used for date checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// New builds the application from cfg.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	o := options{
		logger: log.New(os.Stdout, "", log.LstdFlags),
		clock:  func() time.Time { return time.Now().In(cfg.Location) },
	}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg}

	// --- Store ---
	var (
		repo repositories.ProductRepository
		txm  repositories.TxManager
	)
	if cfg.DBDriver == "memory" {
		mem := repositories.NewMemoryProductRepository()
		repo, txm = mem, mem
	} else {
		db, err := database.Open(cfg.DBDriver, cfg.DatabaseDSN, cfg.Environment)
		if err != nil {
			return nil, err
		}
		a.db = db
		repo = repositories.NewGORMProductRepository(db)
		txm = repositories.NewGORMTxManager(db)
	}

	// --- Events and metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to register http metrics: %w", err)
	}

	sink := events.Multi{events.NewLogSink(o.logger), recorder}
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.RabbitMQQueue})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		a.mq = mq
		sink = append(sink, events.NewAMQPSink(mq))
	}

	// --- Services and jobs ---
	a.Service = services.NewProductService(repo, txm, sink, services.WithClock(o.clock))
	a.Sweep = jobs.NewExpirySweep(a.Service, sink, cfg.NearExpiryDays, cfg.SweepInterval)

	// --- HTTP ---
	a.Fiber = fiber.New(fiber.Config{
		AppName:      "shelflife",
		ErrorHandler: handlers.ErrorHandler(),
	})
	a.Fiber.Use(recover.New())
	a.Fiber.Use(middleware.RequestID())
	a.Fiber.Use(logger.New())
	a.Fiber.Use(httpMetrics.Handler())

	a.Fiber.Get("/health", handlers.HealthCheck(repo))
	a.Fiber.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.NewProductHandler(a.Service, cfg.NearExpiryDays).RegisterRoutes(a.Fiber.Group("/api"))

	pages := handlers.NewPageHandler(a.Service, cfg.NearExpiryDays)
	var pageMiddleware []fiber.Handler
	if cfg.CSRFEnabled {
		csrf := middleware.NewCSRF(cfg.CSRFSecret, cfg.CSRFTTL).WithFailureHandler(pages.HandleFormRejected)
		pageMiddleware = append(pageMiddleware, csrf.Handler())
	}
	pages.RegisterRoutes(a.Fiber, pageMiddleware...)

	return a, nil
}

// Start launches the background jobs. They stop when ctx is done.
func (a *App) Start(ctx context.Context) {
	go a.Sweep.Run(ctx)

	if a.mq != nil && a.cfg.RabbitMQConsume {
		go func() {
			log.Println("Starting RabbitMQ consumer for product events...")
			if err := a.mq.ConsumeProductEvents(logDelivery); err != nil {
				log.Printf("Failed to start RabbitMQ consumer: %v", err)
			}
		}()
	}
}

func logDelivery(msg amqp.Delivery) error {
	log.Printf("Received product event %s (tag %d): %s", msg.Type, msg.DeliveryTag, string(msg.Body))
	return nil
}

// Listen serves HTTP on the configured port until Shutdown.
func (a *App) Listen() error {
	log.Printf("Starting server on port %s", a.cfg.AppPort)
	return a.Fiber.Listen(a.cfg.AppPort)
}

// Shutdown stops the HTTP server and releases the store and broker.
func (a *App) Shutdown() error {
	err := a.Fiber.ShutdownWithTimeout(shutdownTimeout)
	if closeErr := a.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Close releases the broker connection and the database.
func (a *App) Close() error {
	var firstErr error
	if a.mq != nil {
		if err := a.mq.Close(); err != nil {
			firstErr = err
		}
		a.mq = nil
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil && firstErr == nil {
			firstErr = err
		}
		a.db = nil
	}
	return firstErr
}
