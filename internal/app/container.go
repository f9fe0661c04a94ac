// Package app wires configuration, storage, messaging and handlers into a
// running service.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/mentorhub/internal/booking/application/commands"
	"github.com/felixgeelhaar/mentorhub/internal/booking/application/queries"
	"github.com/felixgeelhaar/mentorhub/internal/booking/application/subscribers"
	bookingDomain "github.com/felixgeelhaar/mentorhub/internal/booking/domain"
	"github.com/felixgeelhaar/mentorhub/internal/booking/infrastructure/meeting"
	bookingPersistence "github.com/felixgeelhaar/mentorhub/internal/booking/infrastructure/persistence"
	"github.com/felixgeelhaar/mentorhub/internal/booking/infrastructure/readmodel"
	sharedApplication "github.com/felixgeelhaar/mentorhub/internal/shared/application"
	"github.com/felixgeelhaar/mentorhub/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/mentorhub/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/mentorhub/internal/shared/infrastructure/outbox"
	sharedPersistence "github.com/felixgeelhaar/mentorhub/internal/shared/infrastructure/persistence"
	"github.com/felixgeelhaar/mentorhub/pkg/config"
	"github.com/felixgeelhaar/mentorhub/pkg/observability"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Database (one of the two is set, per DatabaseDriver)
	DB       *pgxpool.Pool
	SQLiteDB *sql.DB

	// Redis
	RedisClient *redis.Client
	ReadModel   *readmodel.RedisStore

	// Repositories
	BookingRepo bookingDomain.Repository
	OutboxRepo  outbox.Repository

	// Unit of Work
	UnitOfWork sharedApplication.UnitOfWork

	// Messaging
	EventPublisher eventbus.Publisher
	InProcessBus   *eventbus.InProcessEventBus

	// Meeting provider
	MeetingProvider commands.MeetingProvider

	// Command handlers
	CreateBookingHandler  *commands.CreateBookingHandler
	ApproveBookingHandler *commands.ApproveBookingHandler
	RejectBookingHandler  *commands.RejectBookingHandler
	CancelBookingHandler  *commands.CancelBookingHandler

	// Query handlers
	ListBookingsHandler    *queries.ListBookingsHandler
	GetAvailabilityHandler *queries.GetAvailabilityHandler

	// Subscribers
	ProjectionSubscriber   *subscribers.ProjectionSubscriber
	NotificationSubscriber *subscribers.NotificationSubscriber

	// Health
	Health *observability.HealthRegistry
}

// NewContainer creates and wires all application dependencies.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: logger,
		Health: observability.NewHealthRegistry(),
	}

	if err := c.connectDatabase(ctx); err != nil {
		return nil, err
	}

	if err := c.connectRedis(ctx); err != nil {
		c.Close()
		return nil, err
	}

	if err := c.setupPublisher(); err != nil {
		c.Close()
		return nil, err
	}

	c.setupMeetingProvider()

	// Command handlers
	c.CreateBookingHandler = commands.NewCreateBookingHandler(c.BookingRepo, c.OutboxRepo, c.UnitOfWork)
	c.ApproveBookingHandler = commands.NewApproveBookingHandler(
		c.BookingRepo, c.OutboxRepo, c.UnitOfWork,
		c.MeetingProvider, cfg.JitsiBaseURL, cfg.MeetingTimeout, logger,
	)
	c.RejectBookingHandler = commands.NewRejectBookingHandler(c.BookingRepo, c.OutboxRepo, c.UnitOfWork)
	c.CancelBookingHandler = commands.NewCancelBookingHandler(c.BookingRepo, c.OutboxRepo, c.UnitOfWork)

	// Query handlers
	c.ListBookingsHandler = queries.NewListBookingsHandler(c.BookingRepo)
	c.GetAvailabilityHandler = queries.NewGetAvailabilityHandler(c.BookingRepo)

	// Subscribers, only when a read model backend is present
	if c.ReadModel != nil {
		c.ProjectionSubscriber = subscribers.NewProjectionSubscriber(c.ReadModel, logger)
		c.NotificationSubscriber = subscribers.NewNotificationSubscriber(c.ReadModel, logger)
		if c.InProcessBus != nil {
			c.InProcessBus.RegisterConsumer(c.ProjectionSubscriber)
			c.InProcessBus.RegisterConsumer(c.NotificationSubscriber)
		}
	}

	return c, nil
}

func (c *Container) connectDatabase(ctx context.Context) error {
	switch c.Config.DatabaseDriver {
	case "sqlite":
		dbConn, err := sql.Open("sqlite", c.Config.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open sqlite database: %w", err)
		}
		// SQLite tolerates exactly one writer.
		dbConn.SetMaxOpenConns(1)
		if err := dbConn.PingContext(ctx); err != nil {
			dbConn.Close()
			return fmt.Errorf("failed to ping sqlite database: %w", err)
		}
		if err := migrations.RunSQLiteMigrations(ctx, dbConn); err != nil {
			dbConn.Close()
			return fmt.Errorf("failed to run sqlite migrations: %w", err)
		}

		c.SQLiteDB = dbConn
		c.BookingRepo = bookingPersistence.NewSQLiteBookingRepository(dbConn)
		c.OutboxRepo = outbox.NewSQLiteRepository(dbConn)
		c.UnitOfWork = sharedPersistence.NewSQLiteUnitOfWork(dbConn)
		c.Health.Register("database", func(ctx context.Context) observability.HealthCheckResult {
			if err := dbConn.PingContext(ctx); err != nil {
				return observability.HealthCheckResult{Status: observability.HealthStatusUnhealthy, Message: err.Error()}
			}
			return observability.HealthCheckResult{Status: observability.HealthStatusHealthy}
		})
		c.Logger.Info("connected to sqlite database", "path", c.Config.SQLitePath)

	case "postgres":
		pool, err := pgxpool.New(ctx, c.Config.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("failed to ping database: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return fmt.Errorf("failed to run postgres migrations: %w", err)
		}

		c.DB = pool
		c.BookingRepo = bookingPersistence.NewPostgresBookingRepository(pool)
		c.OutboxRepo = outbox.NewPostgresRepository(pool)
		c.UnitOfWork = sharedPersistence.NewPostgresUnitOfWork(pool)
		c.Health.Register("database", func(ctx context.Context) observability.HealthCheckResult {
			if err := pool.Ping(ctx); err != nil {
				return observability.HealthCheckResult{Status: observability.HealthStatusUnhealthy, Message: err.Error()}
			}
			return observability.HealthCheckResult{Status: observability.HealthStatusHealthy}
		})
		c.Logger.Info("connected to database")

	default:
		return fmt.Errorf("unknown database driver %q", c.Config.DatabaseDriver)
	}

	return nil
}

func (c *Container) connectRedis(ctx context.Context) error {
	if c.Config.RedisURL == "" {
		c.Logger.Warn("no Redis URL configured, read model and live updates disabled")
		return nil
	}

	opt, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		c.Logger.Warn("invalid Redis URL, read model disabled", "error", err)
		return nil
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.Logger.Warn("Redis not available, read model disabled", "error", err)
		return nil
	}

	c.RedisClient = client
	c.ReadModel = readmodel.NewRedisStore(client)
	c.Health.Register("redis", func(ctx context.Context) observability.HealthCheckResult {
		if err := client.Ping(ctx).Err(); err != nil {
			return observability.HealthCheckResult{Status: observability.HealthStatusDegraded, Message: err.Error()}
		}
		return observability.HealthCheckResult{Status: observability.HealthStatusHealthy}
	})
	c.Logger.Info("connected to Redis")
	return nil
}

func (c *Container) setupPublisher() error {
	publisher, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
	if err == nil {
		c.EventPublisher = publisher
		return nil
	}

	if !c.Config.IsDevelopment() {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	// Local mode: dispatch events synchronously inside this process.
	c.Logger.Warn("RabbitMQ not available, using in-process event bus")
	c.InProcessBus = eventbus.NewInProcessEventBus(c.Logger)
	c.EventPublisher = c.InProcessBus
	return nil
}

func (c *Container) setupMeetingProvider() {
	switch c.Config.MeetingProvider {
	case "google":
		c.MeetingProvider = meeting.NewGoogleProvider(meeting.GoogleConfig{
			CalendarID:   c.Config.GoogleCalendarID,
			TokenURL:     c.Config.GoogleTokenURL,
			ClientID:     c.Config.GoogleClientID,
			ClientSecret: c.Config.GoogleClientSecret,
			RefreshToken: c.Config.GoogleRefreshToken,
		}, c.Logger)
		c.Logger.Info("using Google Calendar meeting provider", "calendar_id", c.Config.GoogleCalendarID)
	default:
		c.MeetingProvider = meeting.NewNoopProvider()
	}
}

// NewOutboxProcessor builds an outbox processor over the container's
// repository and publisher.
func (c *Container) NewOutboxProcessor() *outbox.Processor {
	return outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, outbox.ProcessorConfig{
		PollInterval: c.Config.OutboxPollInterval,
		BatchSize:    c.Config.OutboxBatchSize,
		MaxRetries:   c.Config.OutboxMaxRetries,
	}, c.Logger)
}

// Close releases all resources held by the container.
func (c *Container) Close() {
	if closer, ok := c.EventPublisher.(interface{ Close() error }); ok && closer != nil {
		if err := closer.Close(); err != nil {
			c.Logger.Warn("failed to close event publisher", "error", err)
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("failed to close Redis client", "error", err)
		}
	}
	if c.SQLiteDB != nil {
		if err := c.SQLiteDB.Close(); err != nil {
			c.Logger.Warn("failed to close sqlite database", "error", err)
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
