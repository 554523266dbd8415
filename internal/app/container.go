package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/acme/counsel-crm/internal/config"
	"github.com/acme/counsel-crm/internal/engine"
	"github.com/acme/counsel-crm/internal/infra/db"
	"github.com/acme/counsel-crm/internal/infra/redis"
	"github.com/acme/counsel-crm/internal/queue"
	"github.com/acme/counsel-crm/internal/repository"
	pgrepo "github.com/acme/counsel-crm/internal/repository/postgres"
	scyllarepo "github.com/acme/counsel-crm/internal/repository/scylla"
	"github.com/acme/counsel-crm/pkg/logger"
)

// Container wires together shared infrastructure dependencies.
type Container struct {
	Config *config.Config
	Logger *logger.Logger

	Postgres *db.Postgres
	Scylla   *db.Scylla
	Redis    *redis.Client
	Kafka    *queue.Kafka

	aggregator *engine.Aggregator

	// lazily initialised components
	components struct {
		once         sync.Once
		repositories *Repositories
		services     *Services
		publishers   *Publishers
	}
}

// Repositories bundles the persistence adapters.
type Repositories struct {
	Tasks      repository.TaskRepository
	Leads      repository.LeadRepository
	Counselors repository.CounselorRepository
	Activity   repository.ActivityStore
}

// Services bundles the engine components.
type Services struct {
	Aggregator *engine.Aggregator
	Lifecycle  *engine.Lifecycle
	Dashboard  *engine.Dashboard
}

// Publishers bundles the Kafka event publishers.
type Publishers struct {
	Events *queue.EventPublisher
	Alerts *queue.AlertPublisher
}

// Build constructs a container for the given configuration path.
func Build(ctx context.Context, configPath string) (*Container, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	lg, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, err
	}

	aggregator, err := engine.NewAggregator(cfg.Engine, lg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap aggregator: %w", err)
	}

	pg, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("bootstrap postgres: %w", err)
	}

	scylla, err := db.NewScylla(cfg.Scylla)
	if err != nil {
		return nil, fmt.Errorf("bootstrap scylla: %w", err)
	}

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}

	kafka, err := queue.NewKafka(cfg.Kafka)
	if err != nil {
		return nil, fmt.Errorf("bootstrap kafka: %w", err)
	}

	container := &Container{
		Config:     cfg,
		Logger:     lg,
		Postgres:   pg,
		Scylla:     scylla,
		Redis:      redisClient,
		Kafka:      kafka,
		aggregator: aggregator,
	}

	return container, nil
}

func (c *Container) initComponents() {
	c.components.once.Do(func() {
		repos := &Repositories{
			Tasks:      pgrepo.NewTaskRepository(c.Postgres.DB()),
			Leads:      pgrepo.NewLeadRepository(c.Postgres.DB()),
			Counselors: pgrepo.NewCounselorRepository(c.Postgres.DB()),
			Activity:   scyllarepo.NewActivityStore(c.Scylla.Session()),
		}

		publishers := &Publishers{
			Events: queue.NewEventPublisher(c.Kafka, c.Config.Kafka.TaskEventTopic, c.Config.Kafka.LeadEventTopic),
			Alerts: queue.NewAlertPublisher(c.Kafka, c.Config.Kafka.AlertTopic),
		}

		cache := redis.NewDashboardCache(c.Redis.Inner(), c.Config.Dashboard.CacheTTL)

		services := &Services{
			Aggregator: c.aggregator,
			Lifecycle: engine.NewLifecycle(
				repos.Tasks,
				repos.Leads,
				repos.Counselors,
				repos.Activity,
				publishers.Events,
				cache,
				c.Config.Engine,
				c.Logger,
			),
			Dashboard: engine.NewDashboard(
				repos.Tasks,
				repos.Leads,
				repos.Activity,
				c.aggregator,
				cache,
				c.Config.Dashboard,
				c.Logger,
			),
		}

		c.components.repositories = repos
		c.components.publishers = publishers
		c.components.services = services
	})
}

// Repositories exposes initialized repositories.
func (c *Container) Repositories() *Repositories {
	c.initComponents()
	return c.components.repositories
}

// Services exposes initialized engine services.
func (c *Container) Services() *Services {
	c.initComponents()
	return c.components.services
}

// Publishers exposes Kafka publishers.
func (c *Container) Publishers() *Publishers {
	c.initComponents()
	return c.components.publishers
}

// Close releases all held resources.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if p := c.components.publishers; p != nil {
		if p.Events != nil {
			if err := p.Events.Close(); err != nil {
				errs = append(errs, fmt.Errorf("event publisher close: %w", err))
			}
		}
		if p.Alerts != nil {
			if err := p.Alerts.Close(); err != nil {
				errs = append(errs, fmt.Errorf("alert publisher close: %w", err))
			}
		}
	}
	if c.Kafka != nil {
		if err := c.Kafka.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka close: %w", err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if c.Scylla != nil {
		if err := c.Scylla.Close(); err != nil {
			errs = append(errs, fmt.Errorf("scylla close: %w", err))
		}
	}
	if c.Postgres != nil {
		if err := c.Postgres.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres close: %w", err))
		}
	}
	if c.Logger != nil {
		c.Logger.Sync()
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// EnsureTopics ensures required Kafka topics exist.
func (c *Container) EnsureTopics(ctx context.Context) error {
	topics := make([]string, 0, 3)
	for _, topic := range []string{c.Config.Kafka.TaskEventTopic, c.Config.Kafka.LeadEventTopic, c.Config.Kafka.AlertTopic} {
		if topic != "" {
			topics = append(topics, topic)
		}
	}
	if len(topics) == 0 {
		return nil
	}
	return c.Kafka.EnsureTopics(ctx, topics, 12, 1)
}
