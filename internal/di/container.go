package di

import (
	"github.com/gatherly/rsvp-admission/internal/handler"
	"github.com/gatherly/rsvp-admission/internal/repository"
	"github.com/gatherly/rsvp-admission/internal/service"
	"github.com/gatherly/rsvp-admission/pkg/database"
	"github.com/gatherly/rsvp-admission/pkg/redis"
)

// Container holds all dependencies for the admission service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	EventRepo    repository.EventRepository
	AttendeeRepo repository.AttendeeRepository
	WaitlistRepo repository.WaitlistRepository

	// Publishers
	EventPublisher service.EventPublisher

	// Services
	AdmissionService service.AdmissionService
	FormService      service.FormService
	RecurringService service.RecurringService

	// Handlers
	HealthHandler    *handler.HealthHandler
	AdmissionHandler *handler.AdmissionHandler
	FormHandler      *handler.FormHandler
	RecurringHandler *handler.RecurringHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	Version         string
	DB              *database.PostgresDB
	Redis           *redis.Client
	EventRepo       repository.EventRepository
	AttendeeRepo    repository.AttendeeRepository
	WaitlistRepo    repository.WaitlistRepository
	EventPublisher  service.EventPublisher
	AdmissionConfig *service.AdmissionServiceConfig
	RecurringConfig *service.RecurringServiceConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:             cfg.DB,
		Redis:          cfg.Redis,
		EventRepo:      cfg.EventRepo,
		AttendeeRepo:   cfg.AttendeeRepo,
		WaitlistRepo:   cfg.WaitlistRepo,
		EventPublisher: cfg.EventPublisher,
	}

	// Initialize services
	c.AdmissionService = service.NewAdmissionService(
		c.EventRepo,
		c.AttendeeRepo,
		c.WaitlistRepo,
		c.EventPublisher,
		cfg.AdmissionConfig,
	)
	c.FormService = service.NewFormService()
	c.RecurringService = service.NewRecurringService(c.EventRepo, cfg.RecurringConfig)

	// Initialize handlers
	var db, rds handler.HealthChecker
	if c.DB != nil {
		db = c.DB
	}
	if c.Redis != nil {
		rds = c.Redis
	}
	c.HealthHandler = handler.NewHealthHandler(cfg.Version, db, rds)
	c.AdmissionHandler = handler.NewAdmissionHandler(c.AdmissionService)
	c.FormHandler = handler.NewFormHandler(c.FormService)
	c.RecurringHandler = handler.NewRecurringHandler(c.RecurringService)

	return c
}
