package web

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/cascadeflow/cascade/pkg/registry"
)

// API bundles the HTTP surface: stores, registry and validation.
type API struct {
	logger   *slog.Logger
	registry *registry.Registry
	validate *validator.Validate

	definitions *DefinitionStore
	executions  *ExecutionStore
}

func NewAPI(log *slog.Logger, reg *registry.Registry) *API {
	return &API{
		logger:      log,
		registry:    reg,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		definitions: NewDefinitionStore(),
		executions:  NewExecutionStore(),
	}
}

func (a *API) App() *fiber.App {
	handlers := NewAPIHandlers(a.definitions, a.executions, a.registry, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Cascade API")
	})

	d := app.Group("/definitions")
	d.Get("/", handlers.GetDefinitions)
	d.Post("/", handlers.RegisterDefinition)
	d.Get("/:id", handlers.GetDefinition)
	d.Delete("/:id", handlers.DeleteDefinition)

	e := app.Group("/executions")
	e.Get("/", handlers.GetExecutions)
	e.Post("/", handlers.StartExecution)
	e.Get("/:id", handlers.GetExecution)
	e.Post("/:id/pause", handlers.PauseExecution)
	e.Post("/:id/resume", handlers.ResumeExecution)
	e.Post("/:id/cancel", handlers.CancelExecution)

	app.Get("/actions", handlers.ListActions)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
