package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"allocationservice/internal/consumer"
)

// Application holds all the components and manages the application lifecycle
type Application struct {
	ctx       context.Context
	cancel    context.CancelFunc
	container *Container
	consumer  consumer.ConsumerService
}

// NewApplication creates and fully initializes a new Application instance
func NewApplication(ctx context.Context) (*Application, error) {
	appCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)

	container, err := NewContainer(appCtx)
	if err != nil {
		cancel()
		return nil, err
	}

	return newApplication(appCtx, cancel, container), nil
}

func newApplication(ctx context.Context, cancel context.CancelFunc, container *Container) *Application {
	factory := NewServiceFactory(container)
	allocationService := factory.CreateAllocationService()
	handler := factory.CreateMessageHandler(allocationService)

	app := &Application{
		ctx:       ctx,
		cancel:    cancel,
		container: container,
		consumer:  factory.CreateConsumerService(handler),
	}
	container.Logger().Info("Application initialized successfully")
	return app
}

// Run starts the main event processing loop
func (app *Application) Run() error {
	return app.consumer.Start(app.ctx)
}

// Shutdown gracefully shuts down all application components
func (app *Application) Shutdown() {
	if app.container != nil {
		app.container.Logger().Info("Starting application shutdown...")
	}

	if app.cancel != nil {
		app.cancel()
	}

	if app.container != nil {
		app.container.Shutdown(context.Background())
	}
}
