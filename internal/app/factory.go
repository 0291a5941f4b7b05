package app

import (
	"allocationservice/internal/consumer"
	"allocationservice/internal/handlers"
	"allocationservice/internal/service"
)

// ServiceFactory creates business logic services with their dependencies
type ServiceFactory struct {
	container *Container
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(container *Container) *ServiceFactory {
	return &ServiceFactory{
		container: container,
	}
}

// CreateAllocationService creates the allocation service over the container's repository
func (f *ServiceFactory) CreateAllocationService() service.Service {
	return service.NewService(f.container.Repository(), f.container.Logger(), f.container.Tracer(),
		service.WithMeter(f.container.Meter()),
	)
}

// CreateMessageHandler creates a new message handler instance
func (f *ServiceFactory) CreateMessageHandler(svc service.Service) handlers.MessageHandler {
	return handlers.NewMessageHandler(svc, f.container.MessageProducer(), f.container.Logger())
}

// CreateConsumerService wires the Kafka read loop to the handler
func (f *ServiceFactory) CreateConsumerService(handler handlers.MessageHandler) consumer.ConsumerService {
	return consumer.NewConsumerService(f.container.MessageConsumer(), handler, f.container.Logger())
}
