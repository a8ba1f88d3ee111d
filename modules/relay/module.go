package relay

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/poornimasewak/nook/events"
	"github.com/poornimasewak/nook/modules/storage"
)

// Module hosts the realtime relay: the connection hub, the presence registry
// and the event consumers that bridge REST-side changes into live rooms.
type Module struct {
	relay      *Relay
	storageMod *storage.Module
	logger     types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
)

// NewModule creates the relay module.
func NewModule(storageMod *storage.Module, logger types.Logger) *Module {
	return &Module{storageMod: storageMod, logger: logger}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "relay"
}

// Dependencies declares module start order.
func (m *Module) Dependencies() []string {
	return []string{"storage"}
}

// SetDependencyServiceContainer satisfies mono.DependentModule. Dependencies
// are wired through the constructor, so the containers are unused.
func (m *Module) SetDependencyServiceContainer(string, types.ServiceContainer) {}

// Start wires the relay against whatever store the storage module opened.
func (m *Module) Start(_ context.Context) error {
	var store Store
	if s := m.storageMod.Store(); s != nil {
		store = s
	} else {
		m.logger.Warn("relay running without persistence, messages are ephemeral")
	}
	m.relay = NewRelay(store, m.logger)
	m.logger.Info("relay module started")
	return nil
}

// Stop closes every live connection.
func (m *Module) Stop(_ context.Context) error {
	count := m.relay.Hub().ClientCount()
	m.relay.Shutdown()
	m.logger.Info("relay module stopped", "clients_closed", count)
	return nil
}

// Health reports connection and presence counts.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connections":  m.relay.Hub().ClientCount(),
			"online_users": m.relay.Registry().Count(),
		},
	}
}

// RegisterEventConsumers subscribes to membership and profile events
// published by the API module.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MembersAddedV1, m.handleMembersAdded, m,
	); err != nil {
		return fmt.Errorf("failed to register MembersAdded consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.ProfileUpdatedV1, m.handleProfileUpdated, m,
	); err != nil {
		return fmt.Errorf("failed to register ProfileUpdated consumer: %w", err)
	}
	m.logger.Info("registered relay event consumers", "events", "MembersAdded, ProfileUpdated")
	return nil
}

func (m *Module) handleMembersAdded(_ context.Context, event events.MembersAddedEvent, _ *mono.Msg) error {
	m.relay.NotifyMembersAdded(event.NookID, event.UserIDs, event.UserNames)
	return nil
}

func (m *Module) handleProfileUpdated(_ context.Context, event events.ProfileUpdatedEvent, _ *mono.Msg) error {
	m.relay.NotifyProfileUpdated(event.UserID, event.Name)
	return nil
}

// Relay returns the relay service for the HTTP module.
func (m *Module) Relay() *Relay {
	return m.relay
}
