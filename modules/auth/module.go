package auth

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"

	"github.com/poornimasewak/nook/modules/storage"
)

// Module provides OTP login and token validation to the rest of the system.
type Module struct {
	service     *Service
	storageMod  *storage.Module
	redisClient *redis.Client
	logger      types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new auth module. The storage module supplies the user
// directory; it may be running in unconfigured mode, in which case logins
// produce ephemeral accounts.
func NewModule(storageMod *storage.Module, logger types.Logger) *Module {
	return &Module{
		storageMod: storageMod,
		logger:     logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "auth"
}

// Start wires the OTP store, token manager and code sender.
func (m *Module) Start(ctx context.Context) error {
	otps := m.openOTPStore(ctx)

	var users UserDirectory
	if store := m.storageMod.Store(); store != nil {
		users = store
	}

	m.service = NewService(otps, NewConsoleSender(), NewJWTManager(loadJWTConfig()), users)
	m.logger.Info("Auth module started")
	return nil
}

// openOTPStore returns the Redis-backed store when NOOK_REDIS_ADDR is set and
// reachable, and the in-memory store otherwise.
func (m *Module) openOTPStore(ctx context.Context) OTPStore {
	addr := os.Getenv("NOOK_REDIS_ADDR")
	if addr == "" {
		return NewMemoryOTPStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("NOOK_REDIS_PASSWORD"),
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		m.logger.Warn("Redis unreachable, falling back to in-memory OTP store", "addr", addr, "error", err)
		_ = client.Close()
		return NewMemoryOTPStore()
	}

	m.redisClient = client
	m.logger.Info("OTP store backed by Redis", "addr", addr)
	return NewRedisOTPStore(client)
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	if m.redisClient != nil {
		if err := m.redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close redis client: %w", err)
		}
	}
	m.logger.Info("Auth module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{Healthy: false, Message: "service not initialized"}
	}
	if m.redisClient != nil {
		if err := m.redisClient.Ping(ctx).Err(); err != nil {
			return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("redis ping failed: %v", err)}
		}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

// Service returns the auth service.
func (m *Module) Service() *Service {
	return m.service
}

// loadJWTConfig loads JWT configuration from environment variables.
func loadJWTConfig() JWTConfig {
	config := DefaultJWTConfig()

	if secret := os.Getenv("NOOK_JWT_SECRET"); secret != "" {
		config.SecretKey = secret
	}
	if issuer := os.Getenv("NOOK_JWT_ISSUER"); issuer != "" {
		config.Issuer = issuer
	}

	return config
}
