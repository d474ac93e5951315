package grpcclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var clientLogger = slog.With("component", "grpc-client")

// ErrNotServing - сервер ответил, но статус не SERVING
var ErrNotServing = errors.New("service is not serving")

// HealthClient оборачивает grpc.health.v1 клиент
type HealthClient struct {
	conn   *grpc.ClientConn
	client healthpb.HealthClient
}

// NewHealthClient создает клиент к address. Соединение устанавливается лениво, при первом вызове.
func NewHealthClient(address string) (*HealthClient, error) {
	// TLS нет: порт административный и слушает внутри сети
	conn, err := grpc.NewClient(address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		clientLogger.Error("Failed to create gRPC client", "error", err, "address", address)
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	return &HealthClient{
		conn:   conn,
		client: healthpb.NewHealthClient(conn),
	}, nil
}

// Check спрашивает статус service один раз
func (c *HealthClient) Check(ctx context.Context, service string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	resp, err := c.client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		clientLogger.Error("Health check failed", "error", err, "service", service)
		return fmt.Errorf("health check: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", ErrNotServing, resp.GetStatus())
	}
	return nil
}

// WaitForHealth повторяет Check, пока сервис не станет SERVING или не кончится ctx
func (c *HealthClient) WaitForHealth(ctx context.Context, service string) error {
	backoff := 200 * time.Millisecond
	for {
		err := c.Check(ctx, service)
		if err == nil {
			clientLogger.Info("Health check passed", "service", service)
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for health: %w (last error: %v)", ctx.Err(), err)
		case <-time.After(backoff):
		}

		if backoff < time.Second {
			backoff = min(backoff*2, time.Second)
		}
	}
}

func (c *HealthClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
