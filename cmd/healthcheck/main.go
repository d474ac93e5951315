// Command healthcheck опрашивает grpc.health.v1 сервера и завершается с кодом 0, если он SERVING.
// Подходит для HEALTHCHECK в Docker и readiness-проб.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"Scribe/internal/grpcclient"
	"Scribe/internal/grpcserver"
)

func main() {
	addr := flag.String("addr", "localhost:9090", "gRPC address of the server")
	service := flag.String("service", grpcserver.ServiceName, "service name to check, empty for the whole server")
	timeout := flag.Duration("timeout", 3*time.Second, "how long to wait for SERVING")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	client, err := grpcclient.NewHealthClient(*addr)
	if err != nil {
		logger.Error("Cannot create health client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := client.WaitForHealth(ctx, *service); err != nil {
		logger.Error("Server is not healthy", "addr", *addr, "service", *service, "error", err)
		client.Close()
		os.Exit(1)
	}
}
