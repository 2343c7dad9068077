package main

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/cafeflow-backend/pkg/logger"
)

const (
	shutdownTimeout = 15 * time.Second
	drainTimeout    = 10 * time.Second
)

type drainer interface {
	Close(ctx context.Context) error
}

// newServer builds the HTTP server around handler. The channel handed to
// handler is closed as soon as Shutdown starts so long-lived feed streams
// return instead of holding the graceful drain open.
func newServer(addr string, handler func(streamsDone <-chan struct{}) http.Handler) *http.Server {
	streamsDone := make(chan struct{})
	server := &http.Server{
		Addr:              addr,
		Handler:           handler(streamsDone),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server.RegisterOnShutdown(func() { close(streamsDone) })
	return server
}

// shutdown stops accepting requests, waits for in-flight ones and then
// drains the audit queue. Each phase gets its own deadline.
func shutdown(ctx context.Context, server *http.Server, queue drainer, serverTimeout, queueTimeout time.Duration, logg *logger.Logger) error {
	serverCtx, cancel := context.WithTimeout(context.Background(), serverTimeout)
	defer cancel()
	err := server.Shutdown(serverCtx)
	if err != nil {
		logg.Error(ctx, "api.shutdown_incomplete", err)
	}

	queueCtx, cancelQueue := context.WithTimeout(context.Background(), queueTimeout)
	defer cancelQueue()
	if drainErr := queue.Close(queueCtx); drainErr != nil {
		logg.Error(ctx, "audit.drain_failed", drainErr)
	}
	return err
}
