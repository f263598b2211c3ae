package main

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"testing"
	"time"
)

func freeAddr(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	defer listener.Close()
	return fmt.Sprintf("127.0.0.1:%d", listener.Addr().(*net.TCPAddr).Port)
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("OMS_STORAGE_DRIVER", "sqlite")

	if err := run(context.Background(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected config error")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Setenv("OMS_STORAGE_DRIVER", "memory")
	t.Setenv("OMS_HTTP_ADDR", freeAddr(t))
	t.Setenv("OMS_GRPC_ADDR", freeAddr(t))
	t.Setenv("OMS_METRICS_ADDR", freeAddr(t))
	t.Setenv("OMS_LOG_LEVEL", "warn")

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)
	defer cancel()

	// Отмена контекста — штатная остановка, а не ошибка.
	if err := run(ctx, filepath.Join(t.TempDir(), "missing.yaml")); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}
