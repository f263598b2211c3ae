package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
)

func testRunConfig(t *testing.T) Config {
	t.Helper()

	cfg := DefaultConfig()
	cfg.HTTPAddr = fmt.Sprintf("127.0.0.1:%d", findFreePort(t))
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = fmt.Sprintf("127.0.0.1:%d", findFreePort(t))
	cfg.StorageDriver = StorageDriverMemory
	cfg.OutboxPollInterval = 10 * time.Millisecond
	return cfg
}

func TestRun_MemoryGracefulShutdown(t *testing.T) {
	cfg := testRunConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	err := Run(ctx, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_ServesOrdersAPI(t *testing.T) {
	cfg := testRunConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()
	defer func() {
		cancel()
		<-done
	}()

	waitForHTTP(t, "http://"+cfg.MetricsAddr+"/livez")
	waitForHTTP(t, "http://"+cfg.HTTPAddr+"/v1/orders/missing")

	body, err := json.Marshal(map[string]any{
		"customer_id":    "customer-1",
		"customer_email": "jane@example.com",
		"payment_method": domain.PaymentMethodBankTransfer,
		"shipping_address": map[string]any{
			"street":      "1 Main St",
			"city":        "Springfield",
			"state":       "IL",
			"postal_code": "62701",
			"country":     "US",
		},
		"items": []map[string]any{
			{"product_id": "prod-1", "product_name": "Widget", "unit_price": "10", "quantity": 2},
		},
		"created_by": "clerk",
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	resp, err := http.Post("http://"+cfg.HTTPAddr+"/v1/orders", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var order domain.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if order.ID == "" || order.Currency != "USD" {
		t.Fatalf("unexpected order: id=%q currency=%q", order.ID, order.Currency)
	}
}

func TestRun_InvalidStorageDriver(t *testing.T) {
	cfg := testRunConfig(t)
	cfg.StorageDriver = "invalid-driver"

	err := Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error for invalid storage driver")
	}
}

func TestRun_HTTPAddrInUse(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	cfg := testRunConfig(t)
	cfg.HTTPAddr = listener.Addr().String()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := Run(ctx, cfg); err == nil || errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected listen error, got %v", err)
	}
}
