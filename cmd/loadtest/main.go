package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
	"github.com/vladislavdragonenkov/orderengine/internal/service/orders"
)

const (
	actor             = "loadtest"
	codeTransportErr  = "transport_error"
	codeDeclined      = "declined"
	defaultPrice      = "10.00"
	defaultDiscount   = "1.00"
	maxResponseBodyMB = 1
)

type loadMode string

const (
	modeCreate            loadMode = "create"
	modeCreatePay         loadMode = "create-pay"
	modeCreateDiscountPay loadMode = "create-discount-pay"
)

type config struct {
	addr         string
	total        int
	totalSet     bool
	duration     time.Duration
	concurrency  int
	connections  int
	timeout      time.Duration
	mode         loadMode
	validateRate int
	currency     string
	sku          string
	price        decimal.Decimal
	customerTag  string
	outputPath   string
}

func parseConfig(args []string, output io.Writer) (config, error) {
	var (
		cfg        config
		modeValue  string
		priceValue string
	)

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.addr, "addr", "http://localhost:8080", "order API base URL")
	fs.IntVar(&cfg.total, "total", 400, "total scenarios to execute in count mode; in duration mode only used when explicitly set")
	fs.DurationVar(&cfg.duration, "duration", 0, "optional time-based run duration (e.g. 10m, 15m)")
	fs.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	fs.IntVar(&cfg.connections, "connections", 20, "max HTTP connections to the API")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-request timeout")
	fs.StringVar(&modeValue, "mode", string(modeCreate), "load mode: create | create-pay | create-discount-pay")
	fs.IntVar(&cfg.validateRate, "validate-rate", 0, "percent of scenarios that also call validate (0..100)")
	fs.StringVar(&cfg.currency, "currency", domain.DefaultCurrency, "order currency")
	fs.StringVar(&cfg.sku, "sku", "SKU-LOAD", "order item product id")
	fs.StringVar(&priceValue, "price", defaultPrice, "order item unit price")
	fs.StringVar(&cfg.customerTag, "customer-tag", "load", "customer id prefix")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode

	price, err := decimal.NewFromString(strings.TrimSpace(priceValue))
	if err != nil {
		return cfg, errors.Wrap(err, "parse price")
	}
	cfg.price = price
	cfg.addr = strings.TrimRight(strings.TrimSpace(cfg.addr), "/")

	switch {
	case cfg.addr == "":
		return cfg, errors.New("addr is required")
	case cfg.duration < 0:
		return cfg, errors.New("duration must be >= 0")
	case cfg.duration == 0 && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when duration is not set")
	case cfg.duration > 0 && cfg.totalSet && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	case cfg.concurrency <= 0:
		return cfg, errors.New("concurrency must be > 0")
	case cfg.connections <= 0:
		return cfg, errors.New("connections must be > 0")
	case cfg.timeout <= 0:
		return cfg, errors.New("timeout must be > 0")
	case !cfg.price.GreaterThan(decimal.RequireFromString(defaultDiscount)):
		return cfg, errors.Errorf("price must be > %s", defaultDiscount)
	case cfg.validateRate < 0 || cfg.validateRate > 100:
		return cfg, errors.New("validate-rate must be between 0 and 100")
	case strings.TrimSpace(cfg.currency) == "":
		return cfg, errors.New("currency is required")
	case strings.TrimSpace(cfg.sku) == "":
		return cfg, errors.New("sku is required")
	case strings.TrimSpace(cfg.customerTag) == "":
		return cfg, errors.New("customer-tag is required")
	}

	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch mode := loadMode(strings.TrimSpace(value)); mode {
	case modeCreate, modeCreatePay, modeCreateDiscountPay:
		return mode, nil
	default:
		return "", errors.Errorf("unsupported mode: %s", value)
	}
}

func main() {
	cfg, err := parseConfig(os.Args[1:], os.Stderr)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := run(ctx, cfg, newHTTPClient(cfg))
	printReport(os.Stdout, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

func newHTTPClient(cfg config) *http.Client {
	return &http.Client{
		Timeout: cfg.timeout,
		Transport: &http.Transport{
			MaxConnsPerHost:     cfg.connections,
			MaxIdleConnsPerHost: cfg.connections,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// run гоняет сценарии пулом воркеров и возвращает сводный отчёт.
func run(ctx context.Context, cfg config, httpClient *http.Client) report {
	startedAt := time.Now()
	runID := fmt.Sprintf("%d-%d", startedAt.UnixNano(), os.Getpid())
	col := newCollector()
	api := &apiClient{base: cfg.addr, http: httpClient, col: col}

	jobs := make(chan int, cfg.concurrency*2)
	var wg sync.WaitGroup
	for range cfg.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				_ = runScenario(ctx, api, cfg, id, runID)
			}
		}()
	}

	dispatchJobs(ctx, jobs, cfg)
	wg.Wait()

	return col.buildReport(startedAt, time.Since(startedAt))
}

func dispatchJobs(ctx context.Context, jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

// runScenario проводит один заказ через API в соответствии с режимом.
func runScenario(ctx context.Context, api *apiClient, cfg config, index int, runID string) (err error) {
	start := time.Now()
	code := strconv.Itoa(http.StatusOK)
	defer func() {
		api.col.record(scenarioMethod, time.Since(start), code, err == nil)
	}()

	fail := func(c string, e error) error {
		code = c
		return e
	}

	var order domain.Order
	if c, err := api.call(ctx, "CreateOrder", http.MethodPost, "/v1/orders", newCreateRequest(cfg, index, runID), &order); err != nil {
		return fail(c, err)
	}
	if order.ID == "" {
		return fail(strconv.Itoa(http.StatusInternalServerError), errors.New("create response returned empty order id"))
	}
	ordersPath := "/v1/orders/" + order.ID

	total := order.Total
	if cfg.mode == modeCreateDiscountPay {
		var resp struct {
			DiscountAmount decimal.Decimal `json:"discount_amount"`
		}
		req := orders.DiscountRequest{
			Code:          "LOAD",
			Type:          orders.DiscountFixedAmount,
			Value:         decimal.RequireFromString(defaultDiscount),
			CustomerEmail: order.CustomerEmail,
			AppliedBy:     actor,
		}
		if c, err := api.call(ctx, "ApplyDiscount", http.MethodPost, ordersPath+"/discounts", req, &resp); err != nil {
			return fail(c, err)
		}
		total = total.Sub(resp.DiscountAmount)
	}

	if shouldSample(index, cfg.validateRate) {
		var resp struct {
			Valid bool `json:"valid"`
		}
		req := orders.ValidationRequest{ValidatedBy: actor}
		if c, err := api.call(ctx, "ValidateOrder", http.MethodPost, ordersPath+"/validate", req, &resp); err != nil {
			return fail(c, err)
		}
	}

	if cfg.mode == modeCreate {
		return nil
	}

	var paid struct {
		Paid bool `json:"paid"`
	}
	req := orders.PaymentRequest{
		Method:   domain.PaymentMethodBankTransfer,
		Amount:   total,
		Currency: cfg.currency,
		Instrument: domain.PaymentInstrument{
			BankAccountNumber: "000123456789",
			BankRoutingNumber: "021000021",
		},
		ProcessedBy: actor,
	}
	if c, err := api.call(ctx, "ProcessPayment", http.MethodPost, ordersPath+"/payments", req, &paid); err != nil {
		return fail(c, err)
	}
	if !paid.Paid {
		return fail(codeDeclined, errors.Errorf("payment declined for order %s", order.ID))
	}

	// Отсутствующие ключи PATCH не меняют заказ, поэтому тело собирается картой.
	confirm := map[string]string{"status": string(domain.OrderStatusConfirmed), "updated_by": actor}
	if c, err := api.call(ctx, "ConfirmOrder", http.MethodPatch, ordersPath, confirm, nil); err != nil {
		return fail(c, err)
	}
	return nil
}

func newCreateRequest(cfg config, index int, runID string) orders.CreateOrderRequest {
	customerID := fmt.Sprintf("%s-%s-%d", cfg.customerTag, runID, index)

	item := domain.NewOrderItem(cfg.sku, "Load test item", cfg.price, 1)
	item.Currency = cfg.currency

	return orders.CreateOrderRequest{
		CustomerID:    customerID,
		CustomerEmail: customerID + "@loadtest.local",
		PaymentMethod: domain.PaymentMethodBankTransfer,
		ShippingAddress: &domain.Address{
			Type:       domain.AddressTypeShipping,
			Street:     "1 Load Street",
			City:       "Springfield",
			State:      "IL",
			PostalCode: "62701",
			Country:    "US",
		},
		Items:     []domain.OrderItem{item},
		CreatedBy: actor,
	}
}

func shouldSample(index, rate int) bool {
	if rate <= 0 {
		return false
	}
	if rate >= 100 {
		return true
	}
	return index%100 < rate
}

// apiClient — тонкий JSON-клиент order API, записывающий каждый вызов в collector.
type apiClient struct {
	base string
	http *http.Client
	col  *collector
}

// call выполняет запрос и декодирует ответ в out; возвращает код для отчёта.
func (c *apiClient) call(ctx context.Context, name, method, path string, body, out any) (code string, err error) {
	start := time.Now()
	code = codeTransportErr
	defer func() {
		c.col.record(name, time.Since(start), code, err == nil)
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		return code, errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return code, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return code, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	code = strconv.Itoa(resp.StatusCode)
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyMB<<20))
	if err != nil {
		return code, errors.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return code, errors.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return code, errors.Wrap(err, "decode response")
		}
	}
	return code, nil
}
