package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты операций для метки result.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// EngineMetrics содержит метрики движка заказов.
type EngineMetrics struct {
	// Счётчики операций по имени и результату
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	discountRejections *prometheus.CounterVec
	discountsApplied   prometheus.Counter

	validations *prometheus.CounterVec
	payments    *prometheus.CounterVec

	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// Сумма последнего рассчитанного тарифа доставки
	lastShippingQuote prometheus.Gauge
}

// NewEngineMetrics создаёт метрики в глобальном реестре.
func NewEngineMetrics() *EngineMetrics {
	return NewEngineMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewEngineMetricsWithRegisterer создаёт метрики в указанном реестре.
func NewEngineMetricsWithRegisterer(registerer prometheus.Registerer) *EngineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &EngineMetrics{
		operations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "oms_engine_operations_total",
			Help: "Total number of order engine operations by result",
		}, []string{"operation", "result"}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "oms_engine_operation_duration_seconds",
			Help:    "Duration of order engine operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"operation"}),
		discountRejections: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "oms_discount_rejections_total",
			Help: "Total number of rejected discounts by eligibility gate",
		}, []string{"gate"}),
		discountsApplied: registerCounter(registerer, prometheus.CounterOpts{
			Name: "oms_discounts_applied_total",
			Help: "Total number of discounts applied to orders",
		}),
		validations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "oms_order_validations_total",
			Help: "Total number of order validations by outcome",
		}, []string{"outcome"}),
		payments: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "oms_payments_total",
			Help: "Total number of payment attempts by outcome",
		}, []string{"outcome"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "oms_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "oms_outbox_events_enqueued_total",
			Help: "Total number of outbox events enqueued",
		}),
		lastShippingQuote: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "oms_last_shipping_quote",
			Help: "Amount of the most recent shipping quote",
		}),
	}
}

// RecordOperation фиксирует результат и длительность операции.
func (m *EngineMetrics) RecordOperation(operation string, err error, duration time.Duration) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	m.operations.WithLabelValues(operation, result).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordDiscountRejected увеличивает счётчик отказов по проверке gate.
func (m *EngineMetrics) RecordDiscountRejected(gate string) {
	m.discountRejections.WithLabelValues(gate).Inc()
}

// RecordDiscountApplied увеличивает счётчик применённых скидок.
func (m *EngineMetrics) RecordDiscountApplied() {
	m.discountsApplied.Inc()
}

// RecordValidation фиксирует исход проверки заказа.
func (m *EngineMetrics) RecordValidation(valid bool) {
	outcome := "passed"
	if !valid {
		outcome = "failed"
	}
	m.validations.WithLabelValues(outcome).Inc()
}

// RecordPayment фиксирует исход оплаты.
func (m *EngineMetrics) RecordPayment(success bool) {
	outcome := "paid"
	if !success {
		outcome = "failed"
	}
	m.payments.WithLabelValues(outcome).Inc()
}

// RecordShippingQuote сохраняет сумму последнего расчёта доставки.
func (m *EngineMetrics) RecordShippingQuote(amount float64) {
	m.lastShippingQuote.Set(amount)
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *EngineMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *EngineMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
