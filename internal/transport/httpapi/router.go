// Package httpapi публикует операции движка заказов как JSON API поверх chi.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// NewRouter собирает маршруты /v1 и общие middleware.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(handler.logger))
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/orders", handler.CreateOrder)
		r.Route("/orders/{id}", func(r chi.Router) {
			r.Get("/", handler.GetOrder)
			r.Patch("/", handler.UpdateOrder)
			r.Post("/items", handler.AddItem)
			r.Delete("/items/{productId}", handler.RemoveItem)
			r.Put("/items/{itemId}/quantity", handler.UpdateItemQuantity)
			r.Post("/discounts", handler.ApplyDiscount)
			r.Post("/payments", handler.ProcessPayment)
			r.Post("/validate", handler.ValidateOrder)
			r.Get("/timeline", handler.Timeline)
		})
		r.Get("/customers/{id}/orders", handler.ListCustomerOrders)
		r.Post("/shipping/quote", handler.CalculateShipping)
	})

	return r
}

// requestLogger пишет access-лог через logrus вместо middleware.Logger.
func requestLogger(logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			entry := logger.WithFields(log.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			})
			if ww.Status() >= http.StatusInternalServerError {
				entry.Warn("http request failed")
				return
			}
			entry.Debug("http request served")
		})
	}
}
