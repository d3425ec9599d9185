package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	ScanBuildSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scan_build_seconds",
		Help:    "Время полного сканирования ниши",
		Buckets: prometheus.DefBuckets,
	})
	ScanRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scan_requests_total",
		Help: "Общее количество запросов на сканирование",
	})
	ScanRequestsByChat = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scan_requests_by_chat_total",
		Help: "Количество запросов на сканирование по чатам",
	}, []string{"chat_id"})
	ScanEmptyTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scan_empty_total",
		Help: "Сканирования, завершившиеся пустым результатом",
	})
	SearchFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "search_failures_total",
		Help: "Ошибки поисковых запросов по ключевым словам",
	})
	QuotaUnitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "youtube_quota_units_total",
		Help: "Израсходованные квотные единицы YouTube Data API",
	}, []string{"endpoint"})
	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 45, 60},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// Стоимость вызовов в квотных единицах по тарифу Data API v3.
const (
	quotaSearch = 100
	quotaList   = 1
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		ScanBuildSeconds,
		ScanRequestsTotal,
		ScanRequestsByChat,
		ScanEmptyTotal,
		SearchFailuresTotal,
		QuotaUnitsTotal,
		BotSendErrors,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveQuota списывает квотные единицы вызова Data API.
func ObserveQuota(endpoint string) {
	units := quotaList
	if endpoint == "search" {
		units = quotaSearch
	}
	QuotaUnitsTotal.WithLabelValues(endpoint).Add(float64(units))
}

// IncScanOverall увеличивает общий счётчик сканирований.
func IncScanOverall() {
	ScanRequestsTotal.Inc()
}

// IncScanForChat увеличивает счётчик сканирований для чата.
func IncScanForChat(chatID int64) {
	ScanRequestsByChat.WithLabelValues(strconv.FormatInt(chatID, 10)).Inc()
}
