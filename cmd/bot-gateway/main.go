package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"yt-niche-finder/internal/adapters/bot"
	"yt-niche-finder/internal/adapters/settings"
	"yt-niche-finder/internal/adapters/strategy"
	"yt-niche-finder/internal/domain"
	"yt-niche-finder/internal/infra/config"
	applog "yt-niche-finder/internal/infra/log"
	"yt-niche-finder/internal/infra/metrics"
	"yt-niche-finder/internal/infra/queue"
	"yt-niche-finder/internal/infra/youtube"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9090")

	if cfg.RedisAddr == "" {
		logger.Fatal().Msg("gateway: не указан адрес Redis (REDIS_ADDR)")
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	scanQueue := queue.NewRedisScanQueue(rdb, cfg.Queues.Scan)

	store := settings.NewFileStore(cfg.SettingsFile)

	apiKey := resolveAPIKey(cfg, store)
	if apiKey == "" {
		logger.Fatal().Msg("gateway: не задан ключ YouTube API (YT_API_KEY или файл настроек)")
	}
	ytClient, err := youtube.NewClient(ctx, youtube.Config{
		APIKey:      apiKey,
		RPS:         cfg.YouTube.RPS,
		CallTimeout: cfg.YouTube.CallTimeout,
		MaxRetries:  cfg.YouTube.MaxRetries,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("gateway: не удалось создать клиента YouTube")
	}
	analyzer := strategy.NewAnalyzer(ytClient)

	if cfg.Telegram.Token == "" {
		logger.Fatal().Msg("gateway: не указан токен Telegram (TG_BOT_TOKEN)")
	}
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("gateway: не удалось создать бота")
	}

	format, ok := domain.ParseFormatFilter(cfg.Scan.Format)
	if !ok {
		logger.Fatal().Str("format", cfg.Scan.Format).Msg("gateway: неизвестный фильтр формата")
	}
	h := bot.NewHandler(botAPI, logger, scanQueue, store, analyzer, bot.Defaults{
		Days:     cfg.Scan.Days,
		SubLimit: cfg.Scan.SubLimit,
		Format:   format,
	})

	r := chi.NewRouter()
	r.Post("/bot/webhook", func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.HandleUpdate(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: ":8080", Handler: r}
	go func() {
		logger.Info().Msg("gateway: старт")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("gateway: HTTP сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("gateway: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// resolveAPIKey отдаёт приоритет окружению, затем файлу настроек.
func resolveAPIKey(cfg config.AppConfig, store domain.SettingsStore) string {
	if cfg.YouTube.APIKey != "" {
		return cfg.YouTube.APIKey
	}
	stored, err := store.Load()
	if err != nil {
		return ""
	}
	return stored.APIKey
}
