package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"yt-niche-finder/internal/adapters/export"
	"yt-niche-finder/internal/adapters/keywords"
	"yt-niche-finder/internal/adapters/ranker"
	"yt-niche-finder/internal/adapters/settings"
	"yt-niche-finder/internal/adapters/strategy"
	"yt-niche-finder/internal/domain"
	"yt-niche-finder/internal/infra/cache"
	"yt-niche-finder/internal/infra/config"
	httpinfra "yt-niche-finder/internal/infra/http"
	applog "yt-niche-finder/internal/infra/log"
	"yt-niche-finder/internal/infra/metrics"
	"yt-niche-finder/internal/infra/youtube"
	"yt-niche-finder/internal/usecase/scan"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := settings.NewFileStore(cfg.SettingsFile)
	stored, err := store.Load()
	if err != nil {
		logger.Warn().Err(err).Msg("api: файл настроек не прочитан, работаем с дефолтами")
	}

	apiKey := cfg.YouTube.APIKey
	if apiKey == "" {
		apiKey = stored.APIKey
	}
	if apiKey == "" {
		logger.Fatal().Msg("api: не задан ключ YouTube API (YT_API_KEY или файл настроек)")
	}
	ytClient, err := youtube.NewClient(ctx, youtube.Config{
		APIKey:      apiKey,
		RPS:         cfg.YouTube.RPS,
		CallTimeout: cfg.YouTube.CallTimeout,
		MaxRetries:  cfg.YouTube.MaxRetries,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось создать клиента YouTube")
	}

	var searchCache domain.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		searchCache = cache.NewRedis(rdb)
	}

	rankBy, ok := ranker.ParseRankKey(cfg.Score.RankBy)
	if !ok {
		logger.Fatal().Str("rank_by", cfg.Score.RankBy).Msg("api: неизвестный ключ сортировки")
	}
	viral := ranker.NewViral(ranker.Weights{
		ViewsPerDay:    cfg.Score.ViewsPerDayWeight,
		OutlierRatio:   cfg.Score.OutlierWeight,
		EmotionalBonus: cfg.Score.EmotionalBonus,
	}, rankBy)

	svc := scan.NewService(ytClient, viral, searchCache, keywords.Expand, logger, scan.Config{
		Workers:       cfg.Scan.Workers,
		PageSize:      cfg.Scan.PageSize,
		MaxCandidates: cfg.Scan.MaxCandidates,
		BatchSize:     cfg.Scan.BatchSize,
		Deadline:      cfg.Scan.Deadline,
		TopN:          cfg.Scan.TopN,
	})

	api := &apiHandler{
		log:      logger,
		cfg:      cfg,
		svc:      svc,
		store:    store,
		analyzer: strategy.NewAnalyzer(ytClient),
	}

	srv := httpinfra.NewServer(logger)
	srv.Router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv.Router.Post("/api/v1/scan", api.handleScan)
	srv.Router.Get("/api/v1/settings", api.handleGetSettings)
	srv.Router.Put("/api/v1/settings", api.handlePutSettings)
	srv.Router.Get("/api/v1/strategy/{channelID}", api.handleStrategy)

	go func() {
		if err := srv.Start(":" + strconv.Itoa(cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("api: HTTP сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: сервер остановлен с ошибкой")
	}
}

type apiHandler struct {
	log      zerolog.Logger
	cfg      config.AppConfig
	svc      *scan.Service
	store    domain.SettingsStore
	analyzer *strategy.Analyzer
}

type scanRequest struct {
	Niche           string  `json:"niche"`
	Days            int     `json:"days"`
	SubLimit        *uint64 `json:"sub_limit"`
	SubFloor        uint64  `json:"sub_floor"`
	Format          string  `json:"format"`
	MinOutlierRatio float64 `json:"min_outlier_ratio"`
}

type scanResponse struct {
	Status   string           `json:"status"`
	Niche    string           `json:"niche"`
	Outliers []domain.Outlier `json:"outliers"`
	Top      []domain.Outlier `json:"top"`
	Stats    scanStats        `json:"stats"`
}

type scanStats struct {
	Keywords       int `json:"keywords"`
	FailedSearches int `json:"failed_searches"`
	Candidates     int `json:"candidates"`
	Enriched       int `json:"enriched"`
	DroppedOrphan  int `json:"dropped_orphan"`
	DroppedSubs    int `json:"dropped_subs"`
	DroppedFormat  int `json:"dropped_format"`
	DroppedRatio   int `json:"dropped_ratio"`
}

func (h *apiHandler) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "некорректный JSON: "+err.Error())
		return
	}

	params := domain.ScanParams{
		Niche:           req.Niche,
		Days:            req.Days,
		SubFloor:        req.SubFloor,
		MinOutlierRatio: req.MinOutlierRatio,
	}
	if req.SubLimit != nil {
		params.SubLimit = *req.SubLimit
	} else {
		params.SubLimit = h.cfg.Scan.SubLimit
	}
	if req.Days <= 0 {
		params.Days = h.cfg.Scan.Days
	}
	if req.Format != "" {
		f, ok := domain.ParseFormatFilter(req.Format)
		if !ok {
			writeError(w, http.StatusBadRequest, "неизвестный формат: "+req.Format)
			return
		}
		params.Format = f
	}

	result, err := h.svc.Run(r.Context(), params)
	switch {
	case err == nil:
	case errors.Is(err, scan.ErrEmptyNiche):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, scan.ErrNoCandidates), errors.Is(err, scan.ErrNoOutliers):
		// Пустой результат отличается от сбоя: это валидный ответ.
		writeJSON(w, http.StatusOK, scanResponse{Status: "empty", Niche: params.Niche})
		return
	case errors.Is(err, scan.ErrAllSearchesFailed):
		writeError(w, http.StatusBadGateway, err.Error())
		return
	default:
		h.log.Error().Err(err).Str("niche", params.Niche).Msg("api: сканирование не удалось")
		writeError(w, http.StatusInternalServerError, "внутренняя ошибка")
		return
	}

	if r.URL.Query().Get("export") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="outliers.csv"`)
		if err := export.WriteCSV(w, result.Outliers); err != nil {
			h.log.Error().Err(err).Msg("api: не удалось записать CSV")
		}
		return
	}

	writeJSON(w, http.StatusOK, scanResponse{
		Status:   "ok",
		Niche:    result.Params.Niche,
		Outliers: result.Outliers,
		Top:      result.Top,
		Stats: scanStats{
			Keywords:       result.Stats.Keywords,
			FailedSearches: result.Stats.FailedSearches,
			Candidates:     result.Stats.Candidates,
			Enriched:       result.Stats.Enriched,
			DroppedOrphan:  result.Stats.DroppedOrphan,
			DroppedSubs:    result.Stats.DroppedSubs,
			DroppedFormat:  result.Stats.DroppedFormat,
			DroppedRatio:   result.Stats.DroppedRatio,
		},
	})
}

func (h *apiHandler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	stored, err := h.store.Load()
	if err != nil {
		h.log.Warn().Err(err).Msg("api: файл настроек не прочитан")
	}
	writeJSON(w, http.StatusOK, stored)
}

func (h *apiHandler) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var s domain.Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "некорректный JSON: "+err.Error())
		return
	}
	if err := h.store.Save(s); err != nil {
		h.log.Error().Err(err).Msg("api: не удалось сохранить настройки")
		writeError(w, http.StatusInternalServerError, "не удалось сохранить настройки")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *apiHandler) handleStrategy(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	result, err := h.analyzer.Analyze(r.Context(), channelID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, strategy.ErrNoVideos):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error().Err(err).Str("channel", channelID).Msg("api: разбор стратегии не удался")
		writeError(w, http.StatusBadGateway, "не удалось получить видео канала")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
