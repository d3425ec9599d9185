package main

import (
	"context"
	"errors"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"yt-niche-finder/internal/adapters/keywords"
	"yt-niche-finder/internal/adapters/ranker"
	"yt-niche-finder/internal/adapters/settings"
	"yt-niche-finder/internal/adapters/telegram"
	"yt-niche-finder/internal/domain"
	"yt-niche-finder/internal/infra/cache"
	"yt-niche-finder/internal/infra/config"
	applog "yt-niche-finder/internal/infra/log"
	"yt-niche-finder/internal/infra/metrics"
	"yt-niche-finder/internal/infra/queue"
	"yt-niche-finder/internal/infra/youtube"
	"yt-niche-finder/internal/usecase/scan"
)

// retryWindow ограничивает повторную доставку задачи по времени:
// у очереди нет счётчика попыток, поэтому устаревшие задачи не возвращаются.
const retryWindow = 10 * time.Minute

// jobDedupTTL защищает чат от дубля отчёта при повторной доставке задачи.
const jobDedupTTL = time.Hour

// errRetryLater сигнализирует Once, что ключ дедупликации надо снять:
// задача вернётся в очередь и будет обработана заново.
var errRetryLater = errors.New("задача будет доставлена повторно")

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9090")

	if cfg.RedisAddr == "" {
		logger.Fatal().Msg("worker: не указан адрес Redis (REDIS_ADDR)")
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	jobs := queue.NewRedisScanQueue(rdb, cfg.Queues.Scan)
	searchCache := cache.NewRedis(rdb)

	store := settings.NewFileStore(cfg.SettingsFile)
	stored, err := store.Load()
	if err != nil {
		logger.Warn().Err(err).Msg("worker: файл настроек не прочитан, работаем с дефолтами")
	}

	apiKey := cfg.YouTube.APIKey
	if apiKey == "" {
		apiKey = stored.APIKey
	}
	if apiKey == "" {
		logger.Fatal().Msg("worker: не задан ключ YouTube API (YT_API_KEY или файл настроек)")
	}
	ytClient, err := youtube.NewClient(ctx, youtube.Config{
		APIKey:      apiKey,
		RPS:         cfg.YouTube.RPS,
		CallTimeout: cfg.YouTube.CallTimeout,
		MaxRetries:  cfg.YouTube.MaxRetries,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: не удалось создать клиента YouTube")
	}

	rankBy, ok := ranker.ParseRankKey(cfg.Score.RankBy)
	if !ok {
		logger.Fatal().Str("rank_by", cfg.Score.RankBy).Msg("worker: неизвестный ключ сортировки")
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

	if cfg.Telegram.Token == "" {
		logger.Fatal().Msg("worker: не указан токен Telegram (TG_BOT_TOKEN)")
	}
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: не удалось создать бота")
	}

	w := &jobWorker{
		log:   logger,
		cfg:   cfg,
		svc:   svc,
		bot:   botAPI,
		jobs:  jobs,
		dedup: searchCache,
	}

	logger.Info().Msg("worker: старт")
	w.run(ctx)
	logger.Info().Msg("worker: остановка")
}

type jobWorker struct {
	log   zerolog.Logger
	cfg   config.AppConfig
	svc   *scan.Service
	bot   *tgbotapi.BotAPI
	jobs  domain.ScanQueue
	dedup domain.Cache
}

func (w *jobWorker) run(ctx context.Context) {
	for {
		job, ack, err := w.jobs.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("worker: ошибка чтения очереди")
			continue
		}
		if err := ack(w.process(ctx, job)); err != nil {
			w.log.Error().Err(err).Str("job", job.ID).Msg("worker: не удалось подтвердить задачу")
		}
	}
}

// process выполняет задачу под ключом дедупликации: повторно доставленная,
// но уже обработанная задача молча подтверждается.
func (w *jobWorker) process(ctx context.Context, job domain.ScanJob) bool {
	err := w.dedup.Once("scan:job:"+job.ID, jobDedupTTL, func() error {
		if !w.runJob(ctx, job) {
			return errRetryLater
		}
		return nil
	})
	if errors.Is(err, errRetryLater) {
		return false
	}
	if err != nil {
		// Redis недоступен, дедупликация невозможна. Выполняем без защиты.
		w.log.Warn().Err(err).Str("job", job.ID).Msg("worker: дедупликация недоступна")
		return w.runJob(ctx, job)
	}
	return true
}

// runJob выполняет одно сканирование и отправляет результат в чат.
// Возвращает false только когда задачу имеет смысл доставить повторно.
func (w *jobWorker) runJob(ctx context.Context, job domain.ScanJob) bool {
	w.log.Info().
		Str("job", job.ID).
		Int64("chat", job.ChatID).
		Str("niche", job.Niche).
		Str("cause", string(job.Cause)).
		Msg("worker: задача получена")

	result, err := w.svc.Run(ctx, w.params(job))
	switch {
	case err == nil:
		w.send(job.ChatID, scan.FormatScan(result))
		return true
	case errors.Is(err, scan.ErrEmptyNiche),
		errors.Is(err, scan.ErrNoCandidates),
		errors.Is(err, scan.ErrNoOutliers):
		w.send(job.ChatID, "😔 "+err.Error())
		return true
	case errors.Is(err, scan.ErrAllSearchesFailed):
		w.log.Error().Err(err).Str("job", job.ID).Msg("worker: сканирование не удалось")
		if time.Since(job.RequestedAt) < retryWindow {
			return false
		}
		w.send(job.ChatID, "⚠️ Не удалось выполнить поиск, попробуйте позже.")
		return true
	default:
		w.log.Error().Err(err).Str("job", job.ID).Msg("worker: сканирование не удалось")
		w.send(job.ChatID, "⚠️ Не удалось выполнить поиск, попробуйте позже.")
		return true
	}
}

// params собирает параметры сканирования: поля задачи главнее дефолтов конфига.
func (w *jobWorker) params(job domain.ScanJob) domain.ScanParams {
	p := domain.ScanParams{
		Niche:           job.Niche,
		Days:            job.Days,
		SubLimit:        job.SubLimit,
		SubFloor:        w.cfg.Scan.SubFloor,
		Format:          job.Format,
		MinOutlierRatio: w.cfg.Scan.MinOutlierRatio,
	}
	if p.Days <= 0 {
		p.Days = w.cfg.Scan.Days
	}
	if p.SubLimit == 0 {
		p.SubLimit = w.cfg.Scan.SubLimit
	}
	if p.Format == "" {
		if f, ok := domain.ParseFormatFilter(w.cfg.Scan.Format); ok {
			p.Format = f
		}
	}
	return p
}

func (w *jobWorker) send(chatID int64, text string) {
	if chatID == 0 {
		return
	}
	for _, part := range telegram.SplitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		start := time.Now()
		_, err := w.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			metrics.BotSendErrors.Inc()
			w.log.Error().Err(err).Int64("chat", chatID).Msg("worker: не удалось отправить сообщение")
			return
		}
	}
}
