package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"yt-niche-finder/internal/adapters/strategy"
	"yt-niche-finder/internal/adapters/telegram"
	"yt-niche-finder/internal/domain"
	"yt-niche-finder/internal/infra/metrics"
)

// Defaults задаёт параметры сканирования, пока чат их не переопределил.
type Defaults struct {
	Days     int
	SubLimit uint64
	Format   domain.FormatFilter
}

type chatOverrides struct {
	days   int
	format domain.FormatFilter
}

// Handler обслуживает команды бота.
type Handler struct {
	bot       *tgbotapi.BotAPI
	log       zerolog.Logger
	jobs      domain.ScanQueue
	settings  domain.SettingsStore
	analyzer  *strategy.Analyzer
	defaults  Defaults
	mu        sync.Mutex
	overrides map[int64]chatOverrides
}

// NewHandler создаёт обработчик.
func NewHandler(bot *tgbotapi.BotAPI, log zerolog.Logger, jobs domain.ScanQueue, settings domain.SettingsStore, analyzer *strategy.Analyzer, defaults Defaults) *Handler {
	return &Handler{
		bot:       bot,
		log:       log,
		jobs:      jobs,
		settings:  settings,
		analyzer:  analyzer,
		defaults:  defaults,
		overrides: make(map[int64]chatOverrides),
	}
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	h.handleMessage(ctx, upd.Message)
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/start"):
		h.reply(msg.Chat.ID, h.buildStartMessage())
	case strings.HasPrefix(text, "/help"):
		h.reply(msg.Chat.ID, h.buildHelpMessage())
	case strings.HasPrefix(text, "/find"):
		niche := strings.TrimSpace(strings.TrimPrefix(text, "/find"))
		h.handleFind(ctx, msg.Chat.ID, niche)
	case strings.HasPrefix(text, "/strategy"):
		channelID := strings.TrimSpace(strings.TrimPrefix(text, "/strategy"))
		h.handleStrategy(ctx, msg.Chat.ID, channelID)
	case strings.HasPrefix(text, "/limit"):
		payload := strings.TrimSpace(strings.TrimPrefix(text, "/limit"))
		h.handleLimit(msg.Chat.ID, payload)
	case strings.HasPrefix(text, "/days"):
		payload := strings.TrimSpace(strings.TrimPrefix(text, "/days"))
		h.handleDays(msg.Chat.ID, payload)
	case strings.HasPrefix(text, "/format"):
		payload := strings.TrimSpace(strings.TrimPrefix(text, "/format"))
		h.handleFormat(msg.Chat.ID, payload)
	case strings.HasPrefix(text, "/settings"):
		h.handleSettings(msg.Chat.ID)
	default:
		h.reply(msg.Chat.ID, "Неизвестная команда. Используйте /help")
	}
}

func (h *Handler) handleFind(ctx context.Context, chatID int64, niche string) {
	if niche == "" {
		h.reply(chatID, "Отправьте /find <ниша>, например: /find phone repair")
		return
	}
	days, format := h.chatParams(chatID)
	subLimit := h.defaults.SubLimit
	if h.settings != nil {
		if stored, err := h.settings.Load(); err == nil && stored.SubLimit > 0 {
			subLimit = stored.SubLimit
		}
	}
	job := domain.ScanJob{
		ID:          uuid.NewString(),
		ChatID:      chatID,
		Niche:       niche,
		Days:        days,
		SubLimit:    subLimit,
		Format:      format,
		RequestedAt: time.Now().UTC(),
		Cause:       domain.ScanCauseManual,
	}
	if err := h.jobs.Enqueue(ctx, job); err != nil {
		h.log.Error().Err(err).Str("job_id", job.ID).Msg("bot: не удалось поставить задачу")
		h.reply(chatID, "Не удалось запустить сканирование, попробуйте позже.")
		return
	}
	metrics.IncScanForChat(chatID)
	h.reply(chatID, fmt.Sprintf("🔍 Сканирую нишу «%s» за последние %d дн. Это займёт меньше минуты.", niche, days))
}

func (h *Handler) handleStrategy(ctx context.Context, chatID int64, channelID string) {
	if channelID == "" {
		h.reply(chatID, "Отправьте /strategy <id канала> из результатов сканирования")
		return
	}
	result, err := h.analyzer.Analyze(ctx, channelID)
	if err != nil {
		h.log.Error().Err(err).Str("channel", channelID).Msg("bot: анализ канала не удался")
		h.reply(chatID, "Не удалось проанализировать канал, попробуйте позже.")
		return
	}
	words := make([]string, 0, len(result.CommonWords))
	for _, wc := range result.CommonWords {
		words = append(words, wc.Word)
	}
	h.reply(chatID, fmt.Sprintf(
		"📌 Разбор канала %s\nЧастые слова заголовков: %s\nПаттерн: %s\nВаш шанс: %s",
		channelID, strings.Join(words, ", "), result.Pattern, result.Gap))
}

func (h *Handler) handleLimit(chatID int64, payload string) {
	limit, err := strconv.ParseUint(payload, 10, 64)
	if err != nil || limit == 0 {
		h.reply(chatID, "Отправьте /limit <максимум подписчиков>, например: /limit 3000")
		return
	}
	if h.settings != nil {
		stored, loadErr := h.settings.Load()
		if loadErr == nil {
			stored.SubLimit = limit
			if saveErr := h.settings.Save(stored); saveErr != nil {
				h.log.Error().Err(saveErr).Msg("bot: не удалось сохранить настройки")
			}
		}
	}
	h.reply(chatID, fmt.Sprintf("Лимит подписчиков: %d", limit))
}

func (h *Handler) handleDays(chatID int64, payload string) {
	days, err := strconv.Atoi(payload)
	if err != nil || days < 1 || days > 90 {
		h.reply(chatID, "Отправьте /days <1..90>")
		return
	}
	h.mu.Lock()
	ov := h.overrides[chatID]
	ov.days = days
	h.overrides[chatID] = ov
	h.mu.Unlock()
	h.reply(chatID, fmt.Sprintf("Окно поиска: %d дн.", days))
}

func (h *Handler) handleFormat(chatID int64, payload string) {
	format, ok := domain.ParseFormatFilter(payload)
	if !ok {
		h.reply(chatID, "Отправьте /format both, /format shorts или /format long")
		return
	}
	h.mu.Lock()
	ov := h.overrides[chatID]
	ov.format = format
	h.overrides[chatID] = ov
	h.mu.Unlock()
	h.reply(chatID, fmt.Sprintf("Формат видео: %s", format))
}

func (h *Handler) handleSettings(chatID int64) {
	days, format := h.chatParams(chatID)
	subLimit := h.defaults.SubLimit
	if h.settings != nil {
		if stored, err := h.settings.Load(); err == nil && stored.SubLimit > 0 {
			subLimit = stored.SubLimit
		}
	}
	h.reply(chatID, fmt.Sprintf("⚙ Текущие настройки\nОкно: %d дн.\nЛимит подписчиков: %d\nФормат: %s", days, subLimit, format))
}

func (h *Handler) chatParams(chatID int64) (int, domain.FormatFilter) {
	h.mu.Lock()
	ov := h.overrides[chatID]
	h.mu.Unlock()
	days := h.defaults.Days
	if ov.days > 0 {
		days = ov.days
	}
	format := h.defaults.Format
	if ov.format != "" {
		format = ov.format
	}
	return days, format
}

func (h *Handler) buildStartMessage() string {
	return "🚀 Я ищу выбивающиеся видео в нише: ролики, которые набирают просмотры " +
		"сильно выше аудитории своего канала.\n\nОтправьте /find <ниша>, остальное — в /help"
}

func (h *Handler) buildHelpMessage() string {
	return strings.Join([]string{
		"/find <ниша> — запустить сканирование",
		"/days <1..90> — окно поиска в днях",
		"/limit <n> — максимум подписчиков у канала",
		"/format both|shorts|long — фильтр по длительности",
		"/strategy <id канала> — разбор заголовков конкурента",
		"/settings — текущие настройки",
	}, "\n")
}

func (h *Handler) reply(chatID int64, text string) {
	for _, part := range telegram.SplitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		start := time.Now()
		_, err := h.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			metrics.BotSendErrors.Inc()
			h.log.Error().Err(err).Int64("chat", chatID).Msg("bot: не удалось отправить сообщение")
			return
		}
	}
}
