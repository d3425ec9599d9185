package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"yt-niche-finder/internal/domain"
	"yt-niche-finder/internal/infra/metrics"
)

// ErrEmptyNiche возвращается если ниша не задана.
var ErrEmptyNiche = errors.New("ниша не задана")

// ErrAllSearchesFailed возвращается если ни один поисковый запрос не удался.
var ErrAllSearchesFailed = errors.New("все поисковые запросы завершились ошибкой")

// ErrNoCandidates возвращается если поиск прошёл, но ничего не нашёл.
var ErrNoCandidates = errors.New("по нише ничего не найдено, попробуйте шире")

// ErrNoOutliers возвращается если ни одно видео не прошло фильтры.
var ErrNoOutliers = errors.New("ни одно видео не прошло фильтры")

const (
	maxDays        = 90
	fallbackLimit  = 5
	maxPageSize    = 20
	searchCacheTTL = 15 * time.Minute
)

// Config задаёт размеры стадий пайплайна.
type Config struct {
	Workers       int
	PageSize      int64
	MaxCandidates int
	BatchSize     int
	Deadline      time.Duration
	TopN          int
}

// Service реализует пайплайн поиска выбивающихся видео: расширение ниши,
// параллельный поиск, дедупликация, пакетное обогащение, фильтры и оценка.
type Service struct {
	source domain.VideoSource
	ranker domain.Ranker
	cache  domain.Cache
	expand func(string) []string
	log    zerolog.Logger
	cfg    Config
}

// NewService создаёт сервис сканирования. Кэш может быть nil.
func NewService(source domain.VideoSource, ranker domain.Ranker, cache domain.Cache, expand func(string) []string, logger zerolog.Logger, cfg Config) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	// Выдача на ключевое слово ограничена 20 результатами.
	if cfg.PageSize > maxPageSize {
		cfg.PageSize = maxPageSize
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 50
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > 50 {
		cfg.BatchSize = 50
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = time.Minute
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 3
	}
	return &Service{source: source, ranker: ranker, cache: cache, expand: expand, log: logger, cfg: cfg}
}

// Run выполняет одно сканирование ниши.
func (s *Service) Run(ctx context.Context, params domain.ScanParams) (domain.Scan, error) {
	params.Niche = strings.TrimSpace(params.Niche)
	if params.Niche == "" {
		return domain.Scan{}, ErrEmptyNiche
	}
	if params.Days < 1 {
		params.Days = 1
	}
	if params.Days > maxDays {
		params.Days = maxDays
	}
	if params.Format == "" {
		params.Format = domain.FormatBoth
	}

	metrics.IncScanOverall()
	started := time.Now().UTC()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Deadline)
	defer cancel()

	queries := s.expand(params.Niche)
	publishedAfter := started.AddDate(0, 0, -params.Days)

	candidates, failed := s.searchStage(ctx, queries, publishedAfter)
	stats := domain.ScanStats{Keywords: len(queries), FailedSearches: failed, Candidates: len(candidates)}

	if len(candidates) == 0 {
		metrics.ScanEmptyTotal.Inc()
		if failed > 0 && failed == len(queries) {
			return domain.Scan{}, ErrAllSearchesFailed
		}
		return domain.Scan{}, ErrNoCandidates
	}

	// Лишние кандидаты усекаются, а не разбиваются на новые пакеты:
	// полнота охвата не гарантируется, отзывчивость важнее.
	if len(candidates) > s.cfg.MaxCandidates {
		candidates = candidates[:s.cfg.MaxCandidates]
		stats.Candidates = len(candidates)
	}

	videos, channels := s.enrich(ctx, candidates)
	stats.Enriched = len(videos)

	outliers, rankStats := s.ranker.Rank(params, candidates, videos, channels)
	stats.RankStats = rankStats
	if len(outliers) == 0 {
		metrics.ScanEmptyTotal.Inc()
		return domain.Scan{}, ErrNoOutliers
	}

	finished := time.Now().UTC()
	metrics.ScanBuildSeconds.Observe(finished.Sub(started).Seconds())

	top := outliers
	if len(top) > s.cfg.TopN {
		top = top[:s.cfg.TopN]
	}
	return domain.Scan{
		Params:     params,
		Outliers:   outliers,
		Top:        top,
		Stats:      stats,
		StartedAt:  started,
		FinishedAt: finished,
	}, nil
}

// searchStage выполняет по одному поисковому вызову на запрос в пуле
// воркеров. Каждая задача владеет только своим слотом результата,
// слияние происходит после завершения всех задач.
func (s *Service) searchStage(ctx context.Context, queries []string, publishedAfter time.Time) ([]domain.SearchCandidate, int) {
	results := make([][]domain.SearchCandidate, len(queries))
	errs := make([]error, len(queries))

	sem := make(chan struct{}, s.cfg.Workers)
	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			items, err := s.searchKeyword(ctx, query, publishedAfter)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = items
		}(i, query)
	}
	wg.Wait()

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			metrics.SearchFailuresTotal.Inc()
			s.log.Warn().Err(err).Str("keyword", queries[i]).Msg("scan: поиск по запросу не удался")
		}
	}

	// Дедупликация по идентификатору видео при фиксированном порядке
	// запросов: выигрывает первое вхождение.
	seen := make(map[string]struct{})
	merged := make([]domain.SearchCandidate, 0)
	for _, items := range results {
		for _, item := range items {
			if _, ok := seen[item.VideoID]; ok {
				continue
			}
			seen[item.VideoID] = struct{}{}
			merged = append(merged, item)
		}
	}
	return merged, failed
}

// searchKeyword ищет по одному запросу со свежей выдачей и, как и
// оригинальный поиск по нишам, откатывается на популярную выдачу без
// ограничения по дате, если за окно ничего не нашлось.
func (s *Service) searchKeyword(ctx context.Context, query string, publishedAfter time.Time) ([]domain.SearchCandidate, error) {
	cacheKey := fmt.Sprintf("yt:search:%s:%s", query, publishedAfter.Format("2006-01-02"))
	if cached, ok := s.cachedSearch(cacheKey); ok {
		return cached, nil
	}

	items, err := s.source.Search(ctx, query, publishedAfter, s.cfg.PageSize, domain.SearchOrderDate)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		items, err = s.source.Search(ctx, query, time.Time{}, fallbackLimit, domain.SearchOrderViews)
		if err != nil {
			return nil, err
		}
	}
	s.storeSearch(cacheKey, items)
	return items, nil
}

func (s *Service) cachedSearch(key string) ([]domain.SearchCandidate, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(key)
	if err != nil || len(data) == 0 {
		return nil, false
	}
	var items []domain.SearchCandidate
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	return items, true
}

func (s *Service) storeSearch(key string, items []domain.SearchCandidate) {
	if s.cache == nil || len(items) == 0 {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := s.cache.Set(key, data, searchCacheTTL); err != nil {
		s.log.Debug().Err(err).Str("key", key).Msg("scan: не удалось закэшировать выдачу")
	}
}

// enrich пакетно выгружает статистику видео и затем их каналов.
// Идентификатор, отсутствующий в ответе, просто не попадает в карту —
// так сироты позже молча отбрасываются на стадии фильтрации.
func (s *Service) enrich(ctx context.Context, candidates []domain.SearchCandidate) (map[string]domain.Video, map[string]domain.Channel) {
	videoIDs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		videoIDs = append(videoIDs, c.VideoID)
	}

	videos := make(map[string]domain.Video, len(videoIDs))
	for _, chunk := range chunkStrings(videoIDs, s.cfg.BatchSize) {
		items, err := s.source.ListVideos(ctx, chunk)
		if err != nil {
			s.log.Warn().Err(err).Int("batch", len(chunk)).Msg("scan: пакет видео не получен")
			continue
		}
		for _, v := range items {
			videos[v.ID] = v
		}
	}

	channelIDs := make([]string, 0, len(videos))
	seen := make(map[string]struct{}, len(videos))
	for _, c := range candidates {
		v, ok := videos[c.VideoID]
		if !ok || v.ChannelID == "" {
			continue
		}
		if _, dup := seen[v.ChannelID]; dup {
			continue
		}
		seen[v.ChannelID] = struct{}{}
		channelIDs = append(channelIDs, v.ChannelID)
	}

	channels := make(map[string]domain.Channel, len(channelIDs))
	for _, chunk := range chunkStrings(channelIDs, s.cfg.BatchSize) {
		items, err := s.source.ListChannels(ctx, chunk)
		if err != nil {
			s.log.Warn().Err(err).Int("batch", len(chunk)).Msg("scan: пакет каналов не получен")
			continue
		}
		for _, ch := range items {
			channels[ch.ID] = ch
		}
	}
	return videos, channels
}

// chunkStrings режет список идентификаторов на пакеты фиксированного размера.
func chunkStrings(ids []string, size int) [][]string {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
