package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"yt-niche-finder/internal/domain"
	"yt-niche-finder/internal/infra/metrics"
)

const (
	// maxPageSize — предел выдачи search.list за один вызов.
	maxPageSize = 50
	// maxBatchSize — предел идентификаторов в одном batch-вызове.
	maxBatchSize = 50

	watchURLBase = "https://youtube.com/watch?v="
)

// WatchURL возвращает ссылку на просмотр видео.
func WatchURL(videoID string) string {
	return watchURLBase + videoID
}

// Config задаёт параметры клиента Data API.
type Config struct {
	APIKey      string
	RPS         float64
	CallTimeout time.Duration
	MaxRetries  uint64
}

// Client — единственная точка сетевого доступа к YouTube Data API v3.
// Все методы возвращают явную ошибку: пустой срез при nil-ошибке означает
// «ничего не найдено», а не сбой вызова.
type Client struct {
	svc         *yt.Service
	limiter     *rate.Limiter
	callTimeout time.Duration
	maxRetries  uint64
}

var _ domain.VideoSource = (*Client)(nil)

// NewClient создаёт клиента Data API по ключу.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("youtube: api key is empty")
	}
	svc, err := yt.NewService(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("youtube: create service: %w", err)
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	return &Client{
		svc:         svc,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RPS), 1),
		callTimeout: cfg.CallTimeout,
		maxRetries:  cfg.MaxRetries,
	}, nil
}

// Search ищет видео по запросу. Нулевое publishedAfter снимает ограничение по дате.
func (c *Client) Search(ctx context.Context, query string, publishedAfter time.Time, limit int64, order domain.SearchOrder) ([]domain.SearchCandidate, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	var resp *yt.SearchListResponse
	err := c.do(ctx, "search", query, func(callCtx context.Context) error {
		call := c.svc.Search.List([]string{"snippet"}).
			Context(callCtx).
			Q(query).
			Type("video").
			Order(string(order)).
			MaxResults(limit)
		if !publishedAfter.IsZero() {
			call = call.PublishedAfter(publishedAfter.UTC().Format(time.RFC3339))
		}
		var callErr error
		resp, callErr = call.Do()
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("youtube: search %q: %w", query, err)
	}
	out := make([]domain.SearchCandidate, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		out = append(out, domain.SearchCandidate{
			VideoID:     item.Id.VideoId,
			ChannelID:   item.Snippet.ChannelId,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			PublishedAt: parseTime(item.Snippet.PublishedAt),
			Keyword:     query,
		})
	}
	return out, nil
}

// ListVideos возвращает статистику видео, не больше 50 идентификаторов за вызов.
func (c *Client) ListVideos(ctx context.Context, ids []string) ([]domain.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > maxBatchSize {
		return nil, fmt.Errorf("youtube: videos batch of %d exceeds %d", len(ids), maxBatchSize)
	}
	var resp *yt.VideoListResponse
	err := c.do(ctx, "videos", "batch", func(callCtx context.Context) error {
		var callErr error
		resp, callErr = c.svc.Videos.List([]string{"statistics", "snippet", "contentDetails"}).
			Context(callCtx).
			Id(ids...).
			MaxResults(maxBatchSize).
			Do()
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("youtube: list videos: %w", err)
	}
	out := make([]domain.Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Snippet == nil || item.Statistics == nil || item.ContentDetails == nil {
			continue
		}
		out = append(out, domain.Video{
			ID:           item.Id,
			ChannelID:    item.Snippet.ChannelId,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			PublishedAt:  parseTime(item.Snippet.PublishedAt),
			ViewCount:    item.Statistics.ViewCount,
			DurationCode: item.ContentDetails.Duration,
			DurationSec:  ParseDuration(item.ContentDetails.Duration),
		})
	}
	return out, nil
}

// ListChannels возвращает статистику каналов, не больше 50 идентификаторов за вызов.
func (c *Client) ListChannels(ctx context.Context, ids []string) ([]domain.Channel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > maxBatchSize {
		return nil, fmt.Errorf("youtube: channels batch of %d exceeds %d", len(ids), maxBatchSize)
	}
	var resp *yt.ChannelListResponse
	err := c.do(ctx, "channels", "batch", func(callCtx context.Context) error {
		var callErr error
		resp, callErr = c.svc.Channels.List([]string{"statistics", "snippet"}).
			Context(callCtx).
			Id(ids...).
			MaxResults(maxBatchSize).
			Do()
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("youtube: list channels: %w", err)
	}
	out := make([]domain.Channel, 0, len(resp.Items))
	for _, item := range resp.Items {
		ch := domain.Channel{ID: item.Id}
		if item.Snippet != nil {
			ch.Title = item.Snippet.Title
		}
		if item.Statistics != nil {
			ch.SubscriberCount = item.Statistics.SubscriberCount
		}
		out = append(out, ch)
	}
	return out, nil
}

// TopVideos возвращает самые просматриваемые видео канала.
func (c *Client) TopVideos(ctx context.Context, channelID string, limit int64) ([]domain.SearchCandidate, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	var resp *yt.SearchListResponse
	err := c.do(ctx, "search", channelID, func(callCtx context.Context) error {
		var callErr error
		resp, callErr = c.svc.Search.List([]string{"snippet"}).
			Context(callCtx).
			ChannelId(channelID).
			Type("video").
			Order(string(domain.SearchOrderViews)).
			MaxResults(limit).
			Do()
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("youtube: top videos of %s: %w", channelID, err)
	}
	out := make([]domain.SearchCandidate, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		out = append(out, domain.SearchCandidate{
			VideoID:     item.Id.VideoId,
			ChannelID:   item.Snippet.ChannelId,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			PublishedAt: parseTime(item.Snippet.PublishedAt),
		})
	}
	return out, nil
}

// do выполняет один вызов API с ограничением частоты, таймаутом и
// ограниченным повтором для временных сбоев. Повторяются только
// идемпотентные чтения, других вызовов у клиента нет.
func (c *Client) do(ctx context.Context, endpoint, target string, fn func(callCtx context.Context) error) error {
	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
		start := time.Now()
		err := fn(callCtx)
		metrics.ObserveNetworkRequest("youtube", endpoint, target, start, err)
		if err == nil {
			metrics.ObserveQuota(endpoint)
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	return backoff.Retry(op, bo)
}

// retryable отделяет временные сбои от окончательных отказов API.
func retryable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	// Сетевые ошибки и таймауты отдельного вызова.
	return true
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
