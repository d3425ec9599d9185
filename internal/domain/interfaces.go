package domain

import (
	"context"
	"time"
)

// SearchOrder — политика сортировки поисковой выдачи.
type SearchOrder string

const (
	// SearchOrderDate — сначала свежие.
	SearchOrderDate SearchOrder = "date"
	// SearchOrderViews — сначала популярные.
	SearchOrderViews SearchOrder = "viewCount"
)

// VideoSource — единая точка доступа к API видеоплатформы.
// Пустой срез при nil-ошибке означает «ничего не найдено», а не сбой вызова.
type VideoSource interface {
	// Search ищет видео по запросу. Нулевое publishedAfter снимает ограничение по дате.
	Search(ctx context.Context, query string, publishedAfter time.Time, limit int64, order SearchOrder) ([]SearchCandidate, error)
	// ListVideos возвращает статистику видео, не больше 50 идентификаторов за вызов.
	ListVideos(ctx context.Context, ids []string) ([]Video, error)
	// ListChannels возвращает статистику каналов, не больше 50 идентификаторов за вызов.
	ListChannels(ctx context.Context, ids []string) ([]Channel, error)
	// TopVideos возвращает самые просматриваемые видео канала.
	TopVideos(ctx context.Context, channelID string, limit int64) ([]SearchCandidate, error)
}

// Ranker фильтрует обогащённых кандидатов и считает оценки.
type Ranker interface {
	Rank(params ScanParams, candidates []SearchCandidate, videos map[string]Video, channels map[string]Channel) ([]Outlier, RankStats)
}

// SettingsStore загружает и сохраняет пользовательские настройки.
type SettingsStore interface {
	Load() (Settings, error)
	Save(Settings) error
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}
