package domain

import "time"

// FormatFilter ограничивает выдачу по длительности ролика.
type FormatFilter string

const (
	// FormatBoth — и Shorts, и полноформатные видео.
	FormatBoth FormatFilter = "both"
	// FormatShorts — только ролики до 60 секунд включительно.
	FormatShorts FormatFilter = "shorts"
	// FormatLong — только ролики длиннее 60 секунд.
	FormatLong FormatFilter = "long"
)

// ShortMaxSeconds — граница между Shorts и полноформатным видео.
const ShortMaxSeconds = 60

// ParseFormatFilter разбирает пользовательское значение фильтра.
func ParseFormatFilter(s string) (FormatFilter, bool) {
	switch FormatFilter(s) {
	case FormatBoth, FormatShorts, FormatLong:
		return FormatFilter(s), true
	case "":
		return FormatBoth, true
	}
	return "", false
}

// SearchCandidate описывает видео из поисковой выдачи до обогащения.
type SearchCandidate struct {
	VideoID     string
	ChannelID   string
	Title       string
	Description string
	PublishedAt time.Time
	Keyword     string
}

// Video содержит полную статистику ролика.
type Video struct {
	ID           string
	ChannelID    string
	Title        string
	Description  string
	PublishedAt  time.Time
	ViewCount    uint64
	DurationCode string
	DurationSec  int
}

// Channel содержит статистику канала.
type Channel struct {
	ID              string
	Title           string
	SubscriberCount uint64
}

// Outlier — видео, набирающее просмотры сильно выше аудитории своего канала.
type Outlier struct {
	VideoID       string  `json:"video_id"`
	Title         string  `json:"title"`
	ChannelID     string  `json:"channel_id"`
	ChannelTitle  string  `json:"channel"`
	Views         uint64  `json:"views"`
	Subs          uint64  `json:"subs"`
	DurationSec   int     `json:"duration_s"`
	ViewsPerDay   float64 `json:"views_per_day"`
	OutlierRatio  float64 `json:"outlier_ratio"`
	ViralScore    float64 `json:"viral_score"`
	EmotionalHits int     `json:"emotional_hits"`
	URL           string  `json:"url"`
}

// ScanParams задаёт параметры одного сканирования ниши.
type ScanParams struct {
	Niche           string
	Days            int
	SubLimit        uint64
	SubFloor        uint64
	Format          FormatFilter
	MinOutlierRatio float64
}

// RankStats — счётчики отброшенных кандидатов на стадии фильтрации.
type RankStats struct {
	DroppedOrphan int
	DroppedSubs   int
	DroppedFormat int
	DroppedRatio  int
}

// ScanStats — счётчики по стадиям пайплайна.
type ScanStats struct {
	Keywords       int
	FailedSearches int
	Candidates     int
	Enriched       int
	RankStats
}

// Scan представляет завершённое сканирование ниши.
type Scan struct {
	Params     ScanParams
	Outliers   []Outlier
	Top        []Outlier
	Stats      ScanStats
	StartedAt  time.Time
	FinishedAt time.Time
}

// Settings — пользовательские настройки, переживающие перезапуск.
type Settings struct {
	APIKey   string `json:"api_key"`
	SubLimit uint64 `json:"sub_limit"`
}

// ChannelStrategy — лексическая сводка по заголовкам канала конкурента.
type ChannelStrategy struct {
	ChannelID   string      `json:"channel_id"`
	CommonWords []WordCount `json:"common_words"`
	Pattern     string      `json:"pattern"`
	Gap         string      `json:"gap"`
}

// WordCount хранит слово и число его вхождений.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}
