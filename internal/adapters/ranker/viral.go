package ranker

import (
	"sort"
	"strings"
	"time"

	"yt-niche-finder/internal/domain"
	"yt-niche-finder/internal/infra/youtube"
)

// Weights задаёт линейную комбинацию составной оценки:
// слагаемое скорости (просмотры в день), слагаемое относительного
// превышения аудитории и бонус за каждое «цепляющее» слово в заголовке.
type Weights struct {
	ViewsPerDay    float64
	OutlierRatio   float64
	EmotionalBonus float64
}

// DefaultWeights возвращает веса по умолчанию.
func DefaultWeights() Weights {
	return Weights{ViewsPerDay: 0.7, OutlierRatio: 0.5, EmotionalBonus: 10}
}

// RankKey выбирает поле сортировки результатов.
type RankKey string

const (
	// RankByViralScore — по составной оценке.
	RankByViralScore RankKey = "viral_score"
	// RankByOutlierRatio — по отношению просмотров к подписчикам.
	RankByOutlierRatio RankKey = "outlier_ratio"
	// RankByViews — по сырым просмотрам.
	RankByViews RankKey = "views"
)

// ParseRankKey разбирает пользовательское значение ключа сортировки.
func ParseRankKey(s string) (RankKey, bool) {
	switch RankKey(s) {
	case RankByViralScore, RankByOutlierRatio, RankByViews:
		return RankKey(s), true
	case "":
		return RankByViralScore, true
	}
	return "", false
}

// emotionalWords — лексикон слов с высокой вовлечённостью.
var emotionalWords = []string{"shocking", "insane", "unbelievable", "satisfying", "exposed", "transformation"}

// EmotionalScore считает слова лексикона, встречающиеся в заголовке.
func EmotionalScore(title string) int {
	lowered := strings.ToLower(title)
	hits := 0
	for _, w := range emotionalWords {
		if strings.Contains(lowered, w) {
			hits++
		}
	}
	return hits
}

// ViralRanker фильтрует обогащённых кандидатов и считает оценки.
type ViralRanker struct {
	weights Weights
	key     RankKey
	now     func() time.Time
}

var _ domain.Ranker = (*ViralRanker)(nil)

// NewViral создаёт ранжировщик.
func NewViral(weights Weights, key RankKey) *ViralRanker {
	return &ViralRanker{weights: weights, key: key, now: func() time.Time { return time.Now().UTC() }}
}

// Rank обходит кандидатов в порядке их обнаружения, применяет фильтры
// и возвращает устойчиво отсортированные по убыванию оценки результаты.
// Видео без записи канала молча отбрасываются.
func (r *ViralRanker) Rank(params domain.ScanParams, candidates []domain.SearchCandidate, videos map[string]domain.Video, channels map[string]domain.Channel) ([]domain.Outlier, domain.RankStats) {
	now := r.now()
	var stats domain.RankStats
	out := make([]domain.Outlier, 0, len(candidates))

	for _, cand := range candidates {
		video, ok := videos[cand.VideoID]
		if !ok {
			stats.DroppedOrphan++
			continue
		}
		channel, ok := channels[video.ChannelID]
		if !ok {
			stats.DroppedOrphan++
			continue
		}

		// Ноль подписчиков не ломает деление и всё ещё вознаграждается.
		subs := channel.SubscriberCount
		if subs == 0 {
			subs = 1
		}
		if params.SubLimit > 0 && subs > params.SubLimit {
			stats.DroppedSubs++
			continue
		}
		if params.SubFloor > 0 && subs < params.SubFloor {
			stats.DroppedSubs++
			continue
		}

		isShort := video.DurationSec <= domain.ShortMaxSeconds
		if params.Format == domain.FormatShorts && !isShort {
			stats.DroppedFormat++
			continue
		}
		if params.Format == domain.FormatLong && isShort {
			stats.DroppedFormat++
			continue
		}

		views := video.ViewCount
		daysLive := int(now.Sub(video.PublishedAt).Hours() / 24)
		if daysLive < 1 {
			daysLive = 1
		}
		viewsPerDay := float64(views) / float64(daysLive)
		ratio := float64(views) / float64(subs)
		hits := EmotionalScore(video.Title)
		score := r.weights.ViewsPerDay*viewsPerDay + r.weights.OutlierRatio*ratio + r.weights.EmotionalBonus*float64(hits)

		if params.MinOutlierRatio > 0 && ratio < params.MinOutlierRatio {
			stats.DroppedRatio++
			continue
		}

		out = append(out, domain.Outlier{
			VideoID:       video.ID,
			Title:         video.Title,
			ChannelID:     channel.ID,
			ChannelTitle:  channel.Title,
			Views:         views,
			Subs:          channel.SubscriberCount,
			DurationSec:   video.DurationSec,
			ViewsPerDay:   viewsPerDay,
			OutlierRatio:  ratio,
			ViralScore:    score,
			EmotionalHits: hits,
			URL:           youtube.WatchURL(video.ID),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return r.sortValue(out[i]) > r.sortValue(out[j]) })
	return out, stats
}

func (r *ViralRanker) sortValue(o domain.Outlier) float64 {
	switch r.key {
	case RankByOutlierRatio:
		return o.OutlierRatio
	case RankByViews:
		return float64(o.Views)
	default:
		return o.ViralScore
	}
}
