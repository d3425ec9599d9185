package strategy

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"yt-niche-finder/internal/domain"
)

// ErrNoVideos возвращается если у канала нет видео для анализа.
var ErrNoVideos = errors.New("у канала нет видео для анализа")

var wordRe = regexp.MustCompile(`\b\w+\b`)

const (
	topVideosLimit = 15
	topWordsLimit  = 8
)

// Analyzer строит лексическую сводку по заголовкам канала конкурента.
// Никакого семантического вывода: только частоты слов.
type Analyzer struct {
	source domain.VideoSource
}

// NewAnalyzer создаёт анализатор.
func NewAnalyzer(source domain.VideoSource) *Analyzer {
	return &Analyzer{source: source}
}

// Analyze забирает самые просматриваемые видео канала и считает
// наиболее частые слова их заголовков.
func (a *Analyzer) Analyze(ctx context.Context, channelID string) (domain.ChannelStrategy, error) {
	videos, err := a.source.TopVideos(ctx, channelID, topVideosLimit)
	if err != nil {
		return domain.ChannelStrategy{}, fmt.Errorf("видео канала %s: %w", channelID, err)
	}
	if len(videos) == 0 {
		return domain.ChannelStrategy{}, ErrNoVideos
	}
	titles := make([]string, 0, len(videos))
	for _, v := range videos {
		titles = append(titles, v.Title)
	}
	return domain.ChannelStrategy{
		ChannelID:   channelID,
		CommonWords: CommonWords(titles, topWordsLimit),
		Pattern:     "Повторяющийся формат и сильные хуки в заголовках.",
		Gap:         "Лучшее повествование, обложки или незанятые подтемы.",
	}, nil
}

// CommonWords возвращает limit самых частых слов в заголовках.
// При равенстве частот сохраняется порядок первого появления.
func CommonWords(titles []string, limit int) []domain.WordCount {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, title := range titles {
		for _, word := range wordRe.FindAllString(strings.ToLower(title), -1) {
			if _, ok := counts[word]; !ok {
				order = append(order, word)
			}
			counts[word]++
		}
	}
	out := make([]domain.WordCount, 0, len(order))
	for _, word := range order {
		out = append(out, domain.WordCount{Word: word, Count: counts[word]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
