package scan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"yt-niche-finder/internal/adapters/ranker"
	"yt-niche-finder/internal/domain"
)

type stubSource struct {
	mu             sync.Mutex
	searchFn       func(query string, publishedAfter time.Time, limit int64, order domain.SearchOrder) ([]domain.SearchCandidate, error)
	videos         []domain.Video
	channels       []domain.Channel
	videoBatches   [][]string
	channelBatches [][]string
}

func (s *stubSource) Search(_ context.Context, query string, publishedAfter time.Time, limit int64, order domain.SearchOrder) ([]domain.SearchCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searchFn == nil {
		return nil, nil
	}
	return s.searchFn(query, publishedAfter, limit, order)
}

func (s *stubSource) ListVideos(_ context.Context, ids []string) ([]domain.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoBatches = append(s.videoBatches, ids)
	out := make([]domain.Video, 0)
	for _, id := range ids {
		for _, v := range s.videos {
			if v.ID == id {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

func (s *stubSource) ListChannels(_ context.Context, ids []string) ([]domain.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelBatches = append(s.channelBatches, ids)
	out := make([]domain.Channel, 0)
	for _, id := range ids {
		for _, ch := range s.channels {
			if ch.ID == id {
				out = append(out, ch)
			}
		}
	}
	return out, nil
}

func (s *stubSource) TopVideos(context.Context, string, int64) ([]domain.SearchCandidate, error) {
	return nil, nil
}

type fakeRanker struct {
	captured []domain.SearchCandidate
}

func (f *fakeRanker) Rank(_ domain.ScanParams, candidates []domain.SearchCandidate, _ map[string]domain.Video, _ map[string]domain.Channel) ([]domain.Outlier, domain.RankStats) {
	f.captured = candidates
	return []domain.Outlier{{VideoID: "stub"}}, domain.RankStats{}
}

func twoKeywords(string) []string { return []string{"q1", "q2"} }

func newTestService(source domain.VideoSource, rk domain.Ranker, expand func(string) []string) *Service {
	return NewService(source, rk, nil, expand, zerolog.Nop(), Config{})
}

func TestRunEmptyNiche(t *testing.T) {
	svc := newTestService(&stubSource{}, &fakeRanker{}, twoKeywords)
	_, err := svc.Run(context.Background(), domain.ScanParams{Niche: "   "})
	if !errors.Is(err, ErrEmptyNiche) {
		t.Fatalf("ожидали ErrEmptyNiche, получили %v", err)
	}
}

func TestRunNoCandidatesIsExplicit(t *testing.T) {
	svc := newTestService(&stubSource{}, &fakeRanker{}, twoKeywords)
	_, err := svc.Run(context.Background(), domain.ScanParams{Niche: "подводное вязание", Days: 7})
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("ожидали ErrNoCandidates, получили %v", err)
	}
}

func TestRunAllSearchesFailed(t *testing.T) {
	source := &stubSource{searchFn: func(string, time.Time, int64, domain.SearchOrder) ([]domain.SearchCandidate, error) {
		return nil, errors.New("quota exceeded")
	}}
	svc := newTestService(source, &fakeRanker{}, twoKeywords)
	_, err := svc.Run(context.Background(), domain.ScanParams{Niche: "cars", Days: 7})
	if !errors.Is(err, ErrAllSearchesFailed) {
		t.Fatalf("ожидали ErrAllSearchesFailed, получили %v", err)
	}
}

func TestRunPartialSearchFailureDoesNotAbort(t *testing.T) {
	source := &stubSource{
		searchFn: func(query string, _ time.Time, _ int64, _ domain.SearchOrder) ([]domain.SearchCandidate, error) {
			if query == "q1" {
				return nil, errors.New("временный сбой")
			}
			return []domain.SearchCandidate{{VideoID: "v1", ChannelID: "c1"}}, nil
		},
	}
	rk := &fakeRanker{}
	svc := newTestService(source, rk, twoKeywords)
	scan, err := svc.Run(context.Background(), domain.ScanParams{Niche: "cars", Days: 7})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if scan.Stats.FailedSearches != 1 {
		t.Fatalf("ожидали 1 неудачный поиск, получили %d", scan.Stats.FailedSearches)
	}
	if len(rk.captured) != 1 {
		t.Fatalf("ожидали 1 кандидата, получили %d", len(rk.captured))
	}
}

func TestRunDeduplicatesFirstWins(t *testing.T) {
	source := &stubSource{
		searchFn: func(query string, _ time.Time, _ int64, _ domain.SearchOrder) ([]domain.SearchCandidate, error) {
			return []domain.SearchCandidate{
				{VideoID: "dup", ChannelID: "c1", Keyword: query},
				{VideoID: "uniq-" + query, ChannelID: "c1", Keyword: query},
			}, nil
		},
	}
	rk := &fakeRanker{}
	svc := newTestService(source, rk, twoKeywords)
	_, err := svc.Run(context.Background(), domain.ScanParams{Niche: "cars", Days: 7})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(rk.captured) != 3 {
		t.Fatalf("ожидали 3 уникальных кандидата, получили %d", len(rk.captured))
	}
	if rk.captured[0].VideoID != "dup" || rk.captured[0].Keyword != "q1" {
		t.Fatalf("ожидали первое вхождение дубликата от q1, получили %+v", rk.captured[0])
	}
}

func TestRunFallbackWhenWindowEmpty(t *testing.T) {
	var orders []domain.SearchOrder
	source := &stubSource{}
	source.searchFn = func(query string, publishedAfter time.Time, limit int64, order domain.SearchOrder) ([]domain.SearchCandidate, error) {
		orders = append(orders, order)
		if order == domain.SearchOrderDate {
			return nil, nil
		}
		if !publishedAfter.IsZero() {
			return nil, errors.New("фолбэк не должен ограничивать дату")
		}
		return []domain.SearchCandidate{{VideoID: "old-" + query, ChannelID: "c1"}}, nil
	}
	rk := &fakeRanker{}
	svc := NewService(source, rk, nil, func(string) []string { return []string{"q1"} }, zerolog.Nop(), Config{})
	_, err := svc.Run(context.Background(), domain.ScanParams{Niche: "cars", Days: 7})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(orders) != 2 || orders[0] != domain.SearchOrderDate || orders[1] != domain.SearchOrderViews {
		t.Fatalf("ожидали поиск по дате и фолбэк по просмотрам, получили %v", orders)
	}
	if len(rk.captured) != 1 {
		t.Fatalf("ожидали 1 кандидата из фолбэка")
	}
}

func TestRunTruncatesExcessCandidates(t *testing.T) {
	source := &stubSource{
		searchFn: func(string, time.Time, int64, domain.SearchOrder) ([]domain.SearchCandidate, error) {
			return []domain.SearchCandidate{
				{VideoID: "v1", ChannelID: "c1"},
				{VideoID: "v2", ChannelID: "c2"},
				{VideoID: "v3", ChannelID: "c3"},
			}, nil
		},
	}
	rk := &fakeRanker{}
	svc := NewService(source, rk, nil, func(string) []string { return []string{"q1"} }, zerolog.Nop(), Config{MaxCandidates: 2})

	scan, err := svc.Run(context.Background(), domain.ScanParams{Niche: "cars", Days: 7})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if scan.Stats.Candidates != 2 {
		t.Fatalf("ожидали усечение до 2 кандидатов, получили %d", scan.Stats.Candidates)
	}
	if len(rk.captured) != 2 || rk.captured[0].VideoID != "v1" || rk.captured[1].VideoID != "v2" {
		t.Fatalf("усечение должно оставлять первых найденных, получили %+v", rk.captured)
	}
	// Лишние кандидаты не порождают дополнительных пакетов обогащения.
	if len(source.videoBatches) != 1 || len(source.videoBatches[0]) != 2 {
		t.Fatalf("ожидали один пакет из 2 видео, получили %v", source.videoBatches)
	}
}

func TestRunClampsSearchPageSize(t *testing.T) {
	var limits []int64
	source := &stubSource{}
	source.searchFn = func(_ string, _ time.Time, limit int64, _ domain.SearchOrder) ([]domain.SearchCandidate, error) {
		limits = append(limits, limit)
		return []domain.SearchCandidate{{VideoID: "v1", ChannelID: "c1"}}, nil
	}
	svc := NewService(source, &fakeRanker{}, nil, func(string) []string { return []string{"q1"} }, zerolog.Nop(), Config{PageSize: 30})

	if _, err := svc.Run(context.Background(), domain.ScanParams{Niche: "cars", Days: 7}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(limits) != 1 || limits[0] != 20 {
		t.Fatalf("ожидали размер страницы 20, получили %v", limits)
	}
}

func TestChunkStrings(t *testing.T) {
	ids := make([]string, 120)
	for i := range ids {
		ids[i] = "id"
	}
	chunks := chunkStrings(ids, 50)
	if len(chunks) != 3 {
		t.Fatalf("ожидали 3 пакета, получили %d", len(chunks))
	}
	if len(chunks[0]) != 50 || len(chunks[1]) != 50 || len(chunks[2]) != 20 {
		t.Fatalf("ожидали размеры [50 50 20], получили [%d %d %d]", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
}

func TestRunEndToEnd(t *testing.T) {
	now := time.Now().UTC()
	published := now.AddDate(0, 0, -2)
	candidates := []domain.SearchCandidate{
		{VideoID: "v1", ChannelID: "c1"},
		{VideoID: "v2", ChannelID: "c2"},
		{VideoID: "v3", ChannelID: "c3"},
	}
	source := &stubSource{
		searchFn: func(query string, _ time.Time, _ int64, _ domain.SearchOrder) ([]domain.SearchCandidate, error) {
			if query == "q1" {
				return candidates, nil
			}
			return nil, errors.New("недоступен")
		},
		videos: []domain.Video{
			{ID: "v1", ChannelID: "c1", Title: "Insane repair", ViewCount: 50000, DurationSec: 30, PublishedAt: published},
			{ID: "v2", ChannelID: "c2", Title: "Workshop tour", ViewCount: 20000, DurationSec: 600, PublishedAt: published},
			{ID: "v3", ChannelID: "c3", Title: "Quick fix", ViewCount: 100, DurationSec: 5, PublishedAt: published},
		},
		channels: []domain.Channel{
			{ID: "c1", Title: "FixIt", SubscriberCount: 200},
			{ID: "c2", Title: "BigShop", SubscriberCount: 8000},
			{ID: "c3", Title: "Tiny", SubscriberCount: 50},
		},
	}
	rk := ranker.NewViral(ranker.DefaultWeights(), ranker.RankByViralScore)
	svc := newTestService(source, rk, twoKeywords)

	scan, err := svc.Run(context.Background(), domain.ScanParams{
		Niche:    "phone repair",
		Days:     7,
		SubLimit: 5000,
		Format:   domain.FormatBoth,
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(scan.Outliers) != 2 {
		t.Fatalf("ожидали 2 выживших видео, получили %d", len(scan.Outliers))
	}
	if scan.Outliers[0].VideoID != "v1" {
		t.Fatalf("ожидали видео с 50000 просмотров первым, получили %s", scan.Outliers[0].VideoID)
	}
	if scan.Outliers[0].OutlierRatio != 250 || scan.Outliers[1].OutlierRatio != 2 {
		t.Fatalf("ожидали отклонения 250 и 2, получили %f и %f", scan.Outliers[0].OutlierRatio, scan.Outliers[1].OutlierRatio)
	}
	if scan.Stats.DroppedSubs != 1 {
		t.Fatalf("ожидали 1 канал свыше лимита, получили %d", scan.Stats.DroppedSubs)
	}
	if len(scan.Top) != 2 {
		t.Fatalf("ожидали топ из 2, получили %d", len(scan.Top))
	}
	if len(source.videoBatches) != 1 || len(source.videoBatches[0]) != 3 {
		t.Fatalf("ожидали один пакет из 3 видео, получили %v", source.videoBatches)
	}
	if len(source.channelBatches) != 1 || len(source.channelBatches[0]) != 3 {
		t.Fatalf("ожидали один пакет из 3 каналов, получили %v", source.channelBatches)
	}
}
