package ranker

import (
	"testing"
	"time"

	"yt-niche-finder/internal/domain"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newTestRanker(key RankKey) *ViralRanker {
	r := NewViral(DefaultWeights(), key)
	r.now = fixedNow
	return r
}

func candidate(videoID string) domain.SearchCandidate {
	return domain.SearchCandidate{VideoID: videoID}
}

func TestRankDropsOrphans(t *testing.T) {
	r := newTestRanker(RankByViralScore)
	videos := map[string]domain.Video{
		"v1": {ID: "v1", ChannelID: "missing", ViewCount: 100, PublishedAt: fixedNow().AddDate(0, 0, -2)},
	}
	out, stats := r.Rank(domain.ScanParams{Format: domain.FormatBoth}, []domain.SearchCandidate{candidate("v1")}, videos, map[string]domain.Channel{})
	if len(out) != 0 {
		t.Fatalf("ожидали пустой результат для сироты, получили %d", len(out))
	}
	if stats.DroppedOrphan != 1 {
		t.Fatalf("ожидали 1 отброшенную сироту, получили %d", stats.DroppedOrphan)
	}
}

func TestRankZeroSubscribersUseFloorOfOne(t *testing.T) {
	r := newTestRanker(RankByViralScore)
	videos := map[string]domain.Video{
		"v1": {ID: "v1", ChannelID: "c1", ViewCount: 500, PublishedAt: fixedNow().AddDate(0, 0, -5)},
	}
	channels := map[string]domain.Channel{"c1": {ID: "c1", SubscriberCount: 0}}
	out, _ := r.Rank(domain.ScanParams{SubLimit: 3000, Format: domain.FormatBoth}, []domain.SearchCandidate{candidate("v1")}, videos, channels)
	if len(out) != 1 {
		t.Fatalf("ожидали 1 результат, получили %d", len(out))
	}
	if out[0].OutlierRatio != 500 {
		t.Fatalf("ожидали ratio 500 при нуле подписчиков, получили %f", out[0].OutlierRatio)
	}
}

func TestRankDaysLiveFloor(t *testing.T) {
	r := newTestRanker(RankByViralScore)
	videos := map[string]domain.Video{
		"v1": {ID: "v1", ChannelID: "c1", ViewCount: 1000, PublishedAt: fixedNow()},
	}
	channels := map[string]domain.Channel{"c1": {ID: "c1", SubscriberCount: 10}}
	out, _ := r.Rank(domain.ScanParams{Format: domain.FormatBoth}, []domain.SearchCandidate{candidate("v1")}, videos, channels)
	if len(out) != 1 {
		t.Fatalf("ожидали 1 результат")
	}
	if out[0].ViewsPerDay != 1000 {
		t.Fatalf("ожидали 1000 просмотров в день для видео текущего дня, получили %f", out[0].ViewsPerDay)
	}
}

func TestRankStableTieOrder(t *testing.T) {
	r := newTestRanker(RankByViews)
	pub := fixedNow().AddDate(0, 0, -3)
	videos := map[string]domain.Video{
		"a": {ID: "a", ChannelID: "c1", ViewCount: 10, PublishedAt: pub},
		"b": {ID: "b", ChannelID: "c1", ViewCount: 30, PublishedAt: pub},
		"c": {ID: "c", ChannelID: "c1", ViewCount: 30, PublishedAt: pub},
	}
	channels := map[string]domain.Channel{"c1": {ID: "c1", SubscriberCount: 5}}
	cands := []domain.SearchCandidate{candidate("a"), candidate("b"), candidate("c")}
	out, _ := r.Rank(domain.ScanParams{Format: domain.FormatBoth}, cands, videos, channels)
	if len(out) != 3 {
		t.Fatalf("ожидали 3 результата")
	}
	if out[0].VideoID != "b" || out[1].VideoID != "c" || out[2].VideoID != "a" {
		t.Fatalf("ожидали порядок b,c,a, получили %s,%s,%s", out[0].VideoID, out[1].VideoID, out[2].VideoID)
	}
}

func TestRankSubscriberCeilingAndFormat(t *testing.T) {
	r := newTestRanker(RankByViralScore)
	pub := fixedNow().AddDate(0, 0, -2)
	videos := map[string]domain.Video{
		"small": {ID: "small", ChannelID: "c1", ViewCount: 50000, DurationSec: 30, PublishedAt: pub},
		"big":   {ID: "big", ChannelID: "c2", ViewCount: 20000, DurationSec: 600, PublishedAt: pub},
		"short": {ID: "short", ChannelID: "c3", ViewCount: 100, DurationSec: 5, PublishedAt: pub},
	}
	channels := map[string]domain.Channel{
		"c1": {ID: "c1", SubscriberCount: 200},
		"c2": {ID: "c2", SubscriberCount: 8000},
		"c3": {ID: "c3", SubscriberCount: 50},
	}
	cands := []domain.SearchCandidate{candidate("small"), candidate("big"), candidate("short")}
	params := domain.ScanParams{SubLimit: 5000, Format: domain.FormatBoth}
	out, stats := r.Rank(params, cands, videos, channels)
	if len(out) != 2 {
		t.Fatalf("ожидали 2 результата, получили %d", len(out))
	}
	if stats.DroppedSubs != 1 {
		t.Fatalf("ожидали 1 отброшенного по подписчикам, получили %d", stats.DroppedSubs)
	}
	if out[0].VideoID != "small" {
		t.Fatalf("ожидали видео с 50000 просмотров первым, получили %s", out[0].VideoID)
	}
	if out[0].OutlierRatio != 250 || out[1].OutlierRatio != 2 {
		t.Fatalf("ожидали ratio 250 и 2, получили %f и %f", out[0].OutlierRatio, out[1].OutlierRatio)
	}

	params.Format = domain.FormatLong
	out, stats = r.Rank(params, cands, videos, channels)
	if len(out) != 0 {
		t.Fatalf("длинных видео у малых каналов нет, получили %d", len(out))
	}
	if stats.DroppedFormat != 2 {
		t.Fatalf("ожидали 2 отброшенных по формату, получили %d", stats.DroppedFormat)
	}
}

func TestRankMinOutlierRatio(t *testing.T) {
	r := newTestRanker(RankByOutlierRatio)
	pub := fixedNow().AddDate(0, 0, -2)
	videos := map[string]domain.Video{
		"hot":  {ID: "hot", ChannelID: "c1", ViewCount: 10000, PublishedAt: pub},
		"cold": {ID: "cold", ChannelID: "c1", ViewCount: 100, PublishedAt: pub},
	}
	channels := map[string]domain.Channel{"c1": {ID: "c1", SubscriberCount: 100}}
	cands := []domain.SearchCandidate{candidate("hot"), candidate("cold")}
	out, stats := r.Rank(domain.ScanParams{Format: domain.FormatBoth, MinOutlierRatio: 5}, cands, videos, channels)
	if len(out) != 1 || out[0].VideoID != "hot" {
		t.Fatalf("ожидали только hot, получили %d", len(out))
	}
	if stats.DroppedRatio != 1 {
		t.Fatalf("ожидали 1 отброшенного по порогу, получили %d", stats.DroppedRatio)
	}
}

func TestRankZeroCeilingDisablesLimit(t *testing.T) {
	r := newTestRanker(RankByViralScore)
	videos := map[string]domain.Video{
		"v1": {ID: "v1", ChannelID: "c1", ViewCount: 1000, PublishedAt: fixedNow().AddDate(0, 0, -2)},
	}
	channels := map[string]domain.Channel{"c1": {ID: "c1", SubscriberCount: 500000}}
	out, stats := r.Rank(domain.ScanParams{SubLimit: 0, Format: domain.FormatBoth}, []domain.SearchCandidate{candidate("v1")}, videos, channels)
	if len(out) != 1 || stats.DroppedSubs != 0 {
		t.Fatalf("нулевой потолок должен отключать фильтр, получили %d результатов и %d отброшенных", len(out), stats.DroppedSubs)
	}
}

func TestEmotionalScore(t *testing.T) {
	if got := EmotionalScore("INSANE workshop transformation"); got != 2 {
		t.Fatalf("ожидали 2 совпадения, получили %d", got)
	}
	if got := EmotionalScore("обычный заголовок"); got != 0 {
		t.Fatalf("ожидали 0 совпадений, получили %d", got)
	}
}
