package scan

import (
	"strings"
	"testing"

	"yt-niche-finder/internal/domain"
)

func TestFormatScan(t *testing.T) {
	scan := domain.Scan{
		Params: domain.ScanParams{Niche: "phone repair", Days: 7},
		Outliers: []domain.Outlier{
			{Title: "Insane <repair>", ChannelTitle: "FixIt", Views: 50000, Subs: 200, ViewsPerDay: 25000, OutlierRatio: 250, ViralScore: 17625, DurationSec: 30, URL: "https://youtube.com/watch?v=abc"},
		},
	}
	scan.Top = scan.Outliers

	text := FormatScan(scan)
	if !strings.Contains(text, "phone repair") {
		t.Fatalf("ожидали нишу в заголовке: %s", text)
	}
	if !strings.Contains(text, "Insane &lt;repair&gt;") {
		t.Fatalf("ожидали экранированный заголовок: %s", text)
	}
	if !strings.Contains(text, "https://youtube.com/watch?v=abc") {
		t.Fatalf("ожидали ссылку на видео: %s", text)
	}
	if !strings.Contains(text, "Топ-1") {
		t.Fatalf("ожидали топ-секцию: %s", text)
	}
}

func TestFormatScanEmptyTopOmitted(t *testing.T) {
	scan := domain.Scan{Params: domain.ScanParams{Niche: "cars", Days: 5}}
	text := FormatScan(scan)
	if strings.Contains(text, "Топ-") {
		t.Fatalf("не ожидали топ-секцию для пустого результата: %s", text)
	}
}
