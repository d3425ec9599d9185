package scan

import (
	"fmt"
	"html"
	"strings"

	"yt-niche-finder/internal/domain"
)

// FormatScan формирует текстовое представление результатов для отправки пользователю.
func FormatScan(scan domain.Scan) string {
	var sections []string

	header := fmt.Sprintf("🔥 <b>Выбивающиеся видео: «%s»</b>\nНайдено %d за последние %d дн.",
		escapeHTML(scan.Params.Niche), len(scan.Outliers), scan.Params.Days)
	sections = append(sections, header)

	if list := buildOutlierList(scan.Outliers); list != "" {
		sections = append(sections, list)
	}

	if top := buildTopSection(scan.Top); top != "" {
		sections = append(sections, top)
	}

	return strings.TrimSpace(strings.Join(sections, "\n\n"))
}

func buildOutlierList(outliers []domain.Outlier) string {
	if len(outliers) == 0 {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("📊 <b>Все находки</b>")
	for i, o := range outliers {
		builder.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, linkTitle(o)))
		builder.WriteString(fmt.Sprintf("   %s | ⏱ %dс | 👀 %d | 👥 %d\n",
			escapeHTML(o.ChannelTitle), o.DurationSec, o.Views, o.Subs))
		builder.WriteString(fmt.Sprintf("   Просмотры/день: %.1f | Отклонение: ×%.1f | Оценка: %.1f",
			o.ViewsPerDay, o.OutlierRatio, o.ViralScore))
	}
	return builder.String()
}

func buildTopSection(top []domain.Outlier) string {
	if len(top) == 0 {
		return ""
	}
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🏆 <b>Топ-%d возможности</b>", len(top)))
	for _, o := range top {
		builder.WriteString("\n🎯 " + linkTitle(o))
		builder.WriteString(fmt.Sprintf("\n   Канал: <b>%s</b> | Просмотры/день: <b>%.1f</b>",
			escapeHTML(o.ChannelTitle), o.ViewsPerDay))
	}
	return builder.String()
}

func linkTitle(o domain.Outlier) string {
	title := escapeHTML(o.Title)
	if o.URL == "" {
		return title
	}
	return fmt.Sprintf("<a href=\"%s\">%s</a>", html.EscapeString(o.URL), title)
}

func escapeHTML(s string) string {
	return html.EscapeString(s)
}
