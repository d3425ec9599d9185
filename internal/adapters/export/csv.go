package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"yt-niche-finder/internal/domain"
)

// csvHeader — стабильный набор колонок табличного экспорта.
var csvHeader = []string{"title", "channel", "views", "subs", "views_per_day", "outlier_ratio", "viral_score", "duration_s", "url"}

// WriteCSV выводит результаты сканирования одной строкой на запись.
func WriteCSV(w io.Writer, outliers []domain.Outlier) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("запись заголовка: %w", err)
	}
	for _, o := range outliers {
		row := []string{
			o.Title,
			o.ChannelTitle,
			strconv.FormatUint(o.Views, 10),
			strconv.FormatUint(o.Subs, 10),
			strconv.FormatFloat(o.ViewsPerDay, 'f', 1, 64),
			strconv.FormatFloat(o.OutlierRatio, 'f', 2, 64),
			strconv.FormatFloat(o.ViralScore, 'f', 1, 64),
			strconv.Itoa(o.DurationSec),
			o.URL,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("запись строки: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
