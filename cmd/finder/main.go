package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"yt-niche-finder/internal/adapters/export"
	"yt-niche-finder/internal/adapters/keywords"
	"yt-niche-finder/internal/adapters/ranker"
	"yt-niche-finder/internal/adapters/settings"
	"yt-niche-finder/internal/domain"
	"yt-niche-finder/internal/infra/config"
	applog "yt-niche-finder/internal/infra/log"
	"yt-niche-finder/internal/infra/youtube"
	"yt-niche-finder/internal/usecase/scan"
)

func main() {
	var (
		niche    = flag.String("niche", "", "ниша для поиска (обязательно)")
		days     = flag.Int("days", 0, "окно поиска в днях (0 = из конфига)")
		subLimit = flag.Uint64("limit", 0, "потолок по подписчикам (0 = из конфига)")
		subFloor = flag.Uint64("floor", 0, "минимум подписчиков")
		format   = flag.String("format", "", "фильтр формата: both, shorts или long")
		minRatio = flag.Float64("min-ratio", 0, "минимальный коэффициент выброса")
		topN     = flag.Int("top", 0, "размер блока лучших возможностей (0 = из конфига)")
		csvPath  = flag.String("csv", "", "путь для экспорта результатов в CSV")
	)
	flag.Parse()

	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	if *niche == "" {
		fmt.Fprintln(os.Stderr, "использование: finder -niche <тема> [-days N] [-limit N] [-format both|shorts|long] [-csv файл]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := settings.NewFileStore(cfg.SettingsFile)
	stored, err := store.Load()
	if err != nil {
		logger.Warn().Err(err).Msg("finder: файл настроек не прочитан, работаем с дефолтами")
	}

	apiKey := cfg.YouTube.APIKey
	if apiKey == "" {
		apiKey = stored.APIKey
	}
	if apiKey == "" {
		logger.Fatal().Msg("finder: не задан ключ YouTube API (YT_API_KEY или файл настроек)")
	}
	ytClient, err := youtube.NewClient(ctx, youtube.Config{
		APIKey:      apiKey,
		RPS:         cfg.YouTube.RPS,
		CallTimeout: cfg.YouTube.CallTimeout,
		MaxRetries:  cfg.YouTube.MaxRetries,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("finder: не удалось создать клиента YouTube")
	}

	rankBy, ok := ranker.ParseRankKey(cfg.Score.RankBy)
	if !ok {
		logger.Fatal().Str("rank_by", cfg.Score.RankBy).Msg("finder: неизвестный ключ сортировки")
	}
	viral := ranker.NewViral(ranker.Weights{
		ViewsPerDay:    cfg.Score.ViewsPerDayWeight,
		OutlierRatio:   cfg.Score.OutlierWeight,
		EmotionalBonus: cfg.Score.EmotionalBonus,
	}, rankBy)

	if *topN <= 0 {
		*topN = cfg.Scan.TopN
	}
	// Кэш для одноразового запуска не нужен.
	svc := scan.NewService(ytClient, viral, nil, keywords.Expand, logger, scan.Config{
		Workers:       cfg.Scan.Workers,
		PageSize:      cfg.Scan.PageSize,
		MaxCandidates: cfg.Scan.MaxCandidates,
		BatchSize:     cfg.Scan.BatchSize,
		Deadline:      cfg.Scan.Deadline,
		TopN:          *topN,
	})

	params := domain.ScanParams{
		Niche:           *niche,
		Days:            *days,
		SubLimit:        *subLimit,
		SubFloor:        *subFloor,
		MinOutlierRatio: *minRatio,
	}
	if params.Days <= 0 {
		params.Days = cfg.Scan.Days
	}
	if params.SubLimit == 0 {
		params.SubLimit = cfg.Scan.SubLimit
	}
	if *format != "" {
		f, ok := domain.ParseFormatFilter(*format)
		if !ok {
			logger.Fatal().Str("format", *format).Msg("finder: неизвестный фильтр формата")
		}
		params.Format = f
	}

	result, err := svc.Run(ctx, params)
	switch {
	case err == nil:
	case errors.Is(err, scan.ErrNoCandidates), errors.Is(err, scan.ErrNoOutliers):
		fmt.Println("Ничего не найдено:", err)
		return
	default:
		logger.Fatal().Err(err).Msg("finder: сканирование не удалось")
	}

	printTable(result)

	if *csvPath != "" {
		if err := exportCSV(*csvPath, result.Outliers); err != nil {
			logger.Fatal().Err(err).Str("path", *csvPath).Msg("finder: экспорт в CSV не удался")
		}
		fmt.Printf("\nCSV сохранён: %s\n", *csvPath)
	}
}

func printTable(result domain.Scan) {
	fmt.Printf("Выбивающиеся видео по нише «%s» (найдено %d, проверено %d кандидатов)\n\n",
		result.Params.Niche, len(result.Outliers), result.Stats.Candidates)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tНАЗВАНИЕ\tКАНАЛ\tПРОСМОТРЫ\tПОДПИСЧИКИ\tКОЭФ.\tБАЛЛ\tССЫЛКА")
	for i, o := range result.Outliers {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%.1f\t%.1f\t%s\n",
			i+1, truncate(o.Title, 48), truncate(o.ChannelTitle, 24),
			o.Views, o.Subs, o.OutlierRatio, o.ViralScore, o.URL)
	}
	tw.Flush()

	if len(result.Top) > 0 {
		fmt.Printf("\nТоп-%d возможности:\n", len(result.Top))
		for i, o := range result.Top {
			fmt.Printf("  %d. %s (%.1fx, %s)\n", i+1, o.Title, o.OutlierRatio, o.URL)
		}
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func exportCSV(path string, outliers []domain.Outlier) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteCSV(f, outliers); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
