package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	YouTube struct {
		APIKey      string        `envconfig:"YT_API_KEY"`
		RPS         float64       `envconfig:"YT_RPS" default:"5"`
		CallTimeout time.Duration `envconfig:"YT_CALL_TIMEOUT" default:"10s"`
		MaxRetries  uint64        `envconfig:"YT_MAX_RETRIES" default:"3"`
	} `envconfig:""`

	Telegram struct {
		Token string `envconfig:"TG_BOT_TOKEN"`
	} `envconfig:""`

	Scan struct {
		Days            int           `envconfig:"SCAN_DAYS" default:"5"`
		SubLimit        uint64        `envconfig:"SUB_LIMIT" default:"3000"`
		SubFloor        uint64        `envconfig:"SUB_FLOOR" default:"0"`
		Format          string        `envconfig:"SCAN_FORMAT" default:"both"`
		MinOutlierRatio float64       `envconfig:"MIN_OUTLIER_RATIO" default:"0"`
		Workers         int           `envconfig:"SCAN_WORKERS" default:"4"`
		PageSize        int64         `envconfig:"SCAN_PAGE_SIZE" default:"10"`
		MaxCandidates   int           `envconfig:"SCAN_MAX_CANDIDATES" default:"50"`
		BatchSize       int           `envconfig:"SCAN_BATCH_SIZE" default:"50"`
		Deadline        time.Duration `envconfig:"SCAN_DEADLINE" default:"60s"`
		TopN            int           `envconfig:"SCAN_TOP_N" default:"3"`
	} `envconfig:""`

	Score struct {
		ViewsPerDayWeight float64 `envconfig:"SCORE_VIEWS_PER_DAY_WEIGHT" default:"0.7"`
		OutlierWeight     float64 `envconfig:"SCORE_OUTLIER_WEIGHT" default:"0.5"`
		EmotionalBonus    float64 `envconfig:"SCORE_EMOTIONAL_BONUS" default:"10"`
		RankBy            string  `envconfig:"RANK_BY" default:"viral_score"`
	} `envconfig:""`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	SettingsFile string `envconfig:"SETTINGS_FILE" default:"yt_settings.json"`

	Queues struct {
		Scan string `envconfig:"SCAN_QUEUE_KEY" default:"scan_jobs"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
