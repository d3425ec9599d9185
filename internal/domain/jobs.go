package domain

import (
	"context"
	"time"
)

// ScanJobCause описывает источник запроса на сканирование.
type ScanJobCause string

const (
	// ScanCauseManual — пользователь запросил сканирование командой бота.
	ScanCauseManual ScanJobCause = "manual"
	// ScanCauseAPI — сканирование пришло через HTTP API.
	ScanCauseAPI ScanJobCause = "api"
)

// ScanJob содержит информацию о задаче сканирования ниши.
type ScanJob struct {
	ID          string       `json:"job_id,omitempty"`
	ChatID      int64        `json:"chat_id"`
	Niche       string       `json:"niche"`
	Days        int          `json:"days,omitempty"`
	SubLimit    uint64       `json:"sub_limit,omitempty"`
	Format      FormatFilter `json:"format,omitempty"`
	RequestedAt time.Time    `json:"requested_at"`
	Cause       ScanJobCause `json:"cause"`
}

// ScanQueue описывает очередь задач сканирования.
type ScanQueue interface {
	Enqueue(ctx context.Context, job ScanJob) error
	Receive(ctx context.Context) (ScanJob, ScanAckFunc, error)
}

// ScanAckFunc подтверждает успешную обработку или запрашивает повтор доставки задачи.
type ScanAckFunc func(success bool) error
