package domain

import "time"

// ReadinessState — состояние шлюза сервиса рекомендаций.
type ReadinessState int32

const (
	StateUninitialized ReadinessState = iota
	StateReady
	StateUnavailable
)

func (s ReadinessState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	default:
		return "uninitialized"
	}
}

// RecommendationServed — событие аудита, публикуемое после успешного ответа.
type RecommendationServed struct {
	EventID      string    `json:"event_id"`
	RequestID    string    `json:"request_id"`
	ImageSHA256  string    `json:"image_sha256"`
	ProductIDs   []int64   `json:"product_ids"`
	ModelVersion string    `json:"model_version"`
	Cached       bool      `json:"cached"`
	ServedAt     time.Time `json:"served_at"`
}
