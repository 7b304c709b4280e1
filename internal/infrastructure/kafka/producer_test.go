package kafka

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/DRSN-tech/visual-recommender/internal/cfg"
	"github.com/DRSN-tech/visual-recommender/internal/domain"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
	"github.com/stretchr/testify/require"
)

func TestNewRecommendationMessage(t *testing.T) {
	servedAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	event := &domain.RecommendationServed{
		EventID:      "ev-1",
		RequestID:    "req-1",
		ImageSHA256:  "abc",
		ProductIDs:   []int64{15970, 39386},
		ModelVersion: "resnet50-v1",
		ServedAt:     servedAt,
	}

	msg, err := NewRecommendationMessage(event)
	require.NoError(t, err)
	require.Equal(t, "req-1", string(msg.Key))
	require.Equal(t, servedAt, msg.Time)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	require.Equal(t, "ev-1", decoded["event_id"])
	require.Equal(t, []any{float64(15970), float64(39386)}, decoded["product_ids"])
	require.Equal(t, false, decoded["cached"])
}

func TestNewRecommendationMessage_KeyFallsBackToEventID(t *testing.T) {
	msg, err := NewRecommendationMessage(&domain.RecommendationServed{EventID: "ev-2"})
	require.NoError(t, err)
	require.Equal(t, "ev-2", string(msg.Key))
}

func TestEnsureTopic_SilentBrokerTimesOut(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	// брокер принимает соединения и молчит
	accepted := make(chan net.Conn, 8)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				close(accepted)
				return
			}
			accepted <- conn
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		for conn := range accepted {
			_ = conn.Close()
		}
	})

	p := NewProducer(logger.Nop(), &cfg.KafkaCfg{Brokers: []string{ln.Addr().String()}, Topic: "recommendations"})
	t.Cleanup(func() { _ = p.Close() })

	start := time.Now()
	err = p.EnsureTopic(200 * time.Millisecond)
	require.Error(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
}
