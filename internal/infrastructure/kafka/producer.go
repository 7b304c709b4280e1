package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DRSN-tech/visual-recommender/internal/cfg"
	"github.com/DRSN-tech/visual-recommender/internal/domain"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/segmentio/kafka-go"
)

// Producer публикует события выдачи рекомендаций. Запись асинхронная:
// ошибки брокера логируются и не доходят до обработчика запроса.
type Producer struct {
	writer *kafka.Writer
	logger logger.Logger
	cfg    *cfg.KafkaCfg
}

func NewProducer(logger logger.Logger, cfg *cfg.KafkaCfg) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    100,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: 10 * time.Second,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warnf("Kafka producer error (%d messages): %s", len(messages), err.Error())
			}
		},
	}

	return &Producer{
		writer: writer,
		logger: logger,
		cfg:    cfg,
	}
}

// PublishRecommendation ставит событие в очередь на отправку. Ключ сообщения — ID запроса,
// при его отсутствии ID события.
func (p *Producer) PublishRecommendation(ctx context.Context, event *domain.RecommendationServed) error {
	msg, err := NewRecommendationMessage(event)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return p.writer.WriteMessages(ctx, msg)
}

// NewRecommendationMessage сериализует событие в JSON.
func NewRecommendationMessage(event *domain.RecommendationServed) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}

	key := event.RequestID
	if key == "" {
		key = event.EventID
	}

	return kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  event.ServedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("recommendation.served")},
		},
	}, nil
}

// EnsureTopic создает топик, если его еще нет. timeout ограничивает и подключение к брокеру,
// и все запросы к нему.
func (p *Producer) EnsureTopic(timeout time.Duration) error {
	conn, err := (&kafka.Dialer{Timeout: timeout}).Dial("tcp", p.cfg.Brokers[0])
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	partitions, err := conn.ReadPartitions(p.cfg.Topic)
	if err == nil && len(partitions) > 0 {
		return nil
	}

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             p.cfg.Topic,
		NumPartitions:     p.cfg.Partitions,
		ReplicationFactor: p.cfg.ReplicationFactor,
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("failed to create topic %s: %w", p.cfg.Topic, err))
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
