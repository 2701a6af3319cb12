package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type (
	Writer  = kafka.Writer
	Reader  = kafka.Reader
	Message = kafka.Message
)

func brokerList(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func NewWriter(brokers string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokerList(brokers)...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, // mesma prop sempre na mesma partição
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
	}
}

// EnsureTopics cria os tópicos via controller do cluster. Usado só em local/dev,
// onde o broker é single-node; tópico já existente não é erro.
func EnsureTopics(ctx context.Context, brokers string, log *zap.Logger, topics ...string) error {
	list := brokerList(brokers)
	if len(list) == 0 {
		return fmt.Errorf("kafka brokers not provided")
	}
	conn, err := kafka.DialContext(ctx, "tcp", list[0])
	if err != nil {
		return fmt.Errorf("dial kafka: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("kafka controller: %w", err)
	}
	cconn, err := kafka.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return fmt.Errorf("dial kafka controller: %w", err)
	}
	defer cconn.Close()

	for _, topic := range topics {
		if topic == "" {
			continue
		}
		err := cconn.CreateTopics(topicConfig(topic))
		switch {
		case err == nil:
			log.Info("kafka topic created", zap.String("topic", topic))
		case errors.Is(err, kafka.TopicAlreadyExists) || strings.Contains(err.Error(), "already exists"):
		default:
			return fmt.Errorf("create topic %s: %w", topic, err)
		}
	}
	return nil
}

func topicConfig(topic string) kafka.TopicConfig {
	return kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}
}

// NewReader cria um consumer group com commit manual (CommitMessages após processar)
func NewReader(brokers string, topic string, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokerList(brokers),
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// MessageWriter é satisfeito por *kafka.Writer e por fakes nos testes
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// WriteJSON serializa o payload e publica com a chave informada
func WriteJSON(ctx context.Context, w MessageWriter, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal kafka payload: %w", err)
	}
	return w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: b,
		Time:  time.Now(),
	})
}
