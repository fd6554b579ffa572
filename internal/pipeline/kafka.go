package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// KafkaQueue backs the pipeline with one topic per stage plus a .dlq topic
// each. The message key is the group key, so a partition preserves
// publish order per event — the FIFO lane for the booking stage.
type KafkaQueue struct {
	producer sarama.SyncProducer
	brokers  []string
	groupID  string
	log      *zap.Logger
}

func NewKafkaQueue(brokers []string, groupID string, log *zap.Logger) (*KafkaQueue, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &KafkaQueue{
		producer: producer,
		brokers:  brokers,
		groupID:  groupID,
		log:      log.With(zap.String("queue", "kafka")),
	}, nil
}

func stageTopic(stage Stage) string {
	return "booking-pipeline." + string(stage)
}

func deadTopic(stage Stage) string {
	return stageTopic(stage) + ".dlq"
}

func (q *KafkaQueue) publish(topic string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal pipeline message: %w", err)
	}

	pm := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(data),
	}
	if msg.GroupKey != "" {
		pm.Key = sarama.StringEncoder(msg.GroupKey)
	}

	partition, offset, err := q.producer.SendMessage(pm)
	if err != nil {
		return fmt.Errorf("send message to %s: %w", topic, err)
	}

	q.log.Debug("Message published",
		zap.String("topic", topic),
		zap.String("dedup_key", msg.DedupKey),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (q *KafkaQueue) Publish(ctx context.Context, msg Message) error {
	return q.publish(stageTopic(msg.Stage), msg)
}

func (q *KafkaQueue) PublishDead(ctx context.Context, msg Message) error {
	return q.publish(deadTopic(msg.Stage), msg)
}

func (q *KafkaQueue) Consume(ctx context.Context, stage Stage, handler Handler) error {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := sarama.NewConsumerGroup(q.brokers, q.groupID+"-"+string(stage), config)
	if err != nil {
		return fmt.Errorf("create consumer group for %s: %w", stage, err)
	}
	defer group.Close()

	consumer := &stageConsumer{handler: handler, log: q.log}

	for {
		if err := group.Consume(ctx, []string{stageTopic(stage)}, consumer); err != nil {
			q.log.Error("Consumer loop error",
				zap.String("stage", string(stage)),
				zap.Error(err),
			)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (q *KafkaQueue) Close() error {
	return q.producer.Close()
}

type stageConsumer struct {
	handler Handler
	log     *zap.Logger
}

func (c *stageConsumer) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (c *stageConsumer) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (c *stageConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for raw := range claim.Messages() {
		var msg Message
		if err := json.Unmarshal(raw.Value, &msg); err != nil {
			c.log.Error("Dropping undecodable message",
				zap.String("topic", raw.Topic),
				zap.Int64("offset", raw.Offset),
				zap.Error(err),
			)
			session.MarkMessage(raw, "")
			continue
		}

		// Redelivery is handled by republishing, so the offset is always
		// marked once the handler returns.
		c.handler(session.Context(), msg)
		session.MarkMessage(raw, "")
	}
	return nil
}
