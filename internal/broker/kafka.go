package broker

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/IliaW/listing-alert-worker/config"
	"github.com/IliaW/listing-alert-worker/internal/model"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress/lz4"
)

const statusHeader = "delivery-status"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducerClient publishes the delivery events of a run. Events are batched by size
// and by time; whatever is pending when the run closes eventChan is flushed before Run returns.
type KafkaProducerClient struct {
	eventChan <-chan *model.DeliveryEvent
	cfg       *config.ProducerConfig
	log       *slog.Logger
	wg        *sync.WaitGroup
	writer    messageWriter
	published map[string]int
	dropped   int
}

func NewKafkaProducer(eventChan <-chan *model.DeliveryEvent, cfg *config.ProducerConfig, log *slog.Logger,
	wg *sync.WaitGroup) *KafkaProducerClient {
	return newProducer(eventChan, cfg, log, wg, newWriter(cfg, log))
}

func newProducer(eventChan <-chan *model.DeliveryEvent, cfg *config.ProducerConfig, log *slog.Logger,
	wg *sync.WaitGroup, w messageWriter) *KafkaProducerClient {
	return &KafkaProducerClient{
		eventChan: eventChan,
		cfg:       cfg,
		log:       log,
		wg:        wg,
		writer:    w,
		published: make(map[string]int),
	}
}

func newWriter(cfg *config.ProducerConfig, log *slog.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(cfg.Addr, ",")...),
		Topic:        cfg.WriteTopicName,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.MaxAttempts,
		BatchSize:    1,                // batching happens in Run
		BatchTimeout: time.Millisecond, // same
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAsks),
		Async:        cfg.Async,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Error("failed to publish delivery events.", slog.String("err", err.Error()))
			}
		},
		Compression: kafka.Compression(new(lz4.Codec).Code()),
	}
}

// Run publishes until eventChan is closed. A partial batch is also flushed whenever the batch
// timeout passes without reaching the batch size, so events of a slow run are not held back.
func (p *KafkaProducerClient) Run() {
	defer p.wg.Done()
	defer func() {
		if err := p.writer.Close(); err != nil {
			p.log.Error("failed to close kafka writer.", slog.String("err", err.Error()))
		}
	}()
	p.log.Info("starting kafka producer...", slog.String("topic", p.cfg.WriteTopicName))

	batchSize := max(p.cfg.BatchSize, 1)
	batchTimeout := p.cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = time.Second
	}
	ticker := time.NewTicker(batchTimeout)
	defer ticker.Stop()
	batch := make([]kafka.Message, 0, batchSize)

	for {
		select {
		case event, ok := <-p.eventChan:
			if !ok {
				p.flush(batch)
				p.log.Info("stopping kafka producer.", slog.Any("published", p.published),
					slog.Int("dropped", p.dropped))
				return
			}
			msg, err := toMessage(event)
			if err != nil {
				p.log.Error("marshaling error.", slog.String("err", err.Error()), slog.String("id", event.AdID))
				p.dropped++
				continue
			}
			batch = append(batch, msg)
			if len(batch) >= batchSize {
				p.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				p.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (p *KafkaProducerClient) flush(batch []kafka.Message) {
	if len(batch) == 0 {
		return
	}
	timeout := p.cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, batch...); err != nil {
		p.log.Error("failed to publish delivery events.", slog.Int("events", len(batch)),
			slog.String("err", err.Error()))
		p.dropped += len(batch)
		return
	}
	for _, msg := range batch {
		p.published[status(msg)]++
	}
	p.log.Debug("delivery events published.", slog.Int("events", len(batch)))
}

// toMessage keys the message by ad id so events of one ad stay in one partition. The status is
// repeated in a header for consumers that route on it without decoding the body.
func toMessage(event *model.DeliveryEvent) (kafka.Message, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:     []byte(event.AdID),
		Value:   body,
		Headers: []kafka.Header{{Key: statusHeader, Value: []byte(event.Status)}},
	}, nil
}

func status(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == statusHeader {
			return string(h.Value)
		}
	}
	return ""
}
