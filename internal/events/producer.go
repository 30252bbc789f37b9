package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	TicketStatusChanged = "ticket.status_changed"
	TicketDelivered     = "ticket.delivered"
	TicketWon           = "ticket.won"
	TicketWonHidden     = "ticket.won_hidden"
	StaffMonthlyDigest  = "staff.monthly_digest"
)

// Producer writes ticket events to a Kafka topic. Writes are best effort:
// failures are logged and never reach the caller.
type Producer struct {
	writer *kafka.Writer
	topic  string
	log    zerolog.Logger
}

// NewProducer returns a producer for topic. With no brokers or no topic every
// method is a no-op.
func NewProducer(brokers []string, topic string, log zerolog.Logger) *Producer {
	if len(brokers) == 0 || topic == "" {
		return &Producer{log: log}
	}
	return &Producer{
		topic: topic,
		log:   log,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Producer) Enabled() bool {
	return p.writer != nil
}

// ProduceTicketEvent publishes event with payload. The ticket_id field, when
// present, is used as the message key so a ticket's events stay ordered.
func (p *Producer) ProduceTicketEvent(ctx context.Context, event string, payload map[string]interface{}) {
	if p.writer == nil {
		return
	}
	msg := map[string]interface{}{
		"event":       event,
		"occurred_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range payload {
		msg[k] = v
	}
	body, err := json.Marshal(msg)
	if err != nil {
		p.log.Warn().Err(err).Str("event", event).Msg("marshal ticket event")
		return
	}

	var key []byte
	if id, ok := payload["ticket_id"]; ok {
		if s, ok := id.(string); ok {
			key = []byte(s)
		}
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: body}); err != nil {
		p.log.Warn().Err(err).Str("event", event).Str("topic", p.topic).Msg("write ticket event")
	}
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// ParseBrokers splits "host1:9092,host2:9092" into a list.
func ParseBrokers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
