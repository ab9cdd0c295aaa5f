package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"preorder-storefront/internal/order"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/streadway/amqp"
)

// OrdersExchange adalah topic exchange untuk event pesanan.
const OrdersExchange = "orders_exchange"

// Publisher mengirim event ke broker.
type Publisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// OrderEvent dikirim setiap kali server menerima pembuatan atau perubahan status pesanan.
type OrderEvent struct {
	EventID    string            `json:"event_id"`
	EventType  string            `json:"event_type"`
	OrderID    int64             `json:"order_id"`
	Status     order.OrderStatus `json:"status"`
	Reason     string            `json:"reason,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

var actionEvents = map[order.Action]string{
	order.ActionConfirm:  "order.confirmed",
	order.ActionComplete: "order.completed",
	order.ActionReject:   "order.rejected",
	order.ActionCancel:   "order.cancelled",
}

func eventRoutingKey(a order.Action) string {
	if key, ok := actionEvents[a]; ok {
		return key
	}
	return "order." + string(a)
}

func (s *orderService) publish(o *order.Order, routingKey, reason string) error {
	event := OrderEvent{
		EventID:    uuid.NewString(),
		EventType:  routingKey,
		OrderID:    o.ID,
		Status:     o.Status,
		Reason:     reason,
		OccurredAt: s.now().UTC(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("gagal serialize event: %w", err)
	}
	return s.pub.Publish(OrdersExchange, routingKey, body)
}

// NopPublisher dipakai jika tidak ada broker.
type NopPublisher struct{}

func (NopPublisher) Publish(exchange, routingKey string, body []byte) error { return nil }

// --- RabbitMQ ---

type amqpPublisher struct {
	ch *amqp.Channel
}

// NewPublisherImpl membungkus channel RabbitMQ. Exchange harus sudah dideklarasikan (DeclareExchange).
func NewPublisherImpl(ch *amqp.Channel) Publisher {
	return &amqpPublisher{ch: ch}
}

func (p *amqpPublisher) Publish(exchange, routingKey string, body []byte) error {
	return p.ch.Publish(
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// DeclareExchange mendeklarasikan topic exchange pesanan.
func DeclareExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		OrdersExchange, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
}

// StartEventLogger mengikat queue q.orders.log ke semua event order.* dan mencatatnya ke log.
// Berjalan sampai channel ditutup.
func StartEventLogger(ch *amqp.Channel) error {
	q, err := ch.QueueDeclare(
		"q.orders.log", // name
		true,           // durable
		false,          // delete when unused
		false,          // exclusive
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("gagal declare queue 'q.orders.log': %w", err)
	}

	if err := ch.QueueBind(q.Name, "order.*", OrdersExchange, false, nil); err != nil {
		return fmt.Errorf("gagal bind queue 'q.orders.log': %w", err)
	}

	msgs, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		true,   // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("gagal register consumer 'q.orders.log': %w", err)
	}

	go func() {
		log.Println("Goroutine (Logger) untuk event 'order.*' berjalan...")
		for d := range msgs {
			log.Println(describeEvent(d.RoutingKey, d.Body))
		}
	}()
	return nil
}

func describeEvent(routingKey string, body []byte) string {
	var ev OrderEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Sprintf("[EVENT LOGGER] %s (body tidak valid): %s", routingKey, body)
	}
	msg := fmt.Sprintf("[EVENT LOGGER] %s pesanan #%d -> %s", routingKey, ev.OrderID, ev.Status)
	if ev.Reason != "" {
		msg += fmt.Sprintf(" (alasan: %s)", ev.Reason)
	}
	return msg
}

// --- Kafka ---

// KafkaPublisher menulis event ke topic bernama routing key, dengan key = id pesanan.
type KafkaPublisher struct {
	w       *kafka.Writer
	timeout time.Duration
}

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		timeout: 5 * time.Second,
	}
}

// Publish mengabaikan exchange; Kafka tidak punya konsep itu.
func (p *KafkaPublisher) Publish(exchange, routingKey string, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	return p.w.WriteMessages(ctx, kafka.Message{
		Topic: routingKey,
		Key:   eventKey(body),
		Value: body,
	})
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

func eventKey(body []byte) []byte {
	var ev struct {
		OrderID int64 `json:"order_id"`
	}
	if json.Unmarshal(body, &ev) != nil || ev.OrderID == 0 {
		return nil
	}
	return []byte(strconv.FormatInt(ev.OrderID, 10))
}
