package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/go-marketplace-api/internal/metrics"
	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/repository"
	"github.com/flicky/go-marketplace-api/internal/service"
)

const (
	orderQueueName = "orders"
	dlxExchange    = "orders.dlx"
	dlqQueueName   = "orders.dlq"
	idempotencyTTL = 24 * time.Hour
)

// OrderWorker consumes order events and refreshes derived data: shop
// counters and cached product views.
type OrderWorker struct {
	channel     *amqp.Channel
	shopRepo    repository.ShopRepository
	redisClient redis.Cmdable
	log         *slog.Logger
	done        chan struct{}
}

func NewOrderWorker(
	ch *amqp.Channel,
	shopRepo repository.ShopRepository,
	redisClient redis.Cmdable,
	log *slog.Logger,
) *OrderWorker {
	return &OrderWorker{
		channel:     ch,
		shopRepo:    shopRepo,
		redisClient: redisClient,
		log:         log,
		done:        make(chan struct{}),
	}
}

// SetupRabbitMQ declares exchanges, queues, and bindings (DLX/DLQ).
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, orderQueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(orderQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": orderQueueName,
	}); err != nil {
		return fmt.Errorf("declare order queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

func (w *OrderWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(orderQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("order worker started")
	return nil
}

func (w *OrderWorker) Stop() { close(w.done) }

func idempotencyKey(event model.OrderEvent) string {
	return "order_event_processed:" + event.ID.String()
}

func (w *OrderWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var event model.OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		w.log.Error("unmarshal order event", "error", err)
		metrics.RecordEventProcessed("unknown", "failed")
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("event_id", event.ID, "type", event.Type, "order_id", event.OrderID)

	key := idempotencyKey(event)
	exists, err := w.redisClient.Exists(ctx, key).Result()
	if err != nil {
		log.Error("check idempotency key", "error", err)
		_ = msg.Nack(false, true)
		return
	}
	if exists > 0 {
		log.Info("order event already processed, skipping")
		metrics.RecordEventProcessed(event.Type, "duplicate")
		_ = msg.Ack(false)
		return
	}

	if err := w.handle(ctx, event); err != nil {
		log.Error("process order event failed", "error", err)
		metrics.RecordEventProcessed(event.Type, "failed")
		_ = msg.Nack(false, false) // dead-lettered
		return
	}

	if err := w.redisClient.Set(ctx, key, "1", idempotencyTTL).Err(); err != nil {
		log.Error("set idempotency key", "error", err)
	}

	metrics.RecordEventProcessed(event.Type, "ok")
	_ = msg.Ack(false)
	log.Info("order event processed")
}

// handle recomputes counters of the shops selling the event's products and
// drops their cached views so stock and sold counts are re-read.
func (w *OrderWorker) handle(ctx context.Context, event model.OrderEvent) error {
	if len(event.ProductIDs) == 0 {
		return nil
	}

	shops, err := w.shopRepo.RecomputeCounters(ctx, event.ProductIDs)
	if err != nil {
		return fmt.Errorf("recompute shop counters: %w", err)
	}

	keys := make([]string, 0, len(event.ProductIDs))
	for _, id := range event.ProductIDs {
		keys = append(keys, service.ProductCacheKey(id))
	}
	if err := w.redisClient.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate product cache: %w", err)
	}

	w.log.Debug("refreshed derived order data", "event_id", event.ID, "shops", shops, "products", len(keys))
	return nil
}
