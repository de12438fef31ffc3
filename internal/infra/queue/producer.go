package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/xavierca1/ligue-funnel/internal/usecase"
)

// Publisher é o pedaço do canal AMQP que o producer usa.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
}

// RabbitMQProducer publica entregas de acesso e continuações do funil.
// Implementa usecase.AccessGranter e usecase.StepScheduler.
type RabbitMQProducer struct {
	Ch Publisher
}

func NewProducer(ch Publisher) *RabbitMQProducer {
	return &RabbitMQProducer{Ch: ch}
}

func (p *RabbitMQProducer) Grant(ctx context.Context, grant usecase.AccessGrant) error {
	return p.publish(ctx, ExchangeName, AccessRoutingKey, grant)
}

// Schedule publica na fila de espera do delay. Sem delay vai direto para a fila de passos.
// A fila é redeclarada a cada agendamento, o que também renova o x-expires.
func (p *RabbitMQProducer) Schedule(ctx context.Context, job usecase.StepJob, delay time.Duration) error {
	if delay <= 0 {
		return p.publish(ctx, ExchangeName, StepRoutingKey, job)
	}
	queue := DelayQueueName(delay)
	if _, err := p.Ch.QueueDeclare(queue, true, false, false, false, delayQueueArgs(delay)); err != nil {
		return fmt.Errorf("falha ao declarar fila de espera %s: %w", queue, err)
	}
	return p.publish(ctx, "", queue, job)
}

func (p *RabbitMQProducer) publish(ctx context.Context, exchange, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("erro ao converter payload: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		exchange,
		key,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("falha ao publicar no RabbitMQ (%s): %w", key, err)
	}
	return nil
}
