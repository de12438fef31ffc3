package queue

import (
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "ex.funnel"
	DLXName      = "ex.dlx" // Dead Letter Exchange

	AccessQueue      = "q.access"
	AccessDLQ        = "q.access.dlq"
	AccessRoutingKey = "k.access"

	// Filas de espera não têm consumidor: uma por valor de delay, com x-message-ttl fixo, para
	// que a mensagem da frente expire sempre primeiro. Ao expirar, caem em StepQueue.
	StepDelayQueuePrefix = "q.funnel.delay."
	StepQueue            = "q.funnel.steps"
	StepRoutingKey  = "k.step"
	StepDLQ         = "q.funnel.steps.dlq"
	stepDLQRouteKey = "k.step.dead"
)

type RabbitMQ struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar no RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("falha ao abrir canal: %w", err)
	}

	if err := setupTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("falha ao declarar topologia: %w", err)
	}

	return &RabbitMQ{Conn: conn, Ch: ch}, nil
}

func setupTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(DLXName, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(ExchangeName, "direct", true, false, false, false, nil); err != nil {
		return err
	}

	// Entrega de acesso: Nack vai para a DLQ.
	if err := declareBound(ch, AccessDLQ, AccessRoutingKey, DLXName, nil); err != nil {
		return err
	}
	err := declareBound(ch, AccessQueue, AccessRoutingKey, ExchangeName, amqp.Table{
		"x-dead-letter-exchange":    DLXName,
		"x-dead-letter-routing-key": AccessRoutingKey,
	})
	if err != nil {
		return err
	}

	// Passos do funil.
	if err := declareBound(ch, StepDLQ, stepDLQRouteKey, DLXName, nil); err != nil {
		return err
	}
	return declareBound(ch, StepQueue, StepRoutingKey, ExchangeName, amqp.Table{
		"x-dead-letter-exchange":    DLXName,
		"x-dead-letter-routing-key": stepDLQRouteKey,
	})
}

// delayQueueIdle é quanto a fila de espera sobrevive ociosa depois do TTL das mensagens.
const delayQueueIdle = 10 * time.Minute

// DelayQueueName devolve a fila de espera do delay, arredondado para segundos.
func DelayQueueName(delay time.Duration) string {
	return StepDelayQueuePrefix + strconv.FormatInt(delayMillis(delay), 10)
}

func delayMillis(delay time.Duration) int64 {
	secs := (delay + time.Second - 1) / time.Second
	return int64(secs) * 1000
}

// delayQueueArgs: TTL igual para toda a fila e descarte da fila quando ninguém mais agenda com esse delay.
func delayQueueArgs(delay time.Duration) amqp.Table {
	ttl := delayMillis(delay)
	return amqp.Table{
		"x-message-ttl":             ttl,
		"x-expires":                 ttl + delayQueueIdle.Milliseconds(),
		"x-dead-letter-exchange":    ExchangeName,
		"x-dead-letter-routing-key": StepRoutingKey,
	}
}

func declareBound(ch *amqp.Channel, queue, key, exchange string, args amqp.Table) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
		return err
	}
	return ch.QueueBind(queue, key, exchange, false, nil)
}

// Healthy informa se conexão e canal seguem abertos.
func (r *RabbitMQ) Healthy() bool {
	return r != nil && r.Conn != nil && !r.Conn.IsClosed() && r.Ch != nil && !r.Ch.IsClosed()
}

func (r *RabbitMQ) Close() {
	if r.Ch != nil {
		r.Ch.Close()
	}
	if r.Conn != nil {
		r.Conn.Close()
	}
}
