package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/xavierca1/ligue-funnel/internal/usecase"
)

// StepRunner continua o funil a partir de um passo agendado.
type StepRunner interface {
	ContinueAutoAdvance(ctx context.Context, job usecase.StepJob) error
}

// Worker consome as filas de acesso e de passos. O Granter aqui é quem entrega de fato
// (AccessProvisioner), nunca o próprio producer.
type Worker struct {
	Channel *amqp.Channel
	Granter usecase.AccessGranter
	Steps   StepRunner
}

func NewWorker(ch *amqp.Channel, granter usecase.AccessGranter, steps StepRunner) *Worker {
	return &Worker{Channel: ch, Granter: granter, Steps: steps}
}

// Start registra os consumidores e processa até o contexto terminar.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.Channel.Qos(10, 0, false); err != nil {
		return fmt.Errorf("falha ao configurar prefetch: %w", err)
	}
	access, err := w.Channel.Consume(AccessQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("falha ao registrar consumidor de %s: %w", AccessQueue, err)
	}
	steps, err := w.Channel.Consume(StepQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("falha ao registrar consumidor de %s: %w", StepQueue, err)
	}

	log.Printf(" [*] Worker rodando e aguardando nas filas '%s' e '%s'", AccessQueue, StepQueue)
	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ [WORKER] Encerrado")
			return nil
		case d, ok := <-access:
			if !ok {
				return fmt.Errorf("fila %s fechada", AccessQueue)
			}
			settle(d, w.HandleGrant(ctx, d.Body))
		case d, ok := <-steps:
			if !ok {
				return fmt.Errorf("fila %s fechada", StepQueue)
			}
			settle(d, w.HandleStep(ctx, d.Body))
		}
	}
}

func (w *Worker) HandleGrant(ctx context.Context, body []byte) error {
	var grant usecase.AccessGrant
	if err := json.Unmarshal(body, &grant); err != nil {
		return fmt.Errorf("JSON inválido: %w", err)
	}
	log.Printf("📥 [WORKER] Entrega de acesso do pedido %d", grant.OrderID)
	return w.Granter.Grant(ctx, grant)
}

func (w *Worker) HandleStep(ctx context.Context, body []byte) error {
	var job usecase.StepJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("JSON inválido: %w", err)
	}
	return w.Steps.ContinueAutoAdvance(ctx, job)
}

// settle confirma o sucesso. Erro vai para a DLQ sem requeue para não travar a fila.
func settle(d amqp.Delivery, err error) {
	if err != nil {
		log.Printf("❌ [WORKER] Falha ao processar mensagem de %s: %v", d.RoutingKey, err)
		d.Nack(false, false)
		return
	}
	d.Ack(false)
}
