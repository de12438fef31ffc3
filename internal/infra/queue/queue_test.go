package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/ligue-funnel/internal/usecase"
)

type published struct {
	Exchange string
	Key      string
	Msg      amqp.Publishing
}

type declared struct {
	Name string
	Args amqp.Table
}

type fakePublisher struct {
	msgs     []published
	declared []declared
	err      error
}

func (f *fakePublisher) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.declared = append(f.declared, declared{Name: name, Args: args})
	return amqp.Queue{Name: name}, nil
}

func (f *fakePublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{Exchange: exchange, Key: key, Msg: msg})
	return nil
}

type MockGranter struct{ mock.Mock }

func (m *MockGranter) Grant(ctx context.Context, grant usecase.AccessGrant) error {
	return m.Called(ctx, grant).Error(0)
}

type MockStepRunner struct{ mock.Mock }

func (m *MockStepRunner) ContinueAutoAdvance(ctx context.Context, job usecase.StepJob) error {
	return m.Called(ctx, job).Error(0)
}

// ============ TESTES DO PRODUCER ============

// TestProducerGrant - entrega de acesso vai para o exchange com a chave de acesso
func TestProducerGrant(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub)

	err := p.Grant(context.Background(), usecase.AccessGrant{OrderID: 3, BotID: 1, Origin: "remarketing"})

	require.NoError(t, err)
	require.Len(t, pub.msgs, 1)
	m := pub.msgs[0]
	assert.Equal(t, ExchangeName, m.Exchange)
	assert.Equal(t, AccessRoutingKey, m.Key)
	assert.Equal(t, amqp.Persistent, m.Msg.DeliveryMode)
	assert.Empty(t, m.Msg.Expiration)

	var got usecase.AccessGrant
	require.NoError(t, json.Unmarshal(m.Msg.Body, &got))
	assert.Equal(t, usecase.AccessGrant{OrderID: 3, BotID: 1, Origin: "remarketing"}, got)
}

// TestProducerScheduleWithDelay - passo com espera vai para a fila de espera do seu delay
func TestProducerScheduleWithDelay(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub)

	err := p.Schedule(context.Background(), usecase.StepJob{BotID: 1, ChatID: "555", StepOrder: 2}, 5*time.Second)

	require.NoError(t, err)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "", pub.msgs[0].Exchange)
	assert.Equal(t, "q.funnel.delay.5000", pub.msgs[0].Key)
	assert.Empty(t, pub.msgs[0].Msg.Expiration)

	require.Len(t, pub.declared, 1)
	args := pub.declared[0].Args
	assert.Equal(t, "q.funnel.delay.5000", pub.declared[0].Name)
	assert.Equal(t, int64(5000), args["x-message-ttl"])
	assert.Equal(t, int64(5000+10*60*1000), args["x-expires"])
	assert.Equal(t, ExchangeName, args["x-dead-letter-exchange"])
	assert.Equal(t, StepRoutingKey, args["x-dead-letter-routing-key"])
}

// TestProducerScheduleSeparatesDelays - espera longa não segura espera curta: cada delay tem sua fila
func TestProducerScheduleSeparatesDelays(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub)
	ctx := context.Background()

	require.NoError(t, p.Schedule(ctx, usecase.StepJob{BotID: 1, ChatID: "A", StepOrder: 2}, time.Hour))
	require.NoError(t, p.Schedule(ctx, usecase.StepJob{BotID: 2, ChatID: "B", StepOrder: 2}, 5*time.Second))
	require.NoError(t, p.Schedule(ctx, usecase.StepJob{BotID: 1, ChatID: "C", StepOrder: 3}, time.Hour))

	require.Len(t, pub.msgs, 3)
	assert.Equal(t, "q.funnel.delay.3600000", pub.msgs[0].Key)
	assert.Equal(t, "q.funnel.delay.5000", pub.msgs[1].Key)
	assert.Equal(t, "q.funnel.delay.3600000", pub.msgs[2].Key)
}

func TestDelayQueueName(t *testing.T) {
	assert.Equal(t, "q.funnel.delay.1000", DelayQueueName(300*time.Millisecond))
	assert.Equal(t, "q.funnel.delay.2000", DelayQueueName(1500*time.Millisecond))
	assert.Equal(t, "q.funnel.delay.30000", DelayQueueName(30*time.Second))
}

// TestProducerScheduleNow - sem espera vai direto para a fila de passos
func TestProducerScheduleNow(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub)

	err := p.Schedule(context.Background(), usecase.StepJob{BotID: 1, ChatID: "555", StepOrder: 2}, 0)

	require.NoError(t, err)
	assert.Equal(t, ExchangeName, pub.msgs[0].Exchange)
	assert.Equal(t, StepRoutingKey, pub.msgs[0].Key)
	assert.Empty(t, pub.declared)
}

// TestProducerPublishError - falha do canal sobe com a chave no erro
func TestProducerPublishError(t *testing.T) {
	p := NewProducer(&fakePublisher{err: errors.New("canal fechado")})

	err := p.Grant(context.Background(), usecase.AccessGrant{OrderID: 3})

	require.Error(t, err)
	assert.Contains(t, err.Error(), AccessRoutingKey)
}

// ============ TESTES DO WORKER ============

// TestWorkerHandleGrant - corpo da fila vira AccessGrant para o provisionador
func TestWorkerHandleGrant(t *testing.T) {
	granter := new(MockGranter)
	granter.On("Grant", mock.Anything, usecase.AccessGrant{OrderID: 3, BotID: 1, Origin: "bot"}).Return(nil).Once()
	w := NewWorker(nil, granter, nil)

	err := w.HandleGrant(context.Background(), []byte(`{"order_id":3,"bot_id":1,"origin":"bot"}`))

	assert.NoError(t, err)
	granter.AssertExpectations(t)
}

// TestWorkerHandleStep - continuação agendada chega ao funil
func TestWorkerHandleStep(t *testing.T) {
	steps := new(MockStepRunner)
	job := usecase.StepJob{BotID: 1, ChatID: "555", StepOrder: 3, MessageID: 40, AutoDestruct: true}
	steps.On("ContinueAutoAdvance", mock.Anything, job).Return(errors.New("telegram fora")).Once()
	w := NewWorker(nil, nil, steps)

	body, _ := json.Marshal(job)
	err := w.HandleStep(context.Background(), body)

	assert.EqualError(t, err, "telegram fora")
	steps.AssertExpectations(t)
}

// TestWorkerInvalidJSON - mensagem quebrada não chega aos usecases
func TestWorkerInvalidJSON(t *testing.T) {
	granter := new(MockGranter)
	steps := new(MockStepRunner)
	w := NewWorker(nil, granter, steps)

	assert.Error(t, w.HandleGrant(context.Background(), []byte("{")))
	assert.Error(t, w.HandleStep(context.Background(), []byte("nada")))
	granter.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything)
	steps.AssertNotCalled(t, "ContinueAutoAdvance", mock.Anything, mock.Anything)
}
