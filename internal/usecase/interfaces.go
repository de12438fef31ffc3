package usecase

import (
	"context"
	"strconv"
	"time"

	"github.com/xavierca1/ligue-funnel/internal/entity"
)

// Messenger é o transporte de mensagens (Telegram). Todas as chamadas levam o token do bot,
// já que a plataforma opera vários bots ao mesmo tempo.
type Messenger interface {
	SendText(ctx context.Context, token, chatID, text string, buttons []entity.Button) (int64, error)
	SendMedia(ctx context.Context, token, chatID, mediaURL, caption string, buttons []entity.Button) (int64, error)
	DeleteMessage(ctx context.Context, token, chatID string, messageID int64) error
	// SoftKick remove o membro do canal (ban seguido de unban) sem impedir uma volta futura.
	SoftKick(ctx context.Context, token, chatID, userID string) error
	Unban(ctx context.Context, token, chatID, userID string) error
	CreateInviteLink(ctx context.Context, token, chatID, name string) (string, error)
	AnswerCallback(ctx context.Context, token, callbackID, text string) error
}

// PaymentGateway cria cobranças PIX no provedor.
type PaymentGateway interface {
	CreateCharge(ctx context.Context, req entity.ChargeRequest) (*entity.Charge, error)
}

// AccessGrant pede a entrega do acesso de um pedido recém pago.
type AccessGrant struct {
	OrderID int64  `json:"order_id"`
	BotID   int64  `json:"bot_id"`
	Origin  string `json:"origin"`
}

// AccessGranter entrega o acesso: direto (AccessProvisioner) ou via fila.
type AccessGranter interface {
	Grant(ctx context.Context, grant AccessGrant) error
}

// StepJob é a continuação de um passo sem botão, disparada depois do delay.
type StepJob struct {
	BotID        int64  `json:"bot_id"`
	ChatID       string `json:"chat_id"`
	StepOrder    int    `json:"step_order"`
	MessageID    int64  `json:"message_id"`
	AutoDestruct bool   `json:"autodestruir"`
}

// StepScheduler agenda a continuação do funil sem bloquear quem atende o webhook.
type StepScheduler interface {
	Schedule(ctx context.Context, job StepJob, delay time.Duration) error
}

// Locker serializa operações de um mesmo par (bot, contato).
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// OperatorNotifier avisa o operador fora do Telegram (e-mail). Opcional.
type OperatorNotifier interface {
	NotifySale(ctx context.Context, sale SaleNotice) error
}

type SaleNotice struct {
	BotName    string
	Customer   string
	Username   string
	PlanName   string
	PriceCents int64
	ExpiresAt  *time.Time
}

// Clock permite fixar o "agora" nos testes.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}

func lockKey(botID int64, contactID string) string {
	return "order:" + strconv.FormatInt(botID, 10) + ":" + contactID
}
