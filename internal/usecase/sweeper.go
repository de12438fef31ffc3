package usecase

import (
	"context"
	"fmt"
	"log"

	"github.com/xavierca1/ligue-funnel/internal/entity"
)

const msgPlanExpired = "🚫 <b>Seu plano venceu!</b>\n\nSeu acesso ao canal VIP foi encerrado. Para renovar, digite /start"

type SweepResult struct {
	Checked  int `json:"checked"`
	Revoked  int `json:"revoked"`
	Exempted int `json:"exempted"`
	// KickFailed conta remoções que falharam; esses pedidos são marcados expirados mesmo assim.
	KickFailed int `json:"kick_failed"`
	Errors     int `json:"errors"`
}

// AccessLifecycleSweeper remove do canal quem tem pedido pago com validade vencida.
type AccessLifecycleSweeper struct {
	OrderRepo entity.OrderRepositoryInterface
	BotRepo   entity.BotRepositoryInterface
	AdminRepo entity.AdminRepositoryInterface
	Messenger Messenger
	Clock     Clock
}

func NewAccessLifecycleSweeper(
	orderRepo entity.OrderRepositoryInterface,
	botRepo entity.BotRepositoryInterface,
	adminRepo entity.AdminRepositoryInterface,
	messenger Messenger,
) *AccessLifecycleSweeper {
	return &AccessLifecycleSweeper{
		OrderRepo: orderRepo,
		BotRepo:   botRepo,
		AdminRepo: adminRepo,
		Messenger: messenger,
	}
}

// RunOnce faz uma varredura. Admins são consultados a cada pedido, nunca em cache.
func (uc *AccessLifecycleSweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := uc.Clock.now()

	orders, err := uc.OrderRepo.ListExpired(ctx, now)
	if err != nil {
		return res, &TechnicalError{Code: CodeDatabaseError, Message: "falha ao listar pedidos vencidos", Err: err}
	}
	res.Checked = len(orders)

	bots := make(map[int64]*entity.Bot)
	for _, order := range orders {
		if ctx.Err() != nil {
			log.Printf("⏹️ [SWEEPER] Varredura interrompida; %d pedidos ficam para a próxima", res.Checked-res.Revoked-res.Exempted-res.Errors)
			return res, ctx.Err()
		}

		bot, err := uc.bot(ctx, bots, order.BotID)
		if err != nil {
			log.Printf("❌ [SWEEPER] Bot %d do pedido %d: %v", order.BotID, order.ID, err)
			res.Errors++
			continue
		}

		exempt, err := uc.isAdmin(ctx, bot, order.ContactID)
		if err != nil {
			log.Printf("❌ [SWEEPER] Falha ao checar admin %s no bot %d: %v", order.ContactID, bot.ID, err)
			res.Errors++
			continue
		}
		if exempt {
			res.Exempted++
			continue
		}

		if channel := bot.VIPChannel(); channel != "" {
			if err := uc.Messenger.SoftKick(ctx, bot.Token, channel, order.ContactID); err != nil {
				log.Printf("⚠️ [SWEEPER] Remoção de %s do canal falhou: %v", order.ContactID, err)
				res.KickFailed++
			}
		}

		if err := uc.OrderRepo.MarkExpired(ctx, order.ID); err != nil {
			log.Printf("❌ [SWEEPER] Falha ao expirar pedido %d: %v", order.ID, err)
			res.Errors++
			continue
		}
		res.Revoked++

		if _, err := uc.Messenger.SendText(ctx, bot.Token, order.ContactID, msgPlanExpired, nil); err != nil {
			log.Printf("⚠️ [SWEEPER] Aviso de vencimento para %s não enviado: %v", order.ContactID, err)
		}
	}

	if res.Checked > 0 {
		log.Printf("🧹 [SWEEPER] %d vencidos: %d removidos, %d admins, %d erros", res.Checked, res.Revoked, res.Exempted, res.Errors)
	}
	return res, nil
}

func (uc *AccessLifecycleSweeper) bot(ctx context.Context, cache map[int64]*entity.Bot, id int64) (*entity.Bot, error) {
	if b, ok := cache[id]; ok {
		return b, nil
	}
	b, err := uc.BotRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cache[id] = b
	return b, nil
}

func (uc *AccessLifecycleSweeper) isAdmin(ctx context.Context, bot *entity.Bot, contactID string) (bool, error) {
	return isBotAdmin(ctx, uc.AdminRepo, bot, contactID)
}

// isBotAdmin considera o admin principal do bot e a tabela de admins.
func isBotAdmin(ctx context.Context, repo entity.AdminRepositoryInterface, bot *entity.Bot, contactID string) (bool, error) {
	if bot.AdminPrincipalID != "" && bot.AdminPrincipalID == contactID {
		return true, nil
	}
	if repo == nil {
		return false, nil
	}
	ok, err := repo.IsAdmin(ctx, bot.ID, contactID)
	if err != nil {
		return false, fmt.Errorf("erro ao consultar admins: %w", err)
	}
	return ok, nil
}
