package usecase

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"time"

	"github.com/xavierca1/ligue-funnel/internal/entity"
)

const (
	offerSuffix = " (OFERTA)"

	msgChoosePlan     = "Escolha seu plano:"
	msgNoPlans        = "😕 Nenhum plano disponível no momento."
	msgPlanGone       = "❌ Este plano não está mais disponível. Digite /start para ver os planos atuais."
	msgCheckoutFailed = "❌ Erro ao gerar PIX. Tente novamente ou contate o suporte."
	msgOfferExpired   = "⏰ <b>Esta oferta expirou!</b>\n\nDigite /start para ver os planos disponíveis."
	msgOfferNotFound  = "⚠️ Oferta não encontrada. Digite /start para ver os planos disponíveis."
	defaultNextButton = "Próximo ▶️"
	defaultPlansLabel = "🛒 Ver planos"
	defaultAcceptBump = "✅ Quero aproveitar"
	defaultRejectBump = "❌ Não, obrigado"
)

// Conversation identifica o contato falando com um bot em um chat privado.
type Conversation struct {
	Bot    *entity.Bot
	ChatID string
	User   entity.User
}

type CallbackEvent struct {
	Conversation
	CallbackID string
	MessageID  int64
	Data       string
}

type FunnelRepos struct {
	Bots      entity.BotRepositoryInterface
	Leads     entity.LeadRepositoryInterface
	Orders    entity.OrderRepositoryInterface
	Plans     entity.PlanRepositoryInterface
	Flows     entity.FlowRepositoryInterface
	Campaigns entity.CampaignRepositoryInterface
	Bumps     entity.OrderBumpRepositoryInterface
}

// FunnelUseCase conduz a conversa: boas-vindas, passos, oferta final, order bump e checkout.
type FunnelUseCase struct {
	Repos     FunnelRepos
	Sequencer *FlowStepSequencer
	Bump      *OrderBumpNegotiator
	Checkout  *CheckoutOrderManager
	Messenger Messenger
	Scheduler StepScheduler
	Tracker   *ProgressTracker
	Clock     Clock
}

func NewFunnelUseCase(
	repos FunnelRepos,
	checkout *CheckoutOrderManager,
	messenger Messenger,
	scheduler StepScheduler,
	tracker *ProgressTracker,
) *FunnelUseCase {
	return &FunnelUseCase{
		Repos:     repos,
		Sequencer: NewFlowStepSequencer(repos.Flows),
		Bump:      NewOrderBumpNegotiator(repos.Bumps),
		Checkout:  checkout,
		Messenger: messenger,
		Scheduler: scheduler,
		Tracker:   tracker,
	}
}

// ResolveBot acha o bot dono do webhook pelo token da URL.
func (uc *FunnelUseCase) ResolveBot(ctx context.Context, token string) (*entity.Bot, error) {
	bot, err := uc.Repos.Bots.FindByToken(ctx, token)
	if errors.Is(err, entity.ErrBotNotFound) {
		return nil, &DomainError{Code: CodeBotNotFound, Message: "bot não encontrado"}
	}
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabaseError, Message: "falha ao buscar bot", Err: err}
	}
	return bot, nil
}

// HandleStart responde ao /start: registra o lead e manda a mensagem de boas-vindas.
func (uc *FunnelUseCase) HandleStart(ctx context.Context, conv Conversation) error {
	if conv.Bot.IsPaused() {
		log.Printf("⏸️ [FUNNEL] Bot %d pausado, /start de %s ignorado", conv.Bot.ID, conv.User.ID)
		return nil
	}
	uc.captureLead(ctx, conv)

	cfg := uc.flowConfig(ctx, conv.Bot)
	var buttons []entity.Button
	switch {
	case cfg.ShowPlansOnWelcome:
		plans, err := uc.Repos.Plans.ListByBot(ctx, conv.Bot.ID)
		if err != nil {
			return fmt.Errorf("erro ao listar planos: %w", err)
		}
		buttons = planButtons(plans)
	case cfg.WelcomeButton != "":
		buttons = []entity.Button{{Text: cfg.WelcomeButton, CallbackData: CallbackFlowStart}}
	}

	msgID, err := sendContent(ctx, uc.Messenger, conv.Bot.Token, conv.ChatID, cfg.WelcomeMedia, cfg.WelcomeText, buttons)
	if err != nil {
		log.Printf("❌ [FUNNEL] Boas-vindas para %s falharam: %v", conv.ChatID, err)
		return nil
	}

	if len(buttons) == 0 {
		uc.advance(ctx, conv.Bot, conv.ChatID, nil, autoDestructID(cfg.AutoDestructWelcome, msgID))
	}
	return nil
}

// HandleCallback trata os cliques nos botões inline.
func (uc *FunnelUseCase) HandleCallback(ctx context.Context, ev CallbackEvent) error {
	if ev.CallbackID != "" {
		if err := uc.Messenger.AnswerCallback(ctx, ev.Bot.Token, ev.CallbackID, ""); err != nil {
			log.Printf("⚠️ [FUNNEL] answerCallbackQuery falhou: %v", err)
		}
	}
	if ev.Bot.IsPaused() {
		return nil
	}

	cb, err := ParseCallback(ev.Data)
	if err != nil {
		log.Printf("⚠️ [FUNNEL] Bot %d: %v", ev.Bot.ID, err)
		return err
	}

	switch cb.Action {
	case ActionFlowStart:
		if uc.flowConfig(ctx, ev.Bot).AutoDestructWelcome {
			uc.deleteMessage(ctx, ev.Bot, ev.ChatID, ev.MessageID)
		}
		uc.advance(ctx, ev.Bot, ev.ChatID, nil, 0)
	case ActionFlowNext:
		step, err := uc.Sequencer.Find(ctx, ev.Bot.ID, cb.StepOrder)
		if err != nil {
			return err
		}
		if step != nil && step.AutoDestruct {
			uc.deleteMessage(ctx, ev.Bot, ev.ChatID, ev.MessageID)
		}
		current := cb.StepOrder
		uc.advance(ctx, ev.Bot, ev.ChatID, &current, 0)
	case ActionCheckout:
		return uc.sendPlans(ctx, ev.Bot, ev.ChatID)
	case ActionPlan:
		offer, err := uc.Bump.Offer(ctx, ev.Bot.ID)
		if err != nil {
			log.Printf("⚠️ [FUNNEL] %v (seguindo sem order bump)", err)
		}
		if offer != nil {
			return uc.presentBump(ctx, ev, offer, cb.PlanID)
		}
		return uc.checkout(ctx, ev, CheckoutInput{PlanID: cb.PlanID, Origin: OriginBot})
	case ActionBumpAccept, ActionBumpDecline:
		decision, err := uc.Bump.Decide(ctx, ev.Bot.ID, cb.Action == ActionBumpAccept)
		if err != nil {
			log.Printf("⚠️ [FUNNEL] %v (seguindo sem order bump)", err)
		}
		if decision != nil && decision.Offer.AutoDestruct {
			uc.deleteMessage(ctx, ev.Bot, ev.ChatID, ev.MessageID)
		}
		return uc.checkout(ctx, ev, CheckoutInput{PlanID: cb.PlanID, Bump: decision, Origin: OriginBot})
	case ActionPromo:
		return uc.promo(ctx, ev, cb.CampaignID)
	}
	return nil
}

// ContinueAutoAdvance é chamado pelo agendador quando o delay de um passo sem botão termina.
func (uc *FunnelUseCase) ContinueAutoAdvance(ctx context.Context, job StepJob) error {
	bot, err := uc.Repos.Bots.FindByID(ctx, job.BotID)
	if err != nil {
		return fmt.Errorf("erro ao carregar bot %d: %w", job.BotID, err)
	}
	if bot.IsPaused() {
		return nil
	}
	if job.AutoDestruct {
		uc.deleteMessage(ctx, bot, job.ChatID, job.MessageID)
	}
	current := job.StepOrder
	uc.advance(ctx, bot, job.ChatID, &current, 0)
	return nil
}

// advance manda o próximo passo. Passo sem botão é agendado para continuar depois do delay;
// fim da sequência leva à oferta final.
func (uc *FunnelUseCase) advance(ctx context.Context, bot *entity.Bot, chatID string, current *int, destroyAfter int64) {
	res, err := uc.Sequencer.Next(ctx, bot.ID, current)
	if err != nil {
		log.Printf("❌ [FUNNEL] %v", err)
		return
	}
	if destroyAfter > 0 {
		uc.deleteMessage(ctx, bot, chatID, destroyAfter)
	}
	if res.IsTerminal {
		if err := uc.sendOffer(ctx, bot, chatID); err != nil {
			log.Printf("❌ [FUNNEL] Oferta final para %s: %v", chatID, err)
		}
		return
	}

	step := res.Step
	var buttons []entity.Button
	if step.ShowButton {
		label := step.ButtonText
		if label == "" {
			label = defaultNextButton
		}
		buttons = []entity.Button{{Text: label, CallbackData: NextStepCallback(step.StepOrder)}}
	}
	msgID, err := sendContent(ctx, uc.Messenger, bot.Token, chatID, step.Media, step.Text, buttons)
	if err != nil {
		log.Printf("❌ [FUNNEL] Passo %d para %s falhou: %v", step.StepOrder, chatID, err)
		return
	}
	if step.ShowButton {
		return
	}

	job := StepJob{
		BotID:        bot.ID,
		ChatID:       chatID,
		StepOrder:    step.StepOrder,
		MessageID:    msgID,
		AutoDestruct: step.AutoDestruct,
	}
	delay := time.Duration(step.DelaySeconds) * time.Second
	if uc.Scheduler == nil {
		next := step.StepOrder
		uc.advance(ctx, bot, chatID, &next, autoDestructID(step.AutoDestruct, msgID))
		return
	}
	if err := uc.Scheduler.Schedule(ctx, job, delay); err != nil {
		log.Printf("❌ [FUNNEL] Falha ao agendar passo seguinte a %d para %s: %v", step.StepOrder, chatID, err)
	}
}

func (uc *FunnelUseCase) sendOffer(ctx context.Context, bot *entity.Bot, chatID string) error {
	cfg := uc.flowConfig(ctx, bot)
	if cfg.OfferText == "" && cfg.OfferMedia == "" {
		return uc.sendPlans(ctx, bot, chatID)
	}
	var buttons []entity.Button
	if cfg.ShowPlansOnOffer {
		plans, err := uc.Repos.Plans.ListByBot(ctx, bot.ID)
		if err != nil {
			return fmt.Errorf("erro ao listar planos: %w", err)
		}
		buttons = planButtons(plans)
	} else {
		buttons = []entity.Button{{Text: defaultPlansLabel, CallbackData: CallbackCheckout}}
	}
	_, err := sendContent(ctx, uc.Messenger, bot.Token, chatID, cfg.OfferMedia, cfg.OfferText, buttons)
	return err
}

func (uc *FunnelUseCase) sendPlans(ctx context.Context, bot *entity.Bot, chatID string) error {
	plans, err := uc.Repos.Plans.ListByBot(ctx, bot.ID)
	if err != nil {
		return fmt.Errorf("erro ao listar planos: %w", err)
	}
	if len(plans) == 0 {
		_, err = uc.Messenger.SendText(ctx, bot.Token, chatID, msgNoPlans, nil)
		return err
	}
	_, err = uc.Messenger.SendText(ctx, bot.Token, chatID, msgChoosePlan, planButtons(plans))
	return err
}

func (uc *FunnelUseCase) presentBump(ctx context.Context, ev CallbackEvent, offer *entity.OrderBumpOffer, planID int64) error {
	accept, decline := offer.AcceptButton, offer.DeclineButton
	if accept == "" {
		accept = defaultAcceptBump
	}
	if decline == "" {
		decline = defaultRejectBump
	}
	text := offer.Text
	if text == "" {
		text = fmt.Sprintf("🎁 Leve também <b>%s</b> por apenas %s!", html.EscapeString(offer.Name), entity.FormatBRL(offer.PriceCents))
	}
	buttons := []entity.Button{
		{Text: accept, CallbackData: BumpCallback(true, planID)},
		{Text: decline, CallbackData: BumpCallback(false, planID)},
	}
	if _, err := sendContent(ctx, uc.Messenger, ev.Bot.Token, ev.ChatID, offer.Media, text, buttons); err != nil {
		log.Printf("⚠️ [FUNNEL] Order bump não enviado para %s, seguindo direto: %v", ev.ChatID, err)
		return uc.checkout(ctx, ev, CheckoutInput{PlanID: planID, Origin: OriginBot})
	}
	return nil
}

func (uc *FunnelUseCase) promo(ctx context.Context, ev CallbackEvent, campaignID string) error {
	offer, err := uc.campaignOffer(ctx, campaignID)
	if err != nil {
		return err
	}
	if offer == nil {
		_, err := uc.Messenger.SendText(ctx, ev.Bot.Token, ev.ChatID, msgOfferNotFound, nil)
		return err
	}
	if offer.Expired(uc.Clock.now()) {
		if _, err := uc.Messenger.SendText(ctx, ev.Bot.Token, ev.ChatID, msgOfferExpired, nil); err != nil {
			log.Printf("⚠️ [FUNNEL] Aviso de oferta expirada não enviado: %v", err)
		}
		return &DomainError{Code: CodeOfferExpired, Message: "oferta expirada"}
	}
	price := offer.PriceCents
	return uc.checkout(ctx, ev, CheckoutInput{
		PlanID:          offer.PlanID,
		PromoPriceCents: &price,
		NameSuffix:      offerSuffix,
		Origin:          OriginRemarketing,
	})
}

// campaignOffer procura a oferta no histórico e, se a campanha ainda está disparando, no Tracker.
func (uc *FunnelUseCase) campaignOffer(ctx context.Context, campaignID string) (*CampaignOffer, error) {
	rec, err := uc.Repos.Campaigns.FindByCampaignID(ctx, campaignID)
	switch {
	case err == nil:
		if !rec.HasOffer() {
			return nil, nil
		}
		offer := &CampaignOffer{PlanID: *rec.PlanID, ExpiresAt: rec.ExpiresAt}
		if rec.PromoPriceCents != nil {
			offer.PriceCents = *rec.PromoPriceCents
		}
		return offer, nil
	case errors.Is(err, entity.ErrCampaignNotFound):
		if uc.Tracker != nil {
			if offer, ok := uc.Tracker.Offer(campaignID); ok {
				return offer, nil
			}
		}
		return nil, nil
	default:
		return nil, &TechnicalError{Code: CodeDatabaseError, Message: "falha ao buscar campanha", Err: err}
	}
}

func (uc *FunnelUseCase) checkout(ctx context.Context, ev CallbackEvent, in CheckoutInput) error {
	in.Bot = ev.Bot
	in.Contact = ev.User
	out, err := uc.Checkout.Checkout(ctx, in)
	if err != nil {
		text := msgCheckoutFailed
		if ErrorCode(err) == CodePlanNotFound {
			text = msgPlanGone
		}
		log.Printf("❌ [CHECKOUT] Bot %d, contato %s: %v", ev.Bot.ID, ev.User.ID, err)
		if _, sendErr := uc.Messenger.SendText(ctx, ev.Bot.Token, ev.ChatID, text, nil); sendErr != nil {
			log.Printf("⚠️ [CHECKOUT] Aviso de falha não enviado: %v", sendErr)
		}
		return err
	}

	if _, err := uc.Messenger.SendText(ctx, ev.Bot.Token, ev.ChatID, pixMessage(out), nil); err != nil {
		log.Printf("❌ [CHECKOUT] PIX do pedido %d não enviado para %s: %v", out.OrderID, ev.ChatID, err)
	}
	uc.notifyAdminCharge(ctx, ev, out)
	return nil
}

func (uc *FunnelUseCase) notifyAdminCharge(ctx context.Context, ev CallbackEvent, out *CheckoutOutput) {
	if ev.Bot.AdminPrincipalID == "" {
		return
	}
	title := "🔔 <b>PIX GERADO</b>"
	if out.Renewal {
		title = "🔔 <b>PIX GERADO (nova tentativa)</b>"
	}
	user := ev.User.ID
	if ev.User.Username != "" {
		user = "@" + ev.User.Username
	}
	text := fmt.Sprintf("%s\n\n👤 %s (%s)\n📦 %s\n💵 %s",
		title, html.EscapeString(ev.User.FirstName), html.EscapeString(user), html.EscapeString(out.PlanName), entity.FormatBRL(out.PriceCents))
	if _, err := uc.Messenger.SendText(ctx, ev.Bot.Token, ev.Bot.AdminPrincipalID, text, nil); err != nil {
		log.Printf("⚠️ [CHECKOUT] Falha ao notificar admin do bot %d: %v", ev.Bot.ID, err)
	}
}

func pixMessage(out *CheckoutOutput) string {
	return fmt.Sprintf("🌟 Seu pagamento foi gerado:\n\n🎁 Plano: <b>%s</b>\n💰 Valor: <b>%s</b>\n\n🔐 Pague via Pix Copia e Cola:\n\n<code>%s</code>\n\n👆 Toque no código para copiar.\n‼️ Após o pagamento, o acesso é liberado automaticamente!",
		html.EscapeString(out.PlanName), entity.FormatBRL(out.PriceCents), html.EscapeString(out.PixCode))
}

func (uc *FunnelUseCase) captureLead(ctx context.Context, conv Conversation) {
	_, err := uc.Repos.Orders.FindByBotAndContact(ctx, conv.Bot.ID, conv.User.ID)
	if err == nil {
		return
	}
	if !errors.Is(err, entity.ErrOrderNotFound) {
		log.Printf("⚠️ [FUNNEL] Falha ao checar pedido de %s: %v", conv.User.ID, err)
		return
	}
	now := uc.Clock.now()
	lead := &entity.Lead{
		BotID:          conv.Bot.ID,
		UserID:         conv.User.ID,
		Name:           conv.User.FirstName,
		Username:       conv.User.Username,
		Stage:          entity.LeadStageCold,
		FirstContactAt: now,
		LastContactAt:  now,
		CreatedAt:      now,
	}
	if err := uc.Repos.Leads.Upsert(ctx, lead); err != nil {
		log.Printf("⚠️ [FUNNEL] Falha ao salvar lead %s: %v", conv.User.ID, err)
	}
}

func (uc *FunnelUseCase) flowConfig(ctx context.Context, bot *entity.Bot) *entity.FlowConfig {
	cfg, err := uc.Repos.Flows.FindConfig(ctx, bot.ID)
	if err != nil {
		if !errors.Is(err, entity.ErrFlowNotFound) {
			log.Printf("⚠️ [FUNNEL] Falha ao ler fluxo do bot %d, usando padrão: %v", bot.ID, err)
		}
		return entity.DefaultFlowConfig(bot)
	}
	return cfg
}

func (uc *FunnelUseCase) deleteMessage(ctx context.Context, bot *entity.Bot, chatID string, messageID int64) {
	if messageID <= 0 {
		return
	}
	if err := uc.Messenger.DeleteMessage(ctx, bot.Token, chatID, messageID); err != nil {
		log.Printf("⚠️ [FUNNEL] Falha ao apagar mensagem %d de %s: %v", messageID, chatID, err)
	}
}

func autoDestructID(enabled bool, messageID int64) int64 {
	if enabled {
		return messageID
	}
	return 0
}
