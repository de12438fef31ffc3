package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xavierca1/ligue-funnel/internal/entity"
	"golang.org/x/time/rate"
)

const (
	PriceModeOriginal = "original"
	PriceModeCustom   = "custom"

	ExpirationNone    = "none"
	ExpirationMinutes = "minutes"
	ExpirationHours   = "hours"
	ExpirationDays    = "days"

	// DefaultCampaignRate mantém o disparo abaixo do limite de ~30 msg/s do Telegram.
	DefaultCampaignRate = 25
	testButtonPrefix    = "[TESTE] "
	historyPageSize     = 20
)

type CampaignRequest struct {
	BotID            int64  `json:"bot_id"`
	Target           string `json:"target"`
	Message          string `json:"mensagem"`
	Media            string `json:"media_url,omitempty"`
	PlanID           int64  `json:"plano_id,omitempty"`
	PriceMode        string `json:"price_mode,omitempty"`
	CustomPriceCents int64  `json:"custom_price,omitempty"`
	ExpirationMode   string `json:"expiration_mode,omitempty"`
	ExpirationValue  int    `json:"expiration_value,omitempty"`
	TestMode         bool   `json:"is_test"`
	TestRecipient    string `json:"specific_user_id,omitempty"`
}

// OfferExpiry calcula o fim da oferta a partir do modo de expiração. nil = sem prazo.
func (r CampaignRequest) OfferExpiry(now time.Time) *time.Time {
	if r.ExpirationValue <= 0 {
		return nil
	}
	var d time.Duration
	switch strings.ToLower(r.ExpirationMode) {
	case ExpirationMinutes:
		d = time.Duration(r.ExpirationValue) * time.Minute
	case ExpirationHours:
		d = time.Duration(r.ExpirationValue) * time.Hour
	case ExpirationDays:
		d = time.Duration(r.ExpirationValue) * 24 * time.Hour
	default:
		return nil
	}
	t := now.Add(d)
	return &t
}

type ResendRequest struct {
	HistoryID int64  `json:"history_id"`
	ContactID string `json:"user_telegram_id"`
}

type dispatchJob struct {
	bot        *entity.Bot
	req        CampaignRequest
	campaignID string
	segment    string
	offer      *CampaignOffer
	recipients []string
	buttons    []entity.Button
}

// CampaignDispatcher dispara remarketing para um segmento do funil e grava o histórico.
type CampaignDispatcher struct {
	BotRepo      entity.BotRepositoryInterface
	PlanRepo     entity.PlanRepositoryInterface
	CampaignRepo entity.CampaignRepositoryInterface
	Segmenter    *AudienceSegmenter
	Messenger    Messenger
	Tracker      *ProgressTracker
	Limiter      *rate.Limiter
	Clock        Clock
	NewID        func() string

	// OnDelivery, se definido, recebe o resultado de cada envio (métricas).
	OnDelivery func(DeliveryOutcome)
}

func NewCampaignDispatcher(
	botRepo entity.BotRepositoryInterface,
	planRepo entity.PlanRepositoryInterface,
	campaignRepo entity.CampaignRepositoryInterface,
	segmenter *AudienceSegmenter,
	messenger Messenger,
	tracker *ProgressTracker,
	perSecond float64,
) *CampaignDispatcher {
	if perSecond <= 0 {
		perSecond = DefaultCampaignRate
	}
	return &CampaignDispatcher{
		BotRepo:      botRepo,
		PlanRepo:     planRepo,
		CampaignRepo: campaignRepo,
		Segmenter:    segmenter,
		Messenger:    messenger,
		Tracker:      tracker,
		Limiter:      rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// Start prepara o disparo e roda em segundo plano. O andamento fica no Tracker pelo id devolvido.
func (d *CampaignDispatcher) Start(ctx context.Context, req CampaignRequest) (CampaignProgress, error) {
	job, err := d.prepare(ctx, req)
	if err != nil {
		return CampaignProgress{}, err
	}
	d.begin(job)
	go d.run(context.WithoutCancel(ctx), job)
	p, _ := d.Tracker.Get(job.campaignID)
	return p, nil
}

// Dispatch roda o disparo inteiro e devolve o resultado final.
func (d *CampaignDispatcher) Dispatch(ctx context.Context, req CampaignRequest) (CampaignProgress, error) {
	job, err := d.prepare(ctx, req)
	if err != nil {
		return CampaignProgress{}, err
	}
	d.begin(job)
	d.run(ctx, job)
	p, _ := d.Tracker.Get(job.campaignID)
	return p, nil
}

// Status procura primeiro as campanhas em memória e depois o histórico gravado.
func (d *CampaignDispatcher) Status(ctx context.Context, campaignID string) (CampaignProgress, error) {
	if p, ok := d.Tracker.Get(campaignID); ok {
		return p, nil
	}
	rec, err := d.CampaignRepo.FindByCampaignID(ctx, campaignID)
	if errors.Is(err, entity.ErrCampaignNotFound) {
		return CampaignProgress{}, &DomainError{Code: CodeCampaignNotFound, Message: "campanha não encontrada"}
	}
	if err != nil {
		return CampaignProgress{}, &TechnicalError{Code: CodeDatabaseError, Message: "falha ao buscar campanha", Err: err}
	}
	created := rec.CreatedAt
	return CampaignProgress{
		CampaignID: rec.CampaignID,
		BotID:      rec.BotID,
		Target:     rec.Target,
		Status:     ProgressDone,
		Total:      rec.TotalLeads,
		Sent:       rec.SentSuccess,
		Blocked:    rec.BlockedCount,
		Failed:     rec.TotalLeads - rec.SentSuccess - rec.BlockedCount,
		StartedAt:  rec.CreatedAt,
		FinishedAt: &created,
	}, nil
}

func (d *CampaignDispatcher) History(ctx context.Context, botID int64, page int) ([]*entity.RemarketingCampaign, error) {
	if page < 1 {
		page = 1
	}
	list, err := d.CampaignRepo.ListByBot(ctx, botID, historyPageSize, (page-1)*historyPageSize)
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabaseError, Message: "falha ao listar histórico", Err: err}
	}
	return list, nil
}

func (d *CampaignDispatcher) DeleteHistory(ctx context.Context, id int64) error {
	err := d.CampaignRepo.Delete(ctx, id)
	if errors.Is(err, entity.ErrCampaignNotFound) {
		return &DomainError{Code: CodeCampaignNotFound, Message: "registro de campanha não encontrado"}
	}
	if err != nil {
		return &TechnicalError{Code: CodeDatabaseError, Message: "falha ao apagar histórico", Err: err}
	}
	return nil
}

// ResendIndividual reenvia uma campanha do histórico para um contato, com a oferta original
// enquanto ela não tiver vencido.
func (d *CampaignDispatcher) ResendIndividual(ctx context.Context, req ResendRequest) error {
	if strings.TrimSpace(req.ContactID) == "" {
		return &DomainError{Code: CodeInvalidRequest, Message: "contato obrigatório"}
	}
	rec, err := d.CampaignRepo.FindByID(ctx, req.HistoryID)
	if errors.Is(err, entity.ErrCampaignNotFound) {
		return &DomainError{Code: CodeCampaignNotFound, Message: "registro de campanha não encontrado"}
	}
	if err != nil {
		return &TechnicalError{Code: CodeDatabaseError, Message: "falha ao buscar campanha", Err: err}
	}
	bot, err := d.bot(ctx, rec.BotID)
	if err != nil {
		return err
	}

	var buttons []entity.Button
	if rec.HasOffer() && !rec.OfferExpired(d.Clock.now()) {
		name := "Oferta especial"
		price := int64(0)
		if plan, err := d.PlanRepo.FindByID(ctx, *rec.PlanID); err == nil {
			name, price = plan.Name, plan.PriceCents
		}
		if rec.PromoPriceCents != nil && *rec.PromoPriceCents > 0 {
			price = *rec.PromoPriceCents
		}
		cb := PlanCallback(*rec.PlanID)
		if rec.CampaignID != "" {
			cb = PromoCallback(rec.CampaignID)
		}
		buttons = []entity.Button{{Text: offerButtonText(name, price), CallbackData: cb}}
	}

	if _, err := sendContent(ctx, d.Messenger, bot.Token, req.ContactID, rec.Config.Media, rec.Config.Message, buttons); err != nil {
		log.Printf("❌ [CAMPAIGN] Reenvio da campanha %d para %s falhou: %v", rec.ID, req.ContactID, err)
		return &TechnicalError{Code: CodeSendFailed, Message: "falha ao reenviar campanha", Err: err}
	}
	log.Printf("📨 [CAMPAIGN] Campanha %d reenviada para %s", rec.ID, req.ContactID)
	return nil
}

func (d *CampaignDispatcher) bot(ctx context.Context, id int64) (*entity.Bot, error) {
	bot, err := d.BotRepo.FindByID(ctx, id)
	if errors.Is(err, entity.ErrBotNotFound) {
		return nil, &DomainError{Code: CodeBotNotFound, Message: "bot não encontrado"}
	}
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabaseError, Message: "falha ao buscar bot", Err: err}
	}
	return bot, nil
}

func (d *CampaignDispatcher) prepare(ctx context.Context, req CampaignRequest) (*dispatchJob, error) {
	if errs := ValidateCampaignRequest(req); len(errs) > 0 {
		return nil, validationFailure(errs)
	}
	bot, err := d.bot(ctx, req.BotID)
	if err != nil {
		return nil, err
	}

	job := &dispatchJob{bot: bot, req: req, campaignID: d.newID()}

	if req.PlanID > 0 {
		plan, err := d.PlanRepo.FindByID(ctx, req.PlanID)
		if errors.Is(err, entity.ErrPlanNotFound) {
			return nil, &DomainError{Code: CodePlanNotFound, Message: "plano da oferta não encontrado"}
		}
		if err != nil {
			return nil, &TechnicalError{Code: CodeDatabaseError, Message: "falha ao buscar plano", Err: err}
		}
		price := plan.PriceCents
		if req.PriceMode == PriceModeCustom && req.CustomPriceCents > 0 {
			price = req.CustomPriceCents
		}
		job.offer = &CampaignOffer{
			PlanID:     plan.ID,
			PlanName:   plan.Name,
			PriceCents: price,
			ExpiresAt:  req.OfferExpiry(d.Clock.now()),
		}
		text := offerButtonText(plan.Name, price)
		cb := PromoCallback(job.campaignID)
		if req.TestMode {
			text = testButtonPrefix + text
			cb = PlanCallback(plan.ID)
		}
		job.buttons = []entity.Button{{Text: text, CallbackData: cb}}
	}

	if req.TestMode {
		recipient := strings.TrimSpace(req.TestRecipient)
		if recipient == "" {
			recipient = bot.AdminPrincipalID
		}
		if recipient == "" {
			return nil, &DomainError{Code: CodeInvalidRequest, Message: "teste sem destinatário e bot sem admin principal"}
		}
		job.segment = "teste"
		job.recipients = []string{recipient}
		return job, nil
	}

	aud, err := d.Segmenter.Segment(ctx, bot.ID, req.Target)
	if err != nil {
		return nil, err
	}
	if aud.Size() == 0 {
		return nil, &DomainError{Code: CodeEmptyAudience, Message: "nenhum contato no segmento " + aud.Segment}
	}
	job.segment = aud.Segment
	job.recipients = aud.IDs()
	return job, nil
}

func (d *CampaignDispatcher) begin(job *dispatchJob) {
	d.Tracker.Begin(CampaignProgress{
		CampaignID: job.campaignID,
		BotID:      job.bot.ID,
		Target:     job.segment,
		TestMode:   job.req.TestMode,
		Total:      len(job.recipients),
		Offer:      job.offer,
		StartedAt:  d.Clock.now(),
	})
}

func (d *CampaignDispatcher) run(ctx context.Context, job *dispatchJob) {
	log.Printf("📣 [CAMPAIGN] %s: bot %d, segmento %s, %d contatos", job.campaignID, job.bot.ID, job.segment, len(job.recipients))

	var sent, blocked int
	for _, chatID := range job.recipients {
		if d.Limiter != nil {
			if err := d.Limiter.Wait(ctx); err != nil {
				log.Printf("⏹️ [CAMPAIGN] %s interrompida: %v", job.campaignID, err)
				break
			}
		}
		_, err := sendContent(ctx, d.Messenger, job.bot.Token, chatID, job.req.Media, job.req.Message, job.buttons)
		outcome := ClassifyDelivery(err)
		switch outcome {
		case DeliverySent:
			sent++
		case DeliveryBlocked:
			blocked++
		default:
			log.Printf("⚠️ [CAMPAIGN] Falha ao enviar para %s: %v", chatID, err)
		}
		d.Tracker.Record(job.campaignID, outcome)
		if d.OnDelivery != nil {
			d.OnDelivery(outcome)
		}
	}

	if !job.req.TestMode {
		d.record(ctx, job, sent, blocked)
	}
	d.Tracker.Finish(job.campaignID, d.Clock.now())
	log.Printf("✅ [CAMPAIGN] %s concluída: %d enviados, %d bloqueados, %d total", job.campaignID, sent, blocked, len(job.recipients))
}

func (d *CampaignDispatcher) record(ctx context.Context, job *dispatchJob, sent, blocked int) {
	rec := &entity.RemarketingCampaign{
		BotID:        job.bot.ID,
		CampaignID:   job.campaignID,
		Target:       job.segment,
		Type:         entity.CampaignTypeMassive,
		Config:       entity.CampaignConfig{Message: job.req.Message, Media: job.req.Media},
		Status:       entity.CampaignStatusDone,
		TotalLeads:   len(job.recipients),
		SentSuccess:  sent,
		BlockedCount: blocked,
		CreatedAt:    d.Clock.now(),
	}
	if job.offer != nil {
		planID, price := job.offer.PlanID, job.offer.PriceCents
		rec.PlanID = &planID
		rec.PromoPriceCents = &price
		rec.ExpiresAt = job.offer.ExpiresAt
		rec.Config.PlanID = planID
		rec.Config.PromoPriceCents = price
	}
	if err := d.CampaignRepo.Create(ctx, rec); err != nil {
		log.Printf("❌ [CAMPAIGN] Falha ao gravar histórico da campanha %s: %v", job.campaignID, err)
	}
}

func (d *CampaignDispatcher) newID() string {
	if d.NewID != nil {
		return d.NewID()
	}
	return uuid.New().String()
}
