package usecase

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/xavierca1/ligue-funnel/internal/entity"
)

// ============ REPOSITÓRIOS EM MEMÓRIA ============

type memBots struct {
	bots map[int64]*entity.Bot
}

func newMemBots(bots ...*entity.Bot) *memBots {
	r := &memBots{bots: make(map[int64]*entity.Bot)}
	for _, b := range bots {
		r.bots[b.ID] = b
	}
	return r
}

func (r *memBots) FindByID(ctx context.Context, id int64) (*entity.Bot, error) {
	if b, ok := r.bots[id]; ok {
		return b, nil
	}
	return nil, entity.ErrBotNotFound
}

func (r *memBots) FindByToken(ctx context.Context, token string) (*entity.Bot, error) {
	for _, b := range r.bots {
		if b.Token == token {
			return b, nil
		}
	}
	return nil, entity.ErrBotNotFound
}

type memAdmins struct {
	mu     sync.Mutex
	admins map[int64]map[string]bool
	calls  int
	err    error
}

func newMemAdmins() *memAdmins {
	return &memAdmins{admins: make(map[int64]map[string]bool)}
}

func (r *memAdmins) add(botID int64, telegramID string) {
	if r.admins[botID] == nil {
		r.admins[botID] = make(map[string]bool)
	}
	r.admins[botID][telegramID] = true
}

func (r *memAdmins) IsAdmin(ctx context.Context, botID int64, telegramID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return false, r.err
	}
	return r.admins[botID][telegramID], nil
}

func (r *memAdmins) ListByBot(ctx context.Context, botID int64) ([]*entity.Admin, error) {
	var out []*entity.Admin
	for id := range r.admins[botID] {
		out = append(out, &entity.Admin{BotID: botID, TelegramID: id})
	}
	return out, nil
}

type memPlans struct {
	plans map[int64]*entity.Plan
}

func newMemPlans(plans ...*entity.Plan) *memPlans {
	r := &memPlans{plans: make(map[int64]*entity.Plan)}
	for _, p := range plans {
		r.plans[p.ID] = p
	}
	return r
}

func (r *memPlans) FindByID(ctx context.Context, id int64) (*entity.Plan, error) {
	if p, ok := r.plans[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, entity.ErrPlanNotFound
}

func (r *memPlans) ListByBot(ctx context.Context, botID int64) ([]*entity.Plan, error) {
	var out []*entity.Plan
	for _, p := range r.plans {
		if p.BotID == botID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PriceCents < out[j].PriceCents })
	return out, nil
}

type memFlows struct {
	configs map[int64]*entity.FlowConfig
	steps   map[int64][]*entity.FlowStep
}

func newMemFlows() *memFlows {
	return &memFlows{
		configs: make(map[int64]*entity.FlowConfig),
		steps:   make(map[int64][]*entity.FlowStep),
	}
}

func (r *memFlows) FindConfig(ctx context.Context, botID int64) (*entity.FlowConfig, error) {
	if c, ok := r.configs[botID]; ok {
		return c, nil
	}
	return nil, entity.ErrFlowNotFound
}

func (r *memFlows) ListSteps(ctx context.Context, botID int64) ([]*entity.FlowStep, error) {
	return r.steps[botID], nil
}

type memBumps struct {
	offers map[int64]*entity.OrderBumpOffer
}

func newMemBumps(offers ...*entity.OrderBumpOffer) *memBumps {
	r := &memBumps{offers: make(map[int64]*entity.OrderBumpOffer)}
	for _, o := range offers {
		r.offers[o.BotID] = o
	}
	return r
}

func (r *memBumps) FindByBot(ctx context.Context, botID int64) (*entity.OrderBumpOffer, error) {
	if o, ok := r.offers[botID]; ok {
		return o, nil
	}
	return nil, entity.ErrOrderBumpNotFound
}

type memLeads struct {
	mu     sync.Mutex
	leads  map[string]*entity.Lead
	nextID int64
}

func newMemLeads() *memLeads {
	return &memLeads{leads: make(map[string]*entity.Lead)}
}

func leadKey(botID int64, userID string) string {
	return strconv.FormatInt(botID, 10) + ":" + userID
}

func (r *memLeads) Upsert(ctx context.Context, lead *entity.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := leadKey(lead.BotID, lead.UserID)
	if existing, ok := r.leads[key]; ok {
		existing.Name = lead.Name
		existing.Username = lead.Username
		existing.LastContactAt = lead.LastContactAt
		lead.ID = existing.ID
		return nil
	}
	r.nextID++
	lead.ID = r.nextID
	cp := *lead
	r.leads[key] = &cp
	return nil
}

func (r *memLeads) Delete(ctx context.Context, botID int64, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := leadKey(botID, userID)
	if _, ok := r.leads[key]; !ok {
		return entity.ErrLeadNotFound
	}
	delete(r.leads, key)
	return nil
}

func (r *memLeads) ListByBot(ctx context.Context, botID int64) ([]*entity.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Lead
	for _, l := range r.leads {
		if l.BotID == botID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memLeads) has(botID int64, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.leads[leadKey(botID, userID)]
	return ok
}

// memOrders imita a tabela pedidos: um pedido por (bot, contato), MarkPaid condicional.
type memOrders struct {
	mu     sync.Mutex
	orders map[int64]*entity.Order
	nextID int64
}

func newMemOrders(orders ...*entity.Order) *memOrders {
	r := &memOrders{orders: make(map[int64]*entity.Order)}
	for _, o := range orders {
		r.nextID++
		if o.ID == 0 {
			o.ID = r.nextID
		}
		cp := *o
		r.orders[o.ID] = &cp
	}
	return r
}

func (r *memOrders) FindByID(ctx context.Context, id int64) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, entity.ErrOrderNotFound
}

func (r *memOrders) FindByBotAndContact(ctx context.Context, botID int64, contactID string) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.BotID == botID && o.ContactID == contactID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, entity.ErrOrderNotFound
}

func (r *memOrders) FindByChargeID(ctx context.Context, chargeID string) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ChargeID != "" && strings.EqualFold(o.ChargeID, chargeID) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, entity.ErrOrderNotFound
}

func (r *memOrders) Save(ctx context.Context, o *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.orders {
		if existing.BotID == o.BotID && existing.ContactID == o.ContactID {
			o.ID = id
			if existing.FirstContactAt != nil {
				o.FirstContactAt = existing.FirstContactAt
			}
			cp := *o
			r.orders[id] = &cp
			return nil
		}
	}
	r.nextID++
	o.ID = r.nextID
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *memOrders) SetCharge(ctx context.Context, orderID int64, chargeID, pixCode string, chargedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return entity.ErrOrderNotFound
	}
	o.ChargeID = chargeID
	o.PixCode = pixCode
	o.ChargedAt = &chargedAt
	return nil
}

func (r *memOrders) MarkPaid(ctx context.Context, orderID int64, chargeID string, paidAt time.Time, expiresAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.Status != entity.OrderStatusPending || o.ChargeID == "" || !strings.EqualFold(o.ChargeID, chargeID) {
		return false, nil
	}
	o.Status = entity.OrderStatusPaid
	o.PaidAt = &paidAt
	o.ExpiresAt = expiresAt
	o.Delivered = false
	return true, nil
}

func (r *memOrders) MarkDelivered(ctx context.Context, orderID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[orderID]; ok {
		o.Delivered = true
	}
	return nil
}

func (r *memOrders) MarkExpired(ctx context.Context, orderID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[orderID]; ok {
		o.Status = entity.OrderStatusExpired
	}
	return nil
}

func (r *memOrders) ListExpired(ctx context.Context, now time.Time) ([]*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Order
	for _, o := range r.orders {
		if o.IsPaid() && o.ExpiresAt != nil && o.ExpiresAt.Before(now) {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memOrders) ListByBot(ctx context.Context, botID int64) ([]*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Order
	for _, o := range r.orders {
		if o.BotID == botID {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memOrders) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

func (r *memOrders) get(id int64) *entity.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[id]; ok {
		cp := *o
		return &cp
	}
	return nil
}

type memCampaigns struct {
	mu        sync.Mutex
	campaigns map[int64]*entity.RemarketingCampaign
	nextID    int64
}

func newMemCampaigns(campaigns ...*entity.RemarketingCampaign) *memCampaigns {
	r := &memCampaigns{campaigns: make(map[int64]*entity.RemarketingCampaign)}
	for _, c := range campaigns {
		_ = r.Create(context.Background(), c)
	}
	return r
}

func (r *memCampaigns) Create(ctx context.Context, c *entity.RemarketingCampaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	cp := *c
	r.campaigns[c.ID] = &cp
	return nil
}

func (r *memCampaigns) FindByID(ctx context.Context, id int64) (*entity.RemarketingCampaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, entity.ErrCampaignNotFound
}

func (r *memCampaigns) FindByCampaignID(ctx context.Context, campaignID string) (*entity.RemarketingCampaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.campaigns {
		if c.CampaignID == campaignID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, entity.ErrCampaignNotFound
}

func (r *memCampaigns) ListByBot(ctx context.Context, botID int64, limit, offset int) ([]*entity.RemarketingCampaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*entity.RemarketingCampaign{}
	for _, c := range r.campaigns {
		if c.BotID == botID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []*entity.RemarketingCampaign{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memCampaigns) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.campaigns[id]; !ok {
		return entity.ErrCampaignNotFound
	}
	delete(r.campaigns, id)
	return nil
}

func (r *memCampaigns) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.campaigns)
}

// ============ TELEGRAM FALSO ============

type sentMessage struct {
	ChatID  string
	Text    string
	Media   string
	Buttons []entity.Button
}

type fakeMessenger struct {
	mu       sync.Mutex
	nextID   int64
	sent     []sentMessage
	deleted  []int64
	kicked   []string
	unbanned []string
	invites  []string
	answered []string

	failFor   map[string]error
	mediaErr  error
	inviteErr error
	kickErr   error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{failFor: make(map[string]error)}
}

func (m *fakeMessenger) SendText(ctx context.Context, token, chatID, text string, buttons []entity.Button) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failFor[chatID]; err != nil {
		return 0, err
	}
	m.nextID++
	m.sent = append(m.sent, sentMessage{ChatID: chatID, Text: text, Buttons: buttons})
	return m.nextID, nil
}

func (m *fakeMessenger) SendMedia(ctx context.Context, token, chatID, mediaURL, caption string, buttons []entity.Button) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failFor[chatID]; err != nil {
		return 0, err
	}
	if m.mediaErr != nil {
		return 0, m.mediaErr
	}
	m.nextID++
	m.sent = append(m.sent, sentMessage{ChatID: chatID, Text: caption, Media: mediaURL, Buttons: buttons})
	return m.nextID, nil
}

func (m *fakeMessenger) DeleteMessage(ctx context.Context, token, chatID string, messageID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *fakeMessenger) SoftKick(ctx context.Context, token, chatID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.kickErr != nil {
		return m.kickErr
	}
	m.kicked = append(m.kicked, chatID+":"+userID)
	return nil
}

func (m *fakeMessenger) Unban(ctx context.Context, token, chatID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unbanned = append(m.unbanned, chatID+":"+userID)
	return nil
}

func (m *fakeMessenger) CreateInviteLink(ctx context.Context, token, chatID, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inviteErr != nil {
		return "", m.inviteErr
	}
	m.invites = append(m.invites, name)
	return "https://t.me/+convite" + strconv.Itoa(len(m.invites)), nil
}

func (m *fakeMessenger) AnswerCallback(ctx context.Context, token, callbackID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answered = append(m.answered, callbackID)
	return nil
}

// to devolve as mensagens enviadas para um chat, em ordem.
func (m *fakeMessenger) to(chatID string) []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMessage
	for _, s := range m.sent {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

func (m *fakeMessenger) last(chatID string) sentMessage {
	msgs := m.to(chatID)
	if len(msgs) == 0 {
		return sentMessage{}
	}
	return msgs[len(msgs)-1]
}

// ============ MOCKS ============

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCharge(ctx context.Context, req entity.ChargeRequest) (*entity.Charge, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Charge), args.Error(1)
}

type MockGranter struct {
	mock.Mock
}

func (m *MockGranter) Grant(ctx context.Context, grant AccessGrant) error {
	args := m.Called(ctx, grant)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifySale(ctx context.Context, sale SaleNotice) error {
	args := m.Called(ctx, sale)
	return args.Error(0)
}

type MockStatusChecker struct {
	mock.Mock
}

func (m *MockStatusChecker) ChargeStatus(ctx context.Context, chargeID string) (string, error) {
	args := m.Called(ctx, chargeID)
	return args.String(0), args.Error(1)
}

// seqGateway gera cobranças com ids sequenciais em maiúsculas, como alguns provedores devolvem.
type seqGateway struct {
	mu       sync.Mutex
	n        int
	requests []entity.ChargeRequest
}

func (g *seqGateway) CreateCharge(ctx context.Context, req entity.ChargeRequest) (*entity.Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	g.requests = append(g.requests, req)
	return &entity.Charge{
		ChargeID: "TX-" + strconv.Itoa(g.n),
		PixCode:  "00020126PIX" + strconv.Itoa(g.n),
	}, nil
}

type scheduledStep struct {
	Job   StepJob
	Delay time.Duration
}

type fakeScheduler struct {
	mu   sync.Mutex
	jobs []scheduledStep
	err  error
}

func (s *fakeScheduler) Schedule(ctx context.Context, job StepJob, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, scheduledStep{Job: job, Delay: delay})
	return nil
}

type mutexLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	err   error
}

func newMutexLocker() *mutexLocker {
	return &mutexLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *mutexLocker) Lock(ctx context.Context, key string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock, nil
}

// ============ RELÓGIO ============

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{now: t}
}

func (c *testClock) Clock() Clock {
	return func() time.Time {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.now
	}
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

var errBlocked = errors.New("Forbidden: bot was blocked by the user")
