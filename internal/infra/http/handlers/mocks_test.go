package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/xavierca1/ligue-funnel/internal/entity"
	"github.com/xavierca1/ligue-funnel/internal/usecase"
)

// ============ MOCKS ============

type MockConversations struct {
	mock.Mock
}

func (m *MockConversations) ResolveBot(ctx context.Context, token string) (*entity.Bot, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Bot), args.Error(1)
}

func (m *MockConversations) HandleStart(ctx context.Context, conv usecase.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *MockConversations) HandleCallback(ctx context.Context, ev usecase.CallbackEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

type MockJoinChecker struct {
	mock.Mock
}

func (m *MockJoinChecker) Check(ctx context.Context, ev usecase.JoinEvent) (usecase.GateDecision, error) {
	args := m.Called(ctx, ev)
	return args.Get(0).(usecase.GateDecision), args.Error(1)
}

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Reconcile(ctx context.Context, n usecase.PaymentNotification) (*usecase.ReconcileResult, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ReconcileResult), args.Error(1)
}

type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) RunOnce(ctx context.Context) (usecase.SweepResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(usecase.SweepResult), args.Error(1)
}

type MockCampaigns struct {
	mock.Mock
}

func (m *MockCampaigns) Start(ctx context.Context, req usecase.CampaignRequest) (usecase.CampaignProgress, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(usecase.CampaignProgress), args.Error(1)
}

func (m *MockCampaigns) Status(ctx context.Context, campaignID string) (usecase.CampaignProgress, error) {
	args := m.Called(ctx, campaignID)
	return args.Get(0).(usecase.CampaignProgress), args.Error(1)
}

func (m *MockCampaigns) History(ctx context.Context, botID int64, page int) ([]*entity.RemarketingCampaign, error) {
	args := m.Called(ctx, botID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.RemarketingCampaign), args.Error(1)
}

func (m *MockCampaigns) DeleteHistory(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCampaigns) ResendIndividual(ctx context.Context, req usecase.ResendRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

type MockSegmenter struct {
	mock.Mock
}

func (m *MockSegmenter) Segment(ctx context.Context, botID int64, name string) (*usecase.Audience, error) {
	args := m.Called(ctx, botID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.Audience), args.Error(1)
}

type MockRegistrar struct {
	mock.Mock
}

func (m *MockRegistrar) SetWebhook(ctx context.Context, token, url string) error {
	args := m.Called(ctx, token, url)
	return args.Error(0)
}

type MockBotRepository struct {
	mock.Mock
}

func (m *MockBotRepository) FindByID(ctx context.Context, id int64) (*entity.Bot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Bot), args.Error(1)
}

func (m *MockBotRepository) FindByToken(ctx context.Context, token string) (*entity.Bot, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Bot), args.Error(1)
}
