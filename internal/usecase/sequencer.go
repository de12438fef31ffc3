package usecase

import (
	"context"
	"fmt"

	"github.com/xavierca1/ligue-funnel/internal/entity"
)

// StepResult é o próximo passo do funil, ou IsTerminal quando é hora da oferta final.
type StepResult struct {
	Step       *entity.FlowStep
	IsTerminal bool
}

// FlowStepSequencer só lê o catálogo de passos; quem envia as mensagens é o FunnelUseCase.
type FlowStepSequencer struct {
	FlowRepo entity.FlowRepositoryInterface
}

func NewFlowStepSequencer(flowRepo entity.FlowRepositoryInterface) *FlowStepSequencer {
	return &FlowStepSequencer{FlowRepo: flowRepo}
}

// Next devolve o passo de menor step_order maior que current (ou o primeiro, com current nil).
func (s *FlowStepSequencer) Next(ctx context.Context, botID int64, current *int) (StepResult, error) {
	steps, err := s.FlowRepo.ListSteps(ctx, botID)
	if err != nil {
		return StepResult{}, fmt.Errorf("erro ao buscar passos do bot %d: %w", botID, err)
	}
	return NextStep(steps, current), nil
}

// Find devolve o passo com exatamente essa ordem, ou nil.
func (s *FlowStepSequencer) Find(ctx context.Context, botID int64, order int) (*entity.FlowStep, error) {
	steps, err := s.FlowRepo.ListSteps(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar passos do bot %d: %w", botID, err)
	}
	for _, st := range steps {
		if st.StepOrder == order {
			return st, nil
		}
	}
	return nil, nil
}

func NextStep(steps []*entity.FlowStep, current *int) StepResult {
	var best *entity.FlowStep
	for _, st := range steps {
		if current != nil && st.StepOrder <= *current {
			continue
		}
		if best == nil || st.StepOrder < best.StepOrder {
			best = st
		}
	}
	if best == nil {
		return StepResult{IsTerminal: true}
	}
	return StepResult{Step: best}
}
