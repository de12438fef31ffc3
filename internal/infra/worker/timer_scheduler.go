package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/xavierca1/ligue-funnel/internal/usecase"
)

type StepRunner interface {
	ContinueAutoAdvance(ctx context.Context, job usecase.StepJob) error
}

// TimerScheduler agenda passos do funil com time.AfterFunc. Usado quando não há RabbitMQ;
// passos pendentes se perdem num restart.
type TimerScheduler struct {
	mu      sync.Mutex
	runner  StepRunner
	timers  map[*time.Timer]struct{}
	stopped bool
	timeout time.Duration
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{
		timers:  make(map[*time.Timer]struct{}),
		timeout: 30 * time.Second,
	}
}

// Bind liga o scheduler a quem executa os passos. O funil depende do scheduler e vice-versa,
// então a ligação acontece depois da construção.
func (s *TimerScheduler) Bind(runner StepRunner) {
	s.mu.Lock()
	s.runner = runner
	s.mu.Unlock()
}

func (s *TimerScheduler) Schedule(ctx context.Context, job usecase.StepJob, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return context.Canceled
	}

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, t)
		runner := s.runner
		s.mu.Unlock()
		if runner == nil {
			log.Printf("⚠️ [FUNNEL] Passo %d do bot %d sem executor", job.StepOrder, job.BotID)
			return
		}

		runCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := runner.ContinueAutoAdvance(runCtx, job); err != nil {
			log.Printf("❌ [FUNNEL] Falha no passo agendado %d (bot %d, chat %s): %v", job.StepOrder, job.BotID, job.ChatID, err)
		}
	})
	s.timers[t] = struct{}{}
	return nil
}

// Pending devolve quantos passos ainda não dispararam.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancela os passos pendentes.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for t := range s.timers {
		t.Stop()
	}
	s.timers = make(map[*time.Timer]struct{})
}
