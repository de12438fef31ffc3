package worker

import (
	"context"
	"log"
	"time"

	"github.com/xavierca1/ligue-funnel/internal/usecase"
)

const sweepTimeout = 5 * time.Minute

type Sweeper interface {
	RunOnce(ctx context.Context) (usecase.SweepResult, error)
}

// SweeperWorker roda a varredura de acessos vencidos em intervalo fixo.
type SweeperWorker struct {
	sweeper      Sweeper
	tickInterval time.Duration
	timeout      time.Duration

	// OnResult recebe o resultado de cada rodada (métricas).
	OnResult func(usecase.SweepResult)
}

func NewSweeperWorker(sweeper Sweeper, interval time.Duration) *SweeperWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SweeperWorker{
		sweeper:      sweeper,
		tickInterval: interval,
		timeout:      sweepTimeout,
	}
}

// Start bloqueia até o contexto terminar. A primeira rodada é imediata.
func (w *SweeperWorker) Start(ctx context.Context) {
	log.Printf("🕒 [SWEEPER] Worker iniciado (intervalo %s)", w.tickInterval)

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ [SWEEPER] Worker encerrado")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *SweeperWorker) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	res, err := w.sweeper.RunOnce(runCtx)
	if w.OnResult != nil {
		w.OnResult(res)
	}
	if err != nil {
		log.Printf("❌ [SWEEPER] Varredura falhou: %v", err)
		return
	}
	if res.Checked > 0 {
		log.Printf("✅ [SWEEPER] %d vencidos: %d removidos, %d admins, %d falhas de remoção, %d erros",
			res.Checked, res.Revoked, res.Exempted, res.KickFailed, res.Errors)
	}
}
