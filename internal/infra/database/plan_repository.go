package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xavierca1/ligue-funnel/internal/entity"
)

type PlanRepository struct {
	DB *sql.DB
}

func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{DB: db}
}

const planColumns = `id, bot_id, key_id, nome_exibicao, descricao, preco_cheio_cents, preco_atual_cents, dias_duracao`

func (r *PlanRepository) FindByID(ctx context.Context, id int64) (*entity.Plan, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+planColumns+` FROM planos_config WHERE id = $1`, id)
	plan, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar plano %d: %w", id, err)
	}
	return plan, nil
}

// ListByBot devolve os planos na ordem em que aparecem nos botões (mais barato primeiro).
func (r *PlanRepository) ListByBot(ctx context.Context, botID int64) ([]*entity.Plan, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+planColumns+` FROM planos_config WHERE bot_id = $1 ORDER BY preco_atual_cents, id`, botID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar planos: %w", err)
	}
	defer rows.Close()

	var plans []*entity.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(s scanner) (*entity.Plan, error) {
	var (
		p         entity.Plan
		key, desc sql.NullString
		full      sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.BotID, &key, &p.Name, &desc, &full, &p.PriceCents, &p.DurationDays); err != nil {
		return nil, err
	}
	p.KeyID = stringOrEmpty(key)
	p.Description = stringOrEmpty(desc)
	p.FullPriceCents = full.Int64
	return &p, nil
}
