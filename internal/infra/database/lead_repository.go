package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xavierca1/ligue-funnel/internal/entity"
)

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

// Upsert mantém o primeiro contato e atualiza nome, username e último contato.
func (r *LeadRepository) Upsert(ctx context.Context, lead *entity.Lead) error {
	query := `
		INSERT INTO leads (bot_id, user_id, nome, username, funil_stage, primeiro_contato, ultimo_contato, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $6)
		ON CONFLICT (bot_id, user_id)
		DO UPDATE SET
			nome = COALESCE(EXCLUDED.nome, leads.nome),
			username = COALESCE(EXCLUDED.username, leads.username),
			ultimo_contato = EXCLUDED.ultimo_contato
		RETURNING id, primeiro_contato, created_at, total_remarketings
	`

	err := r.DB.QueryRowContext(
		ctx,
		query,
		lead.BotID,
		lead.UserID,
		nullString(lead.Name),
		nullString(lead.Username),
		lead.Stage,
		lead.FirstContactAt,
		lead.LastContactAt,
	).Scan(
		&lead.ID,
		&lead.FirstContactAt,
		&lead.CreatedAt,
		&lead.TotalRemarketings,
	)
	if err != nil {
		return fmt.Errorf("erro ao salvar lead: %w", err)
	}
	return nil
}

func (r *LeadRepository) Delete(ctx context.Context, botID int64, userID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM leads WHERE bot_id = $1 AND user_id = $2`, botID, userID)
	if err != nil {
		return fmt.Errorf("erro ao apagar lead: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}

func (r *LeadRepository) ListByBot(ctx context.Context, botID int64) ([]*entity.Lead, error) {
	query := `
		SELECT id, bot_id, user_id, nome, username, funil_stage, primeiro_contato, ultimo_contato,
		       total_remarketings, ultimo_remarketing, created_at
		FROM leads WHERE bot_id = $1 ORDER BY id`

	rows, err := r.DB.QueryContext(ctx, query, botID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar leads: %w", err)
	}
	defer rows.Close()

	var leads []*entity.Lead
	for rows.Next() {
		var (
			l              entity.Lead
			name, username sql.NullString
			lastRemarket   sql.NullTime
		)
		err := rows.Scan(&l.ID, &l.BotID, &l.UserID, &name, &username, &l.Stage, &l.FirstContactAt,
			&l.LastContactAt, &l.TotalRemarketings, &lastRemarket, &l.CreatedAt)
		if err != nil {
			return nil, err
		}
		l.Name = stringOrEmpty(name)
		l.Username = stringOrEmpty(username)
		l.LastRemarketingAt = timePtr(lastRemarket)
		leads = append(leads, &l)
	}
	return leads, rows.Err()
}
