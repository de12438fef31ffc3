package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xavierca1/ligue-funnel/internal/entity"
)

type FlowRepository struct {
	DB *sql.DB
}

func NewFlowRepository(db *sql.DB) *FlowRepository {
	return &FlowRepository{DB: db}
}

func (r *FlowRepository) FindConfig(ctx context.Context, botID int64) (*entity.FlowConfig, error) {
	query := `
		SELECT bot_id, msg_boas_vindas, media_url, btn_text_1, autodestruir_1,
		       mostrar_planos_1, msg_2_texto, msg_2_media, mostrar_planos_2
		FROM bot_flows WHERE bot_id = $1`

	var (
		cfg                          entity.FlowConfig
		media, offerText, offerMedia sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, botID).Scan(
		&cfg.BotID,
		&cfg.WelcomeText,
		&media,
		&cfg.WelcomeButton,
		&cfg.AutoDestructWelcome,
		&cfg.ShowPlansOnWelcome,
		&offerText,
		&offerMedia,
		&cfg.ShowPlansOnOffer,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrFlowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar fluxo: %w", err)
	}
	cfg.WelcomeMedia = stringOrEmpty(media)
	cfg.OfferText = stringOrEmpty(offerText)
	cfg.OfferMedia = stringOrEmpty(offerMedia)
	return &cfg, nil
}

func (r *FlowRepository) ListSteps(ctx context.Context, botID int64) ([]*entity.FlowStep, error) {
	query := `
		SELECT id, bot_id, step_order, msg_texto, msg_media, btn_texto,
		       autodestruir, mostrar_botao, delay_seconds, created_at
		FROM bot_flow_steps WHERE bot_id = $1 ORDER BY step_order`

	rows, err := r.DB.QueryContext(ctx, query, botID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar passos: %w", err)
	}
	defer rows.Close()

	var steps []*entity.FlowStep
	for rows.Next() {
		var (
			st          entity.FlowStep
			text, media sql.NullString
		)
		err := rows.Scan(&st.ID, &st.BotID, &st.StepOrder, &text, &media, &st.ButtonText,
			&st.AutoDestruct, &st.ShowButton, &st.DelaySeconds, &st.CreatedAt)
		if err != nil {
			return nil, err
		}
		st.Text = stringOrEmpty(text)
		st.Media = stringOrEmpty(media)
		steps = append(steps, &st)
	}
	return steps, rows.Err()
}

type OrderBumpRepository struct {
	DB *sql.DB
}

func NewOrderBumpRepository(db *sql.DB) *OrderBumpRepository {
	return &OrderBumpRepository{DB: db}
}

func (r *OrderBumpRepository) FindByBot(ctx context.Context, botID int64) (*entity.OrderBumpOffer, error) {
	query := `
		SELECT id, bot_id, ativo, nome_produto, preco_cents, link_acesso, autodestruir,
		       msg_texto, msg_media, btn_aceitar, btn_recusar
		FROM order_bump_config WHERE bot_id = $1`

	var (
		o           entity.OrderBumpOffer
		link, media sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, botID).Scan(
		&o.ID, &o.BotID, &o.Active, &o.Name, &o.PriceCents, &link, &o.AutoDestruct,
		&o.Text, &media, &o.AcceptButton, &o.DeclineButton,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrOrderBumpNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar order bump: %w", err)
	}
	o.AccessLink = stringOrEmpty(link)
	o.Media = stringOrEmpty(media)
	return &o, nil
}
