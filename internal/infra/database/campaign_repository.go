package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xavierca1/ligue-funnel/internal/entity"
)

type CampaignRepository struct {
	DB *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{DB: db}
}

const campaignColumns = `
	id, bot_id, campaign_id, target, type, config, status, plano_id, promo_price_cents,
	expiration_at, total_leads, sent_success, blocked_count, data_envio`

func (r *CampaignRepository) Create(ctx context.Context, c *entity.RemarketingCampaign) error {
	cfg, err := c.ConfigJSON()
	if err != nil {
		return fmt.Errorf("erro ao serializar config da campanha: %w", err)
	}

	query := `
		INSERT INTO remarketing_campaigns (
			bot_id, campaign_id, target, type, config, status, plano_id, promo_price_cents,
			expiration_at, total_leads, sent_success, blocked_count, data_envio
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	err = r.DB.QueryRowContext(ctx, query,
		c.BotID, c.CampaignID, c.Target, c.Type, cfg, c.Status, c.PlanID, c.PromoPriceCents,
		c.ExpiresAt, c.TotalLeads, c.SentSuccess, c.BlockedCount, c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("campanha %s já registrada: %w", c.CampaignID, err)
		}
		return fmt.Errorf("erro ao gravar campanha: %w", err)
	}
	return nil
}

func (r *CampaignRepository) FindByID(ctx context.Context, id int64) (*entity.RemarketingCampaign, error) {
	return r.findOne(ctx, `SELECT `+campaignColumns+` FROM remarketing_campaigns WHERE id = $1`, id)
}

func (r *CampaignRepository) FindByCampaignID(ctx context.Context, campaignID string) (*entity.RemarketingCampaign, error) {
	return r.findOne(ctx, `SELECT `+campaignColumns+` FROM remarketing_campaigns WHERE campaign_id = $1`, campaignID)
}

func (r *CampaignRepository) ListByBot(ctx context.Context, botID int64, limit, offset int) ([]*entity.RemarketingCampaign, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+campaignColumns+` FROM remarketing_campaigns WHERE bot_id = $1 ORDER BY data_envio DESC LIMIT $2 OFFSET $3`,
		botID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar campanhas: %w", err)
	}
	defer rows.Close()

	campaigns := []*entity.RemarketingCampaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM remarketing_campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("erro ao apagar campanha: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrCampaignNotFound
	}
	return nil
}

func (r *CampaignRepository) findOne(ctx context.Context, query string, arg any) (*entity.RemarketingCampaign, error) {
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar campanha: %w", err)
	}
	return c, nil
}

func scanCampaign(s scanner) (*entity.RemarketingCampaign, error) {
	var (
		c             entity.RemarketingCampaign
		cfg           string
		planID, promo sql.NullInt64
		expiresAt     sql.NullTime
	)
	err := s.Scan(&c.ID, &c.BotID, &c.CampaignID, &c.Target, &c.Type, &cfg, &c.Status, &planID, &promo,
		&expiresAt, &c.TotalLeads, &c.SentSuccess, &c.BlockedCount, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Config = entity.ParseCampaignConfig(cfg)
	c.PlanID = int64Ptr(planID)
	c.PromoPriceCents = int64Ptr(promo)
	c.ExpiresAt = timePtr(expiresAt)
	return &c, nil
}
