package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "DATABASE_URL", "REDIS_URL", "RABBITMQ_URL",
		"PAYMENT_PROVIDER", "PUSHINPAY_TOKEN", "PUSHINPAY_URL", "MERCADOPAGO_ACCESS_TOKEN",
		"PUBLIC_BASE_URL", "SWEEP_INTERVAL", "CAMPAIGN_RATE_PER_SECOND", "MAIL_HOST",
		"MAIL_PORT", "OPERATOR_EMAIL", "ALLOWED_ORIGINS", "ADMIN_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/funil")
	t.Setenv("PUSHINPAY_TOKEN", "tok")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ProviderPushinPay, cfg.PaymentProvider)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, 25.0, cfg.CampaignRatePerSecond)
	assert.Equal(t, 587, cfg.MailPort)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.False(t, cfg.MailEnabled())
	assert.Empty(t, cfg.WebhookURL())
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/funil")
	t.Setenv("PAYMENT_PROVIDER", "mercadopago")
	t.Setenv("MERCADOPAGO_ACCESS_TOKEN", "APP_USR-1")
	t.Setenv("SWEEP_INTERVAL", "15m")
	t.Setenv("CAMPAIGN_RATE_PER_SECOND", "10.5")
	t.Setenv("MAIL_PORT", "465")
	t.Setenv("ALLOWED_ORIGINS", "https://painel.exemplo.com,https://admin.exemplo.com")
	t.Setenv("PUBLIC_BASE_URL", "https://api.exemplo.com/")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ProviderMercadoPago, cfg.PaymentProvider)
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 10.5, cfg.CampaignRatePerSecond)
	assert.Equal(t, 465, cfg.MailPort)
	assert.Len(t, cfg.AllowedOrigins, 2)
	assert.Equal(t, "https://api.exemplo.com/webhook/pix", cfg.WebhookURL())
}

func TestLoadInvalidNumbers(t *testing.T) {
	for _, key := range []string{"SWEEP_INTERVAL", "CAMPAIGN_RATE_PER_SECOND", "MAIL_PORT"} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DATABASE_URL", "postgres://localhost/funil")
			t.Setenv("PUSHINPAY_TOKEN", "tok")
			t.Setenv(key, "abc")

			_, err := Load()

			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
database_url: postgres://arquivo/funil
pushinpay_token: do-arquivo
sweep_interval: 30m
mail_host: smtp.exemplo.com
operator_email: ops@exemplo.com
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")

	cfg, err := Load()

	require.NoError(t, err)
	// variável de ambiente vence o arquivo
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "postgres://arquivo/funil", cfg.DatabaseURL)
	assert.Equal(t, "do-arquivo", cfg.PushinPayToken)
	assert.Equal(t, 30*time.Minute, cfg.SweepInterval)
	assert.True(t, cfg.MailEnabled())
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nao-existe.yaml"))

	_, err := Load()

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := defaults()
		c.DatabaseURL = "postgres://localhost/funil"
		c.PushinPayToken = "tok"
		return c
	}

	tests := []struct {
		name   string
		modify func(*Config)
		msg    string
	}{
		{"sem banco", func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL"},
		{"sem token pushinpay", func(c *Config) { c.PushinPayToken = "" }, "PUSHINPAY_TOKEN"},
		{"mercadopago sem token", func(c *Config) { c.PaymentProvider = ProviderMercadoPago }, "MERCADOPAGO_ACCESS_TOKEN"},
		{"provedor desconhecido", func(c *Config) { c.PaymentProvider = "boleto" }, "PAYMENT_PROVIDER"},
		{"intervalo zerado", func(c *Config) { c.SweepInterval = 0 }, "SWEEP_INTERVAL"},
	}

	c := valid()
	assert.NoError(t, c.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.modify(&c)

			err := c.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
