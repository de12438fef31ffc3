package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderPushinPay   = "pushinpay"
	ProviderMercadoPago = "mercadopago"
)

type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	RabbitMQURL string `yaml:"rabbitmq_url"`

	PaymentProvider        string `yaml:"payment_provider"`
	PushinPayToken         string `yaml:"pushinpay_token"`
	PushinPayURL           string `yaml:"pushinpay_url"`
	MercadoPagoAccessToken string `yaml:"mercadopago_access_token"`
	PayerEmail             string `yaml:"payer_email"`
	PublicBaseURL          string `yaml:"public_base_url"`

	TelegramAPIURL string `yaml:"telegram_api_url"`

	SweepInterval         time.Duration `yaml:"sweep_interval"`
	CampaignRatePerSecond float64       `yaml:"campaign_rate_per_second"`

	MailHost      string `yaml:"mail_host"`
	MailPort      int    `yaml:"mail_port"`
	MailUser      string `yaml:"mail_user"`
	MailPass      string `yaml:"mail_pass"`
	MailFrom      string `yaml:"mail_from"`
	OperatorEmail string `yaml:"operator_email"`

	AdminAPIKey    string   `yaml:"admin_api_key"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

func defaults() Config {
	return Config{
		Port:                  "8080",
		PaymentProvider:       ProviderPushinPay,
		PushinPayURL:          "https://api.pushinpay.com.br",
		PayerEmail:            "cliente@pagamento.com",
		TelegramAPIURL:        "https://api.telegram.org",
		SweepInterval:         time.Hour,
		CampaignRatePerSecond: 25,
		MailPort:              587,
		AllowedOrigins:        []string{"*"},
	}
}

// Load lê .env (se houver), o YAML de CONFIG_FILE (se houver) e por fim as variáveis de ambiente,
// que têm a palavra final.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("⚠️ [CONFIG] .env ignorado: %v", err)
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("erro ao ler %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("erro ao interpretar %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	str("PORT", &cfg.Port)
	str("DATABASE_URL", &cfg.DatabaseURL)
	str("REDIS_URL", &cfg.RedisURL)
	str("RABBITMQ_URL", &cfg.RabbitMQURL)
	str("PAYMENT_PROVIDER", &cfg.PaymentProvider)
	str("PUSHINPAY_TOKEN", &cfg.PushinPayToken)
	str("PUSHINPAY_URL", &cfg.PushinPayURL)
	str("MERCADOPAGO_ACCESS_TOKEN", &cfg.MercadoPagoAccessToken)
	str("PAYER_EMAIL", &cfg.PayerEmail)
	str("PUBLIC_BASE_URL", &cfg.PublicBaseURL)
	str("TELEGRAM_API_URL", &cfg.TelegramAPIURL)
	str("MAIL_HOST", &cfg.MailHost)
	str("MAIL_USER", &cfg.MailUser)
	str("MAIL_PASS", &cfg.MailPass)
	str("MAIL_FROM", &cfg.MailFrom)
	str("OPERATOR_EMAIL", &cfg.OperatorEmail)
	str("ADMIN_API_KEY", &cfg.AdminAPIKey)

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SWEEP_INTERVAL inválido: %w", err)
		}
		cfg.SweepInterval = d
	}
	if v := os.Getenv("CAMPAIGN_RATE_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CAMPAIGN_RATE_PER_SECOND inválido: %w", err)
		}
		cfg.CampaignRatePerSecond = f
	}
	if v := os.Getenv("MAIL_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAIL_PORT inválido: %w", err)
		}
		cfg.MailPort = p
	}
	return nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL não configurada")
	}
	switch c.PaymentProvider {
	case ProviderPushinPay:
		if c.PushinPayToken == "" {
			return fmt.Errorf("PUSHINPAY_TOKEN não configurado")
		}
	case ProviderMercadoPago:
		if c.MercadoPagoAccessToken == "" {
			return fmt.Errorf("MERCADOPAGO_ACCESS_TOKEN não configurado")
		}
	default:
		return fmt.Errorf("PAYMENT_PROVIDER desconhecido: %s", c.PaymentProvider)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL deve ser positivo")
	}
	return nil
}

// WebhookURL é o endereço público que o provedor chama ao confirmar o pagamento.
func (c *Config) WebhookURL() string {
	if c.PublicBaseURL == "" {
		return ""
	}
	return strings.TrimRight(c.PublicBaseURL, "/") + "/webhook/pix"
}

func (c *Config) MailEnabled() bool {
	return c.MailHost != "" && c.OperatorEmail != ""
}
