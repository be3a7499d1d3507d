/**
 * @description
 * This file handles configuration management for the affiliate-service.
 * It uses the 'viper' library to load configuration from environment
 * variables. Components receive this struct (or slices of it) at
 * construction; nothing reads the process environment after startup.
 */
package config

import (
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort  string `mapstructure:"SERVER_PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	BaseURL     string `mapstructure:"BASE_URL"`

	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`

	NamecheapAPIUser  string `mapstructure:"NAMECHEAP_API_USER"`
	NamecheapAPIKey   string `mapstructure:"NAMECHEAP_API_KEY"`
	NamecheapUsername string `mapstructure:"NAMECHEAP_USERNAME"`
	NamecheapClientIP string `mapstructure:"NAMECHEAP_CLIENT_IP"`
	NamecheapSandbox  bool   `mapstructure:"NAMECHEAP_SANDBOX"`

	SiteOwnerUsername string `mapstructure:"SITE_OWNER_USERNAME"`
	PromoActive       bool   `mapstructure:"PROMO_ACTIVE"`
	PromoPriceCents   int64  `mapstructure:"PROMO_PRICE_CENTS"`
	PromotionEndDate  string `mapstructure:"PROMOTION_END_DATE"`

	SessionSecret     string `mapstructure:"SESSION_SECRET"`
	AdminUsername     string `mapstructure:"ADMIN_USERNAME"`
	AdminPasswordHash string `mapstructure:"ADMIN_PASSWORD_HASH"`

	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`
	RedisURL    string `mapstructure:"REDIS_URL"`

	CheckoutRateLimit         int `mapstructure:"CHECKOUT_RATE_LIMIT"`
	CheckoutRateWindowSeconds int `mapstructure:"CHECKOUT_RATE_WINDOW_SECONDS"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("BASE_URL", "http://localhost:8080")
	viper.SetDefault("SITE_OWNER_USERNAME", "rizzosai")
	viper.SetDefault("PROMO_ACTIVE", true)
	viper.SetDefault("PROMO_PRICE_CENTS", 2000)
	viper.SetDefault("NAMECHEAP_SANDBOX", true)
	viper.SetDefault("CHECKOUT_RATE_LIMIT", 10)
	viper.SetDefault("CHECKOUT_RATE_WINDOW_SECONDS", 60)
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	for _, key := range []string{
		"SERVER_PORT", "DATABASE_URL", "BASE_URL",
		"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET",
		"NAMECHEAP_API_USER", "NAMECHEAP_API_KEY", "NAMECHEAP_USERNAME",
		"NAMECHEAP_CLIENT_IP", "NAMECHEAP_SANDBOX",
		"SITE_OWNER_USERNAME", "PROMO_ACTIVE", "PROMO_PRICE_CENTS", "PROMOTION_END_DATE",
		"SESSION_SECRET", "ADMIN_USERNAME", "ADMIN_PASSWORD_HASH",
		"RABBITMQ_URL", "REDIS_URL",
		"CHECKOUT_RATE_LIMIT", "CHECKOUT_RATE_WINDOW_SECONDS",
	} {
		_ = viper.BindEnv(key)
	}

	err = viper.Unmarshal(&config)
	return
}
