package config

import (
	"github.com/spf13/viper"
)

// LemonSqueezyConfig holds the payment-provider integration settings
// consumed by the webhook and checkout services.
type LemonSqueezyConfig struct {
	WebhookSecret    string
	ProductURL       string
	AppURL           string
	UseMockCheckout  bool
	SkipVerification bool
}

// LoadLemonSqueezy returns provider configuration with defaults.
func LoadLemonSqueezy() *LemonSqueezyConfig {
	viper.SetDefault("lemonsqueezy.webhook_secret", "")
	viper.SetDefault("lemonsqueezy.product_url", "")
	viper.SetDefault("lemonsqueezy.app_url", "http://localhost:8080")
	viper.SetDefault("lemonsqueezy.use_mock_checkout", false)
	viper.SetDefault("lemonsqueezy.skip_webhook_verification", false)

	return &LemonSqueezyConfig{
		WebhookSecret:    viper.GetString("lemonsqueezy.webhook_secret"),
		ProductURL:       viper.GetString("lemonsqueezy.product_url"),
		AppURL:           viper.GetString("lemonsqueezy.app_url"),
		UseMockCheckout:  viper.GetBool("lemonsqueezy.use_mock_checkout"),
		SkipVerification: viper.GetBool("lemonsqueezy.skip_webhook_verification"),
	}
}

// IsProduction reports whether the server runs in production mode. The
// signature-verification bypass and the mock checkout are gated off it.
func IsProduction() bool {
	return viper.GetString("environment") == "production"
}
