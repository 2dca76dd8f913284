package config

import "strings"

// EngineConfig contains workflow engine (n8n) webhook configuration.
type EngineConfig struct {
	// WebhookURL is the n8n webhook endpoint that receives dispatched jobs.
	WebhookURL string `env:"WEBHOOK_URL"`

	// Secret is the shared secret sent on dispatches and required on result
	// callbacks (x-edge-secret header).
	Secret string `env:"SECRET"`
}

// Sanitize normalises engine configuration values.
func (c *EngineConfig) Sanitize() {
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)
	c.Secret = strings.TrimSpace(c.Secret)
}

// IsConfigured returns true when dispatching to the engine is possible.
func (c *EngineConfig) IsConfigured() bool {
	return c.WebhookURL != "" && c.Secret != ""
}

// BillingConfig contains Stripe configuration.
type BillingConfig struct {
	// APIKey is the Stripe secret key used for subscription and customer lookups.
	APIKey string `env:"STRIPE_API_KEY"`

	// WebhookSecret verifies Stripe webhook signatures.
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
}

// IsConfigured returns true when billing webhooks can be processed.
func (c *BillingConfig) IsConfigured() bool {
	return c.APIKey != "" && c.WebhookSecret != ""
}

// StorageConfig contains Supabase storage configuration for HTML snapshots.
type StorageConfig struct {
	// URL is the Supabase project storage URL.
	URL string `env:"SUPABASE_URL"`

	// ServiceKey is the service role key used for uploads.
	ServiceKey string `env:"SUPABASE_SERVICE_KEY"`

	// Bucket is the bucket snapshots are written to.
	Bucket string `env:"BUCKET" envDefault:"doc-snapshots"`
}

// Sanitize normalises storage configuration values.
func (c *StorageConfig) Sanitize() {
	c.URL = strings.TrimSpace(c.URL)
	c.ServiceKey = strings.TrimSpace(c.ServiceKey)
	if c.Bucket = strings.TrimSpace(c.Bucket); c.Bucket == "" {
		c.Bucket = "doc-snapshots"
	}
}

// IsConfigured returns true when snapshot uploads are possible.
func (c *StorageConfig) IsConfigured() bool {
	return c.URL != "" && c.ServiceKey != ""
}
