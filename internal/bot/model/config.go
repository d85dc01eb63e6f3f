package model

import "time"

type ConversationConfig struct {
	SessionTTL      time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	DefaultCurrency string        `envconfig:"DEFAULT_CURRENCY" default:"USD"`
	DefaultLocale   string        `envconfig:"DEFAULT_LOCALE" default:"en-US"`
	// QuantityChoices is the number of quick replies offered for quantity.
	QuantityChoices int `envconfig:"QUANTITY_CHOICES" default:"5"`
}

type AttributionConfig struct {
	Window time.Duration `envconfig:"ATTRIBUTION_WINDOW" default:"1m"`
	Batch  int           `envconfig:"ATTRIBUTION_BATCH" default:"10"`
}

type TenantConfig struct {
	FallbackEnabled bool `envconfig:"TENANT_FALLBACK_ENABLED" default:"false"`
}
