package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Env string `envconfig:"ENV" default:"development"`

	// Remote backend settings
	RemoteBaseURL    string `envconfig:"REMOTE_BASE_URL" required:"true"`
	RemoteAPIKey     string `envconfig:"REMOTE_API_KEY" required:"true"`
	RemoteTimeoutSec int    `envconfig:"REMOTE_TIMEOUT_SEC" default:"10"`

	// Direct Postgres backend for self-hosted deployments. When set, the
	// agent talks to the database instead of the REST API.
	PostgresURL string `envconfig:"POSTGRES_URL"`

	// Session settings
	JWTSecret    string `envconfig:"SUPABASE_LOCAL_JWT_SECRET" required:"true"`
	SessionToken string `envconfig:"SESSION_ACCESS_TOKEN"`

	// Subscription tier for the static plan-limits catalog
	SubscriptionTier string `envconfig:"SUBSCRIPTION_TIER" default:"free"`

	// Local snapshot settings
	SnapshotPath string `envconfig:"SNAPSHOT_PATH" default:"studysync.db"`

	// Sync scheduler settings
	SyncIntervalSec    int `envconfig:"SYNC_INTERVAL_SEC" default:"300"`
	SyncSettleDelaySec int `envconfig:"SYNC_SETTLE_DELAY_SEC" default:"2"`

	// Attachment storage settings
	S3URL       string `envconfig:"SUPABASE_LOCAL_S3_URL"`
	S3Bucket    string `envconfig:"SUPABASE_LOCAL_S3_BUCKET"`
	S3Region    string `envconfig:"SUPABASE_LOCAL_S3_REGION"`
	S3AccessKey string `envconfig:"SUPABASE_LOCAL_S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"SUPABASE_LOCAL_S3_SECRET_KEY"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
