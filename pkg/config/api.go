package config

import "time"

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment       string
	Addr              string
	DatabaseURL       string
	MigrationsDir     string
	JWTSecret         string
	SecretsKey        string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	ProviderTimeout   time.Duration
	ProviderRetryMax  int
	XenditBaseURL     string
	XenditAPIKey      string
	XenditCallbackTok string
	PaystackBaseURL   string
	PaystackAPIKey    string
	PaystackSecret    string
	DraftPickClock    time.Duration
	DraftMinPickGap   time.Duration
	PlayerCacheTTL    time.Duration
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:       GetString("APP_ENV", "development"),
		Addr:              GetString("API_ADDR", ":4000"),
		DatabaseURL:       GetString("DATABASE_URL", "postgres://topdog:topdog@db:5432/topdog?sslmode=disable"),
		MigrationsDir:     GetString("DB_MIGRATIONS_DIR", "./db/migrations"),
		JWTSecret:         GetString("JWT_SECRET", "supersecuresecret"),
		SecretsKey:        GetString("SECRETS_ENCRYPTION_KEY", "supersecuresecret"),
		AccessTokenTTL:    time.Duration(GetInt("ACCESS_TOKEN_TTL_MIN", 15)) * time.Minute,
		RefreshTokenTTL:   time.Duration(GetInt("REFRESH_TOKEN_TTL_HOURS", 24)) * time.Hour,
		ProviderTimeout:   time.Duration(GetInt("PROVIDER_TIMEOUT_SECONDS", 15)) * time.Second,
		ProviderRetryMax:  GetInt("PROVIDER_RETRY_MAX", 3),
		XenditBaseURL:     GetString("XENDIT_BASE_URL", "https://api.xendit.co"),
		XenditAPIKey:      GetString("XENDIT_API_KEY", ""),
		XenditCallbackTok: GetString("XENDIT_CALLBACK_TOKEN", ""),
		PaystackBaseURL:   GetString("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		PaystackAPIKey:    GetString("PAYSTACK_API_KEY", ""),
		PaystackSecret:    GetString("PAYSTACK_WEBHOOK_SECRET", ""),
		DraftPickClock:    time.Duration(GetInt("DRAFT_PICK_CLOCK_SECONDS", 30)) * time.Second,
		DraftMinPickGap:   time.Duration(GetInt("DRAFT_MIN_PICK_GAP_MS", 750)) * time.Millisecond,
		PlayerCacheTTL:    time.Duration(GetInt("PLAYER_CACHE_TTL_SECONDS", 300)) * time.Second,
		RedisAddr:         GetString("REDIS_ADDR", ""),
		RedisPassword:     GetString("REDIS_PASSWORD", ""),
		RedisDB:           GetInt("REDIS_DB", 0),
	}
}
