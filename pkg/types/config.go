package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	DatabaseSchema  string `envconfig:"DATABASE_SCHEMA" default:"bloodalert"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`

	// Cognito Auth
	CognitoUserPoolID string `envconfig:"COGNITO_USER_POOL_ID"`
	CognitoClientID   string `envconfig:"COGNITO_CLIENT_ID"`
	CognitoIssuerURL  string `envconfig:"COGNITO_ISSUER_URL"`

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes

	// Matching
	DefaultRadiusKm         float64 `envconfig:"DEFAULT_RADIUS_KM" default:"50"`
	BloodMatchPolicy        string  `envconfig:"BLOOD_MATCH_POLICY" default:"exact"` // exact | compatible
	MinDonationIntervalDays int     `envconfig:"MIN_DONATION_INTERVAL_DAYS" default:"0"`
	DispatchAsync           bool    `envconfig:"DISPATCH_ASYNC" default:"true"`

	// Empty disables the in-process expiry sweep
	ExpirySweepSpec string `envconfig:"EXPIRY_SWEEP_SPEC" default:"@every 5m"`

	// Notification audit archive
	ArchiveBucket string `envconfig:"ARCHIVE_BUCKET"`
	ArchivePrefix string `envconfig:"ARCHIVE_PREFIX" default:"notifications"`
}
