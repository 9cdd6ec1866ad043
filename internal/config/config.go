package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string
	AppName string // title of every push and email

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
	SNSRegion    string

	FirebaseCredentialsFile string
	FirebaseProjectID       string

	JWTPublicKeyPath string
	AllowedOrigins   []string // CORS allowed origins

	// Cloud Scheduler OIDC callers of the reminder task; empty audience disables it.
	SchedulerAudience        string
	SchedulerServiceAccounts []string

	SendTimeout       time.Duration // per transport call
	FanoutConcurrency int
	BusWorkers        int
	BusRetryInitial   time.Duration
	BusRetryMax       time.Duration

	ReminderSchedule    string // cron spec, minute resolution
	ReminderCronEnabled bool
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users       string
	Teams       string
	Events      string
	EventGuests string
	Preferences string
	Devices     string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AppName:        getEnv("APP_NAME", "Mentoring"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:       getEnv("DYNAMO_TABLE_USERS", "users"),
			Teams:       getEnv("DYNAMO_TABLE_TEAMS", "teams"),
			Events:      getEnv("DYNAMO_TABLE_EVENTS", "events"),
			EventGuests: getEnv("DYNAMO_TABLE_EVENT_GUESTS", "event_guests"),
			Preferences: getEnv("DYNAMO_TABLE_PREFERENCES", "user_notification_preferences"),
			Devices:     getEnv("DYNAMO_TABLE_DEVICES", "user_devices"),
		},
		SMTPHost:                 getEnv("SMTP_HOST", "localhost"),
		SMTPPort:                 getEnv("SMTP_PORT", "1025"),
		SMTPFrom:                 getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername:             getEnv("SMTP_USERNAME", ""),
		SMTPPassword:             getEnv("SMTP_PASSWORD", ""),
		SNSRegion:                getEnv("SNS_REGION", "us-east-1"),
		FirebaseCredentialsFile:  getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		FirebaseProjectID:        getEnv("FIREBASE_PROJECT_ID", ""),
		JWTPublicKeyPath:         getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		AllowedOrigins:           strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		SchedulerAudience:        getEnv("SCHEDULER_OIDC_AUDIENCE", ""),
		SchedulerServiceAccounts: strings.Split(getEnv("SCHEDULER_SERVICE_ACCOUNTS", ""), ","),
		SendTimeout:              getEnvDuration("SEND_TIMEOUT", 5*time.Second),
		FanoutConcurrency:        getEnvInt("FANOUT_CONCURRENCY", 16),
		BusWorkers:               getEnvInt("BUS_WORKERS", 8),
		BusRetryInitial:          getEnvDuration("BUS_RETRY_INITIAL", time.Second),
		BusRetryMax:              getEnvDuration("BUS_RETRY_MAX", time.Minute),
		ReminderSchedule:         getEnv("REMINDER_SCHEDULE", "0,15,30,45 * * * *"),
		ReminderCronEnabled:      getEnvBool("REMINDER_CRON_ENABLED", true),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
