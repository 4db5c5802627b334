package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	TriggerSourceKafka        = "kafka"
	TriggerSourceChangeStream = "changestream"
	TriggerSourceNone         = "none"

	StoreDriverMongo    = "mongo"
	StoreDriverPostgres = "postgres"
)

type Config struct {
	HTTPServerAddress       string   `mapstructure:"HTTP_SERVER_ADDRESS"`
	MetricsServerAddress    string   `mapstructure:"METRICS_SERVER_ADDRESS"`
	HandlerTimeoutMs        int      `mapstructure:"HANDLER_TIMEOUT_MS"`
	TriggerSource           string   `mapstructure:"TRIGGER_SOURCE"`
	WorkerPoolSize          int      `mapstructure:"WORKER_POOL_SIZE"`
	BackoffBaseDelay        int      `mapstructure:"BACKOFF_BASE_DELAY_MS"`
	KafkaBrokers            []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic              string   `mapstructure:"KAFKA_TOPIC"`
	KafkaGroupID            string   `mapstructure:"KAFKA_GROUP_ID"`
	KafkaDLQTopic           string   `mapstructure:"KAFKA_DLQ_TOPIC"`
	StoreDriver             string   `mapstructure:"STORE_DRIVER"`
	MongoURI                string   `mapstructure:"MONGO_URI"`
	MongoDatabase           string   `mapstructure:"MONGO_DATABASE"`
	NotificationsCollection string   `mapstructure:"NOTIFICATIONS_COLLECTION"`
	TokensCollection        string   `mapstructure:"TOKENS_COLLECTION"`
	CheckpointsCollection   string   `mapstructure:"CHECKPOINTS_COLLECTION"`
	PostgresDSN             string   `mapstructure:"POSTGRES_DSN"`
	ClaimRedisURL           string   `mapstructure:"CLAIM_REDIS_URL"`
	ClaimTTLSeconds         int      `mapstructure:"CLAIM_TTL_SECONDS"`
	FirebaseProjectID       string   `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsFile string   `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	TwilioAccountSID        string   `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken         string   `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioPhoneNumber       string   `mapstructure:"TWILIO_PHONE_NUMBER"`
	SquareApplicationID     string   `mapstructure:"SQUARE_APPLICATION_ID"`
	SquareAccessToken       string   `mapstructure:"SQUARE_ACCESS_TOKEN"`
	SquareLocationID        string   `mapstructure:"SQUARE_LOCATION_ID"`
	SquareEnvironment       string   `mapstructure:"SQUARE_ENVIRONMENT"`
	OtelEndpoint            string   `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelInsecure            bool     `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OtelServiceName         string   `mapstructure:"OTEL_SERVICE_NAME"`
}

// SMSConf is the messaging gateway slice of the configuration.
type SMSConf struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string
}

// Configured reports whether every credential needed to send an SMS is present.
func (c SMSConf) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.PhoneNumber != ""
}

// PaymentConf is the payments gateway slice of the configuration.
type PaymentConf struct {
	ApplicationID string
	AccessToken   string
	LocationID    string
	Environment   string
}

// Configured reports whether the payment gateway can be called.
func (c PaymentConf) Configured() bool {
	return c.AccessToken != "" && c.LocationID != ""
}

type PushConf struct {
	ProjectID       string
	CredentialsFile string
}

type TriggerConf struct {
	Source           string
	WorkerPoolSize   int
	BackoffBaseDelay time.Duration
}

var cfg *Config

func NewConfig(path string) (*Config, error) {
	relativeUrl, err := GetBasePath(path)
	if err != nil {
		return nil, fmt.Errorf("error getting base path: %v", err)
	}

	vip := viper.New()
	vip.SetConfigType("env")
	vip.SetConfigName(".env")
	vip.AddConfigPath(relativeUrl)
	vip.AutomaticEnv()

	if err := vip.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	setDefaults(vip)

	for _, key := range []string{
		"HTTP_SERVER_ADDRESS",
		"METRICS_SERVER_ADDRESS",
		"HANDLER_TIMEOUT_MS",
		"TRIGGER_SOURCE",
		"WORKER_POOL_SIZE",
		"BACKOFF_BASE_DELAY_MS",
		"KAFKA_BROKERS",
		"KAFKA_TOPIC",
		"KAFKA_GROUP_ID",
		"KAFKA_DLQ_TOPIC",
		"STORE_DRIVER",
		"MONGO_URI",
		"MONGO_DATABASE",
		"NOTIFICATIONS_COLLECTION",
		"TOKENS_COLLECTION",
		"CHECKPOINTS_COLLECTION",
		"POSTGRES_DSN",
		"CLAIM_REDIS_URL",
		"CLAIM_TTL_SECONDS",
		"FIREBASE_PROJECT_ID",
		"GOOGLE_APPLICATION_CREDENTIALS",
		"TWILIO_ACCOUNT_SID",
		"TWILIO_AUTH_TOKEN",
		"TWILIO_PHONE_NUMBER",
		"SQUARE_APPLICATION_ID",
		"SQUARE_ACCESS_TOKEN",
		"SQUARE_LOCATION_ID",
		"SQUARE_ENVIRONMENT",
		"OTEL_EXPORTER_OTLP_ENDPOINT",
		"OTEL_EXPORTER_OTLP_INSECURE",
		"OTEL_SERVICE_NAME",
	} {
		vip.BindEnv(key)
	}

	var loaded Config
	if err := vip.Unmarshal(&loaded); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %v", err)
	}

	if err := loaded.validate(); err != nil {
		return nil, err
	}

	cfg = &loaded
	return cfg, nil
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("HTTP_SERVER_ADDRESS", ":8080")
	vip.SetDefault("METRICS_SERVER_ADDRESS", ":9090")
	vip.SetDefault("HANDLER_TIMEOUT_MS", 60000)
	vip.SetDefault("TRIGGER_SOURCE", TriggerSourceKafka)
	vip.SetDefault("WORKER_POOL_SIZE", 10)
	vip.SetDefault("BACKOFF_BASE_DELAY_MS", 500)
	vip.SetDefault("STORE_DRIVER", StoreDriverMongo)
	vip.SetDefault("MONGO_DATABASE", "notification_gateway")
	vip.SetDefault("NOTIFICATIONS_COLLECTION", "event_notifications")
	vip.SetDefault("TOKENS_COLLECTION", "fcm_tokens")
	vip.SetDefault("CHECKPOINTS_COLLECTION", "trigger_checkpoints")
	vip.SetDefault("CLAIM_TTL_SECONDS", 600)
	vip.SetDefault("SQUARE_ENVIRONMENT", "sandbox")
	vip.SetDefault("OTEL_SERVICE_NAME", "notification-gateway")
}

func (c *Config) validate() error {
	switch c.TriggerSource {
	case TriggerSourceKafka, TriggerSourceChangeStream, TriggerSourceNone:
	default:
		return fmt.Errorf("unknown TRIGGER_SOURCE %q", c.TriggerSource)
	}
	if c.TriggerSource == TriggerSourceChangeStream && c.StoreDriver != StoreDriverMongo {
		return errors.New("TRIGGER_SOURCE=changestream requires STORE_DRIVER=mongo")
	}
	return nil
}

// GetBasePath resolves path against the module root, or against the working
// directory when no go.mod is found above it (installed binaries, containers).
func GetBasePath(path string) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, path), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Join(wd, path), nil
}

func GetConfig() *Config {
	return cfg
}

func GetSMSConf() SMSConf {
	if cfg == nil {
		return SMSConf{}
	}
	return SMSConf{
		AccountSID:  cfg.TwilioAccountSID,
		AuthToken:   cfg.TwilioAuthToken,
		PhoneNumber: cfg.TwilioPhoneNumber,
	}
}

func GetPaymentConf() PaymentConf {
	if cfg == nil {
		return PaymentConf{}
	}
	return PaymentConf{
		ApplicationID: cfg.SquareApplicationID,
		AccessToken:   cfg.SquareAccessToken,
		LocationID:    cfg.SquareLocationID,
		Environment:   cfg.SquareEnvironment,
	}
}

func GetPushConf() PushConf {
	if cfg == nil {
		return PushConf{}
	}
	return PushConf{
		ProjectID:       cfg.FirebaseProjectID,
		CredentialsFile: cfg.FirebaseCredentialsFile,
	}
}

func GetTriggerConf() TriggerConf {
	if cfg == nil {
		return TriggerConf{Source: TriggerSourceNone, WorkerPoolSize: 1}
	}
	return TriggerConf{
		Source:           cfg.TriggerSource,
		WorkerPoolSize:   cfg.WorkerPoolSize,
		BackoffBaseDelay: time.Duration(cfg.BackoffBaseDelay) * time.Millisecond,
	}
}

// HandlerTimeout bounds each call-style request.
func (c *Config) HandlerTimeout() time.Duration {
	if c.HandlerTimeoutMs <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.HandlerTimeoutMs) * time.Millisecond
}

// SetTestConfig allows tests to set the global config variable directly.
func SetTestConfig(testCfg *Config) {
	cfg = testCfg
}
