package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerHost     string
	ServingPort    string
	TrainingPort   string
	GatewayPort    string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	EnablePostgres   bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	EnableRedis   bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	EnableKafka  bool
	KafkaBrokers []string
	KafkaGroupID string

	// Model artifacts and calibration
	ArtifactDir     string
	DatasetDir      string
	CalibrationFile string

	// Training
	TrainingMaxWorkers   int
	TrainingTestFraction float64
	TrainingFolds        int
	TrainingSeed         int64
	TrainingMinSamples   int

	// Prediction
	PredictionTopFactors int
	FeatureCacheTTL      time.Duration

	// Gateway upstreams
	ServingBaseURL        string
	TrainingBaseURL       string
	GatewayRequestTimeout time.Duration
	GatewayRetries        int
}

func Load() *Config {
	return &Config{
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ServingPort:    getEnv("SERVING_PORT", "8089"),
		TrainingPort:   getEnv("TRAINING_PORT", "8088"),
		GatewayPort:    getEnv("GATEWAY_PORT", "8080"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1024*1024)),

		EnablePostgres:   getBoolEnv("ENABLE_POSTGRES", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "oralsmart"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "oralsmart"),
		PostgresDB:       getEnv("POSTGRES_DB", "oralsmart"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		EnableRedis:   getBoolEnv("ENABLE_REDIS", false),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		EnableKafka:  getBoolEnv("ENABLE_KAFKA", false),
		KafkaBrokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "oralsmart-risk"),

		ArtifactDir:     getEnv("ARTIFACT_DIR", "./artifacts"),
		DatasetDir:      getEnv("DATASET_DIR", "./datasets"),
		CalibrationFile: getEnv("CALIBRATION_FILE", ""),

		TrainingMaxWorkers:   getIntEnv("TRAINING_MAX_WORKERS", 1),
		TrainingTestFraction: getFloatEnv("TRAINING_TEST_FRACTION", 0.2),
		TrainingFolds:        getIntEnv("TRAINING_FOLDS", 5),
		TrainingSeed:         int64(getIntEnv("TRAINING_SEED", 42)),
		TrainingMinSamples:   getIntEnv("TRAINING_MIN_SAMPLES", 30),

		PredictionTopFactors: getIntEnv("PREDICTION_TOP_FACTORS", 5),
		FeatureCacheTTL:      getDuration("FEATURE_CACHE_TTL", 24*time.Hour),

		ServingBaseURL:        getEnv("SERVING_BASE_URL", "http://localhost:8089"),
		TrainingBaseURL:       getEnv("TRAINING_BASE_URL", "http://localhost:8088"),
		GatewayRequestTimeout: getDuration("GATEWAY_REQUEST_TIMEOUT", 10*time.Second),
		GatewayRetries:        getIntEnv("GATEWAY_RETRIES", 3),
	}
}

// PostgresDSN builds the connection string for the gorm postgres driver.
func (c *Config) PostgresDSN() string {
	return "host=" + c.PostgresHost +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" port=" + c.PostgresPort +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
