package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Cache        CacheConfig
	Storage      StorageConfig
	Files        FilesConfig
	RateLimit    RateLimitConfig
	Observations ObservationBounds
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig controls the Redis backed listing cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// StorageConfig selects and configures the blob store holding file binaries.
type StorageConfig struct {
	Driver         string
	LocalDir       string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// FilesConfig holds upload validation parameters.
type FilesConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// RateLimitConfig throttles the login endpoint.
type RateLimitConfig struct {
	LoginPerSecond float64
	LoginBurst     int
}

// Range is an inclusive numeric bound.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within the bound.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// ObservationBounds lists clinically plausible ranges for recorded vitals.
type ObservationBounds struct {
	Systolic         Range
	Diastolic        Range
	HeartRate        Range
	Temperature      Range
	RespiratoryRate  Range
	BloodSugar       Range
	OxygenSaturation Range
	PainScore        Range
	NoteMaxLength    int
}

// DefaultObservationBounds returns the bounds applied when nothing is configured.
func DefaultObservationBounds() ObservationBounds {
	return ObservationBounds{
		Systolic:         Range{Min: 50, Max: 250},
		Diastolic:        Range{Min: 30, Max: 150},
		HeartRate:        Range{Min: 20, Max: 250},
		Temperature:      Range{Min: 30, Max: 45},
		RespiratoryRate:  Range{Min: 5, Max: 60},
		BloodSugar:       Range{Min: 40, Max: 600},
		OxygenSaturation: Range{Min: 50, Max: 100},
		PainScore:        Range{Min: 0, Max: 10},
		NoteMaxLength:    5000,
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("CACHE_ENABLED"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 5*time.Minute),
	}

	cfg.Storage = StorageConfig{
		Driver:         strings.ToLower(v.GetString("STORAGE_DRIVER")),
		LocalDir:       v.GetString("STORAGE_DIR"),
		S3Bucket:       v.GetString("S3_BUCKET"),
		S3Region:       v.GetString("S3_REGION"),
		S3Endpoint:     v.GetString("S3_ENDPOINT"),
		S3AccessKey:    v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:    v.GetString("S3_SECRET_KEY"),
		S3UsePathStyle: v.GetBool("S3_USE_PATH_STYLE"),
	}

	maxFileSize := v.GetInt64("FILES_MAX_SIZE")
	if maxFileSize <= 0 {
		maxFileSize = 25 * 1024 * 1024
	}
	cfg.Files = FilesConfig{
		MaxFileSizeBytes: maxFileSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("FILES_ALLOWED_MIME_TYPES")),
	}

	cfg.RateLimit = RateLimitConfig{
		LoginPerSecond: v.GetFloat64("LOGIN_RATE_LIMIT"),
		LoginBurst:     v.GetInt("LOGIN_RATE_BURST"),
	}

	cfg.Observations = ObservationBounds{
		Systolic:         readRange(v, "OBS_SYSTOLIC"),
		Diastolic:        readRange(v, "OBS_DIASTOLIC"),
		HeartRate:        readRange(v, "OBS_HEART_RATE"),
		Temperature:      readRange(v, "OBS_TEMPERATURE"),
		RespiratoryRate:  readRange(v, "OBS_RESPIRATORY_RATE"),
		BloodSugar:       readRange(v, "OBS_BLOOD_SUGAR"),
		OxygenSaturation: readRange(v, "OBS_OXYGEN_SATURATION"),
		PainScore:        readRange(v, "OBS_PAIN_SCORE"),
		NoteMaxLength:    v.GetInt("OBS_NOTE_MAX_LENGTH"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "dmr")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "dmr-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("CACHE_TTL", "5m")

	v.SetDefault("STORAGE_DRIVER", StorageDriverLocal)
	v.SetDefault("STORAGE_DIR", "./media")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_USE_PATH_STYLE", false)

	v.SetDefault("FILES_MAX_SIZE", 25*1024*1024)
	v.SetDefault("FILES_ALLOWED_MIME_TYPES", "application/pdf,image/png,image/jpeg,text/plain")

	v.SetDefault("LOGIN_RATE_LIMIT", 5)
	v.SetDefault("LOGIN_RATE_BURST", 10)

	defaults := DefaultObservationBounds()
	setRangeDefault(v, "OBS_SYSTOLIC", defaults.Systolic)
	setRangeDefault(v, "OBS_DIASTOLIC", defaults.Diastolic)
	setRangeDefault(v, "OBS_HEART_RATE", defaults.HeartRate)
	setRangeDefault(v, "OBS_TEMPERATURE", defaults.Temperature)
	setRangeDefault(v, "OBS_RESPIRATORY_RATE", defaults.RespiratoryRate)
	setRangeDefault(v, "OBS_BLOOD_SUGAR", defaults.BloodSugar)
	setRangeDefault(v, "OBS_OXYGEN_SATURATION", defaults.OxygenSaturation)
	setRangeDefault(v, "OBS_PAIN_SCORE", defaults.PainScore)
	v.SetDefault("OBS_NOTE_MAX_LENGTH", defaults.NoteMaxLength)
}

func setRangeDefault(v *viper.Viper, prefix string, r Range) {
	v.SetDefault(prefix+"_MIN", r.Min)
	v.SetDefault(prefix+"_MAX", r.Max)
}

func readRange(v *viper.Viper, prefix string) Range {
	return Range{Min: v.GetFloat64(prefix + "_MIN"), Max: v.GetFloat64(prefix + "_MAX")}
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
