package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	JWTTTLHours        int
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for caching and the leaderboard
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Gamification
	Timezone               string
	RecentWindowDays       int
	SeedCatalog            bool
	LeaderboardSize        int
	LeaderboardRebuildCron string
	StatsCacheTTLSeconds   int
	MetricsEnabled         bool
	// Registration security
	RegisterMaxPerIPPerDay        int
	RegisterAttemptCooldownSec    int
	RegisterFailedMaxPerIPPerHour int
	RegisterTempBanMinutes        int
	// Admins
	AdminUsernames []string
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// An optional .env only seeds the process environment; real env vars win.
	_ = godotenv.Load()

	// Boolean switches default to on; zero values cannot express that.
	cfg = AppConfig{SeedCatalog: true, MetricsEnabled: true}

	// Precedence: config/config.json -> defaults -> environment variable overrides
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Fatalf("invalid config/config.json: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Location resolves Timezone, falling back to UTC when it is unknown.
func (c AppConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("unknown timezone %q, using UTC: %v", c.Timezone, err)
		return time.UTC
	}
	return loc
}

// IsAdmin reports whether username is listed in AdminUsernames.
func (c AppConfig) IsAdmin(username string) bool {
	for _, u := range c.AdminUsernames {
		if strings.EqualFold(u, username) {
			return true
		}
	}
	return false
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// fileConfig mirrors config/config.json. Pointers mark values that may be absent.
type fileConfig struct {
	App struct {
		AppPort            string
		JWTSecret          string
		JWTTTLHours        int
		RateLimitPerMinute int
		AllowedOrigins     []string
		GinMode            string
		GinPath            string
	} `json:"app"`
	Database struct {
		DatabaseURI string
		DBHost      string
		DBPort      string
		DBUser      string
		DBPassword  string
		DBName      string
	} `json:"database"`
	Redis struct {
		RedisHost     string
		RedisPort     int
		RedisDB       int
		RedisPassword string
	} `json:"redis"`
	Log struct {
		Level      string
		Path       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
		Compress   bool
	} `json:"log"`
	Gamification struct {
		Timezone               string
		RecentWindowDays       int
		SeedCatalog            *bool
		LeaderboardSize        int
		LeaderboardRebuildCron string
		StatsCacheTTLSeconds   int
		MetricsEnabled         *bool
	} `json:"gamification"`
	Register struct {
		MaxPerIPPerDay        int
		AttemptCooldownSec    int
		FailedMaxPerIPPerHour int
		TempBanMinutes        int
	} `json:"register"`
	Admin struct {
		Usernames []string
	} `json:"admin"`
}

// loadJSONConfig reads JSON file into cfg if present. Returns error only for invalid JSON.
// Zero values leave out untouched so applyDefaults can fill them.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var fc fileConfig
	if err := json.NewDecoder(f).Decode(&fc); err != nil {
		return err
	}

	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	setList := func(dst *[]string, v []string) {
		if len(v) > 0 {
			*dst = v
		}
	}

	app := fc.App
	setString(&out.AppPort, app.AppPort)
	setString(&out.JWTSecret, app.JWTSecret)
	setInt(&out.JWTTTLHours, app.JWTTTLHours)
	setInt(&out.RateLimitPerMinute, app.RateLimitPerMinute)
	setList(&out.AllowedOrigins, app.AllowedOrigins)
	setString(&out.GinMode, app.GinMode)
	setString(&out.GinPath, app.GinPath)

	db := fc.Database
	setString(&out.DatabaseURI, db.DatabaseURI)
	setString(&out.DBHost, db.DBHost)
	setString(&out.DBPort, db.DBPort)
	setString(&out.DBUser, db.DBUser)
	setString(&out.DBPassword, db.DBPassword)
	setString(&out.DBName, db.DBName)

	setString(&out.RedisHost, fc.Redis.RedisHost)
	setInt(&out.RedisPort, fc.Redis.RedisPort)
	setInt(&out.RedisDB, fc.Redis.RedisDB)
	setString(&out.RedisPassword, fc.Redis.RedisPassword)

	setString(&out.LogLevel, fc.Log.Level)
	setString(&out.LogPath, fc.Log.Path)
	setInt(&out.LogMaxSizeMB, fc.Log.MaxSizeMB)
	setInt(&out.LogMaxBackups, fc.Log.MaxBackups)
	setInt(&out.LogMaxAgeDays, fc.Log.MaxAgeDays)
	out.LogCompress = out.LogCompress || fc.Log.Compress

	gm := fc.Gamification
	setString(&out.Timezone, gm.Timezone)
	setInt(&out.RecentWindowDays, gm.RecentWindowDays)
	if gm.SeedCatalog != nil {
		out.SeedCatalog = *gm.SeedCatalog
	}
	setInt(&out.LeaderboardSize, gm.LeaderboardSize)
	setString(&out.LeaderboardRebuildCron, gm.LeaderboardRebuildCron)
	setInt(&out.StatsCacheTTLSeconds, gm.StatsCacheTTLSeconds)
	if gm.MetricsEnabled != nil {
		out.MetricsEnabled = *gm.MetricsEnabled
	}

	setInt(&out.RegisterMaxPerIPPerDay, fc.Register.MaxPerIPPerDay)
	setInt(&out.RegisterAttemptCooldownSec, fc.Register.AttemptCooldownSec)
	setInt(&out.RegisterFailedMaxPerIPPerHour, fc.Register.FailedMaxPerIPPerHour)
	setInt(&out.RegisterTempBanMinutes, fc.Register.TempBanMinutes)

	setList(&out.AdminUsernames, fc.Admin.Usernames)
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.JWTTTLHours == 0 {
		c.JWTTTLHours = 72
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "climate_guardian"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.RecentWindowDays == 0 {
		c.RecentWindowDays = 7
	}
	if c.LeaderboardSize == 0 {
		c.LeaderboardSize = 20
	}
	if c.LeaderboardRebuildCron == "" {
		c.LeaderboardRebuildCron = "@every 15m"
	}
	if c.StatsCacheTTLSeconds == 0 {
		c.StatsCacheTTLSeconds = 300
	}
	if c.RegisterMaxPerIPPerDay == 0 {
		c.RegisterMaxPerIPPerDay = 5
	}
	if c.RegisterAttemptCooldownSec == 0 {
		c.RegisterAttemptCooldownSec = 10
	}
	if c.RegisterFailedMaxPerIPPerHour == 0 {
		c.RegisterFailedMaxPerIPPerHour = 20
	}
	if c.RegisterTempBanMinutes == 0 {
		c.RegisterTempBanMinutes = 60
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("JWT_TTL_HOURS", ""); v != "" {
		c.JWTTTLHours = mustParseInt(v)
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	// Logging env overrides
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	// Gamification env overrides
	if v := getEnv("TIMEZONE", ""); v != "" {
		c.Timezone = v
	}
	if v := getEnv("RECENT_WINDOW_DAYS", ""); v != "" {
		c.RecentWindowDays = mustParseInt(v)
	}
	if v := getEnv("SEED_CATALOG", ""); v != "" {
		c.SeedCatalog = v == "true"
	}
	if v := getEnv("LEADERBOARD_SIZE", ""); v != "" {
		c.LeaderboardSize = mustParseInt(v)
	}
	if v := getEnv("LEADERBOARD_REBUILD_CRON", ""); v != "" {
		c.LeaderboardRebuildCron = v
	}
	if v := getEnv("STATS_CACHE_TTL_SECONDS", ""); v != "" {
		c.StatsCacheTTLSeconds = mustParseInt(v)
	}
	if v := getEnv("METRICS_ENABLED", ""); v != "" {
		c.MetricsEnabled = v == "true"
	}
	// Registration env overrides
	if v := getEnv("REGISTER_MAX_PER_IP_PER_DAY", ""); v != "" {
		c.RegisterMaxPerIPPerDay = mustParseInt(v)
	}
	if v := getEnv("REGISTER_ATTEMPT_COOLDOWN_SEC", ""); v != "" {
		c.RegisterAttemptCooldownSec = mustParseInt(v)
	}
	if v := getEnv("REGISTER_FAILED_MAX_PER_IP_PER_HOUR", ""); v != "" {
		c.RegisterFailedMaxPerIPPerHour = mustParseInt(v)
	}
	if v := getEnv("REGISTER_TEMP_BAN_MINUTES", ""); v != "" {
		c.RegisterTempBanMinutes = mustParseInt(v)
	}
	if v := getEnv("ADMIN_USERNAMES", ""); v != "" {
		c.AdminUsernames = readListEnv("ADMIN_USERNAMES", c.AdminUsernames)
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
