package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config 结构体用于存储从环境变量或文件加载的配置
type Config struct {
	ServerPort string
	LogLevel   string
	AppEnv     string // development/production
	InstanceID string // 区分多个实例，房间清理任务只发往本实例的队列

	JWTSecret      string
	JWTExpiryHours int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
	PresenceStore string // redis | memory

	RateLimitMax    int
	RateLimitWindow time.Duration

	// 数据库只用于归档回合结果，DBHost 为空时不启用
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	LimitTime        int // 秒
	ClearItemNumber  int
	ItemsPerRound    int
	ClaimMinScore    float64
	ClaimMinExtent   float64
	RoomCodeAlphabet string
	RoomCodeLength   int
	RoomIdleTimeout  time.Duration
	CatalogFile      string

	Recognizer         string // vision | static
	StaticLabels       []string
	RecognitionTimeout time.Duration

	CORSAllowedOrigins []string
	WSMaxMessageBytes  int64
	WSRatePerSecond    float64
	WSBurst            int
}

// SweepQueue 本实例专用的房间清理队列。房间状态在进程内，清理任务不能被其他实例消费。
func (c *Config) SweepQueue() string { return "sweep:" + c.InstanceID }

// ArchiveEnabled 是否配置了结果归档数据库
func (c *Config) ArchiveEnabled() bool { return c.DBHost != "" }

// LoadConfig 从环境变量加载配置
func LoadConfig() (*Config, error) {
	// 优先加载 .env 文件 (如果存在)
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:       os.Getenv("SERVER_PORT"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		AppEnv:           os.Getenv("APP_ENV"),
		InstanceID:       os.Getenv("INSTANCE_ID"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		KeyPrefix:        os.Getenv("REDIS_KEY_PREFIX"),
		PresenceStore:    strings.ToLower(os.Getenv("PRESENCE_STORE")),
		DBUser:           os.Getenv("DB_USER"),
		DBPassword:       os.Getenv("DB_PASSWORD"),
		DBHost:           os.Getenv("DB_HOST"),
		DBPort:           os.Getenv("DB_PORT"),
		DBName:           os.Getenv("DB_NAME"),
		RoomCodeAlphabet: os.Getenv("ROOM_CODE_ALPHABET"),
		CatalogFile:      os.Getenv("CATALOG_FILE"),
		Recognizer:       strings.ToLower(os.Getenv("RECOGNIZER")),
		StaticLabels:     splitList(os.Getenv("STATIC_RECOGNIZER_LABELS")),
	}

	var err error
	ints := []struct {
		key string
		dst *int
		def int
	}{
		{"JWT_EXPIRY_HOURS", &cfg.JWTExpiryHours, 24},
		{"REDIS_DB", &cfg.RedisDB, 0},
		{"RATE_LIMIT_MAX", &cfg.RateLimitMax, 100},
		{"LIMIT_TIME", &cfg.LimitTime, 60},
		{"CLEAR_ITEM_NUMBER", &cfg.ClearItemNumber, 3},
		{"ITEMS_PER_ROUND", &cfg.ItemsPerRound, 10},
		{"ROOM_CODE_LENGTH", &cfg.RoomCodeLength, 4},
		{"WS_BURST", &cfg.WSBurst, 20},
	}
	for _, it := range ints {
		if *it.dst, err = envInt(it.key, it.def); err != nil {
			return nil, err
		}
	}
	if cfg.ClaimMinScore, err = envFloat("CLAIM_MIN_SCORE", 0.5); err != nil {
		return nil, err
	}
	if cfg.ClaimMinExtent, err = envFloat("CLAIM_MIN_EXTENT", 0.3); err != nil {
		return nil, err
	}
	if cfg.WSRatePerSecond, err = envFloat("WS_RATE_PER_SECOND", 10); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = envDuration("RATE_LIMIT_WINDOW", time.Second); err != nil {
		return nil, err
	}
	if cfg.RecognitionTimeout, err = envDuration("RECOGNITION_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RoomIdleTimeout, err = envDuration("ROOM_IDLE_TIMEOUT", 30*time.Minute); err != nil {
		return nil, err
	}
	maxBytes, err := envInt("WS_MAX_MESSAGE_BYTES", 8<<20)
	if err != nil {
		return nil, err
	}
	cfg.WSMaxMessageBytes = int64(maxBytes)

	origins := os.Getenv("CORS_ALLOWED_ORIGIN")
	if origins == "" {
		origins = "http://localhost:3000" // 开发默认
	}
	cfg.CORSAllowedOrigins = splitList(origins)

	// --- 设置其他默认值和进行必要检查 ---
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.InstanceID == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "local"
		}
		cfg.InstanceID = host
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "hunt:"
	}
	if cfg.PresenceStore == "" {
		cfg.PresenceStore = "redis"
	}
	if cfg.RoomCodeAlphabet == "" {
		cfg.RoomCodeAlphabet = "0123456789"
	}
	if cfg.Recognizer == "" {
		cfg.Recognizer = "vision"
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
	}
	if cfg.PresenceStore != "redis" && cfg.PresenceStore != "memory" {
		return nil, fmt.Errorf("PRESENCE_STORE must be redis or memory, got %q", cfg.PresenceStore)
	}
	if cfg.Recognizer != "vision" && cfg.Recognizer != "static" {
		return nil, fmt.Errorf("RECOGNIZER must be vision or static, got %q", cfg.Recognizer)
	}
	if cfg.LimitTime <= 0 {
		return nil, fmt.Errorf("LIMIT_TIME must be positive, got %d", cfg.LimitTime)
	}
	if cfg.ClearItemNumber <= 0 || cfg.ItemsPerRound <= 0 {
		return nil, fmt.Errorf("CLEAR_ITEM_NUMBER and ITEMS_PER_ROUND must be positive")
	}
	if cfg.RateLimitMax <= 0 || cfg.RateLimitWindow <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW must be positive")
	}

	// 验证日志级别
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be an integer: %w", key, err)
	}
	return v, nil
}

func envFloat(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be a number: %w", key, err)
	}
	return v, nil
}

// envDuration 接受 time.ParseDuration 格式，纯数字按秒处理
func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be a duration: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
