package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tombee-studio/doresore-server/internal/domain"
	"github.com/tombee-studio/doresore-server/internal/game"
	httpHandler "github.com/tombee-studio/doresore-server/internal/handler/http"
	wsHandler "github.com/tombee-studio/doresore-server/internal/handler/websocket"
	"github.com/tombee-studio/doresore-server/internal/hub"
	gormpersistence "github.com/tombee-studio/doresore-server/internal/infra/persistence/gorm"
	"github.com/tombee-studio/doresore-server/internal/infra/setup"
	"github.com/tombee-studio/doresore-server/internal/infra/state/memory"
	redisstate "github.com/tombee-studio/doresore-server/internal/infra/state/redis"
	"github.com/tombee-studio/doresore-server/internal/infra/vision"
	"github.com/tombee-studio/doresore-server/internal/middleware"
	"github.com/tombee-studio/doresore-server/internal/repository"
	"github.com/tombee-studio/doresore-server/internal/service"
	"github.com/tombee-studio/doresore-server/internal/tasks"
	"github.com/tombee-studio/doresore-server/internal/worker"
)

const (
	archiveTimeout = 10 * time.Second
	sweepSchedule  = "@every 1m"
)

// App 结构体包含应用的所有组件和配置
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB // 未配置归档时为 nil
	RedisClient *redis.Client
	AsynqClient *asynq.Client
	AsynqServer *worker.WorkerServer
	Scheduler   *asynq.Scheduler
	Hub         *hub.Hub
	Registry    *game.Registry
	GameService *service.GameService
	HttpServer  *http.Server

	recognizer     service.Recognizer
	redisClientOpt asynq.RedisClientOpt
}

// NewApp 创建并初始化应用的所有组件
func NewApp() (*App, error) {
	// 1. 加载配置
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	// 2. 初始化 Logger
	log := newLogger(cfg)
	log.Info("Configuration loaded successfully")

	// 3. 初始化基础设施
	log.Info("Initializing infrastructure...")
	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	log.Info("Redis client initialized")

	var (
		db        *gorm.DB
		roundRepo repository.RoundRepository
	)
	if cfg.ArchiveEnabled() {
		db, err = setup.InitDB(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, fmt.Errorf("failed to init DB: %w", err)
		}
		if err = setup.MigrateDB(db); err != nil {
			return nil, fmt.Errorf("failed to migrate DB: %w", err)
		}
		roundRepo = gormpersistence.NewGormRoundRepository(db)
		log.Info("Database initialized and migrated, round archive enabled")
	} else {
		log.Info("DB_HOST not set, round archive disabled")
	}

	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)
	log.Info("Asynq client initialized")

	recognizer, err := newRecognizer(cfg)
	if err != nil {
		return nil, err
	}
	log.WithField("recognizer", cfg.Recognizer).Info("Recognizer initialized")

	catalog, err := domain.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	log.WithField("items", len(catalog)).Info("Item catalog loaded")

	// 4. 初始化 Repositories
	presence, err := newPresence(cfg, redisClient)
	if err != nil {
		return nil, err
	}

	// 5. 初始化 Hub、房间注册表和 Services。Hub 在 Start 时才绑定 GameService。
	log.Info("Initializing hub and services...")
	hubInstance := hub.NewHub(hub.Options{
		MaxMessageBytes: cfg.WSMaxMessageBytes,
		RatePerSecond:   cfg.WSRatePerSecond,
		Burst:           cfg.WSBurst,
	})

	var archiver service.ResultArchiver = service.NoopArchiver{}
	if roundRepo != nil {
		archiver = service.NewAsynqArchiver(asynqClient)
	}
	codes, err := game.NewCodePool(cfg.RoomCodeAlphabet, cfg.RoomCodeLength, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create room code pool: %w", err)
	}
	registry := game.NewRegistry(codes, gameSettings(cfg, catalog), game.Deps{
		Broadcaster: hubInstance,
		OnResult:    service.ArchiveHook(archiver, archiveTimeout),
	})

	sessionService, err := service.NewSessionService(presence, cfg.JWTSecret, cfg.JWTExpiryHours)
	if err != nil {
		return nil, fmt.Errorf("failed to create SessionService: %w", err)
	}
	gameService := service.NewGameService(sessionService, registry, recognizer, cfg.RecognitionTimeout)
	log.Info("Services initialized")

	// 6. 初始化 Handlers
	sessionHandler := httpHandler.NewSessionHandler(sessionService)
	roomHandler := httpHandler.NewRoomHandler(registry)
	websocketHandler := wsHandler.NewWebSocketHandler(hubInstance, cfg.CORSAllowedOrigins)

	// 7. 初始化 Worker Server
	workerServer := worker.NewWorkerServer(redisClientOpt, roundRepo, registry, cfg.SweepQueue(), log)
	log.Info("Worker server initialized")

	// 8. 初始化 Gin Engine 和路由
	log.Info("Setting up Gin router...")
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware(cfg.CORSAllowedOrigins))

	api := router.Group("/api")
	api.Use(middleware.RateLimit(redisClient, cfg.KeyPrefix, cfg.RateLimitMax, cfg.RateLimitWindow))
	{
		api.POST("/session", sessionHandler.Create)
		api.GET("/session", middleware.Auth(sessionService), sessionHandler.Me)
		api.GET("/rooms", roomHandler.List)
		api.GET("/rooms/:code", roomHandler.Get)
		if roundRepo != nil {
			historyHandler := httpHandler.NewHistoryHandler(roundRepo)
			api.GET("/rounds", historyHandler.List)
			api.GET("/rounds/:id", historyHandler.Get)
		}
	}
	router.GET("/ws", middleware.Auth(sessionService), websocketHandler.HandleConnection)
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	log.Info("Router setup complete")

	httpServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		Config:         cfg,
		Log:            log,
		DB:             db,
		RedisClient:    redisClient,
		AsynqClient:    asynqClient,
		AsynqServer:    workerServer,
		Hub:            hubInstance,
		Registry:       registry,
		GameService:    gameService,
		HttpServer:     httpServer,
		recognizer:     recognizer,
		redisClientOpt: redisClientOpt,
	}, nil
}

func newLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel) // cfg.LogLevel 已被 LoadConfig 验证
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)

	// 各包使用 logrus 的标准 logger，保持相同的格式和级别
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(logLevel)
	logrus.SetOutput(os.Stdout)
	log.Infof("Logger initialized (Level: %s, Format: %T)", logLevel.String(), log.Formatter)
	return log
}

func newPresence(cfg *Config, client *redis.Client) (repository.PresenceRepository, error) {
	if cfg.PresenceStore == "memory" {
		logrus.Info("Using in-process presence store")
		return memory.NewPresenceRepository(), nil
	}
	presence := redisstate.NewRedisPresenceRepository(client, cfg.KeyPrefix)
	// 房间和会话只存在于进程内，上次运行留下的在线记录已经无效
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := presence.Reset(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset presence: %w", err)
	}
	return presence, nil
}

func newRecognizer(cfg *Config) (service.Recognizer, error) {
	if cfg.Recognizer == "static" {
		return vision.NewStaticRecognizer(cfg.StaticLabels...), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r, err := vision.NewCloudRecognizer(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to init vision recognizer: %w", err)
	}
	return r, nil
}

func gameSettings(cfg *Config, catalog []domain.CatalogEntry) game.Settings {
	s := game.DefaultSettings()
	s.LimitTime = cfg.LimitTime
	s.TickInterval = time.Second
	s.ClearItemCount = cfg.ClearItemNumber
	s.EvidenceSlots = cfg.ClearItemNumber
	s.ItemsPerRound = cfg.ItemsPerRound
	s.Thresholds = domain.Thresholds{MinScore: cfg.ClaimMinScore, MinExtent: cfg.ClaimMinExtent}
	s.Catalog = catalog
	return s
}

// Start 启动应用的所有后台 Goroutine 和 HTTP 服务器
func (a *App) Start() {
	a.Log.Info("Starting application background routines...")
	go a.Hub.Run(a.GameService)
	a.Log.Info("Hub routine started")

	go a.AsynqServer.Start()
	a.Log.Info("Asynq worker server routine started")

	a.registerPeriodicTasks()

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

// registerPeriodicTasks 注册空闲房间清理任务。任务发往本实例的队列，只由本实例的 Worker 处理。
func (a *App) registerPeriodicTasks() {
	scheduler := asynq.NewScheduler(a.redisClientOpt, &asynq.SchedulerOpts{})

	payload, err := tasks.NewRoomSweepPayload(int(a.Config.RoomIdleTimeout / time.Second))
	if err != nil {
		a.Log.Errorf("Failed to create room sweep task payload: %v", err)
		return
	}
	task := asynq.NewTask(tasks.TypeRoomSweep, payload)
	entryID, err := scheduler.Register(sweepSchedule, task, asynq.Queue(a.Config.SweepQueue()))
	if err != nil {
		a.Log.Errorf("Could not register periodic room sweep task: %v", err)
		return
	}
	a.Log.Infof("Periodic room sweep task registered with schedule '%s' on queue '%s' (EntryID: %s)", sweepSchedule, a.Config.SweepQueue(), entryID)
	a.Scheduler = scheduler

	go func() {
		a.Log.Info("Asynq scheduler starting...")
		if err := scheduler.Run(); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			a.Log.Errorf("Asynq scheduler Run() failed: %v", err)
		} else {
			a.Log.Info("Asynq scheduler stopped.")
		}
	}()
}

// Shutdown 优雅地关闭应用
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	// 1. 停止接收新请求
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully.")
	}

	// 2. 关闭所有连接和房间
	if a.Hub != nil {
		a.Hub.Stop()
	}
	if a.Registry != nil {
		a.Registry.Shutdown()
	}

	// 3. 停止周期任务和 Worker
	if a.Scheduler != nil {
		a.Scheduler.Shutdown()
	}
	if a.AsynqServer != nil {
		a.AsynqServer.Shutdown()
	}

	// 4. 关闭客户端连接
	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}
	if closer, ok := a.recognizer.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.Log.Errorf("Error closing recognizer: %v", err)
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		} else {
			a.Log.Info("Redis connection closed.")
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Log.Errorf("Error closing database connection: %v", err)
			}
		}
	}

	a.Log.Info("Application shutdown complete.")
}

// CORSMiddleware 只回显允许列表中的 Origin，列表中包含 "*" 时允许所有来源
func CORSMiddleware(allowed []string) gin.HandlerFunc {
	allowAll := false
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.TrimRight(o, "/")
		if o == "*" {
			allowAll = true
		}
		set[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || set[origin]) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			c.Writer.Header().Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggerMiddleware 创建一个 Gin 中间件用于记录请求日志
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		// 查询参数里可能带有会话令牌，不记录
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})

		switch {
		case errorMessage != "":
			entry.Error(errorMessage)
		case statusCode >= 500:
			entry.Error("Server error")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request handled")
		}
	}
}
