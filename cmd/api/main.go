package main

import (
	"context"
	"database/sql"
	"errors"
	"expvar"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Blue-Davinci/SmartSave/internal/assistant"
	"github.com/Blue-Davinci/SmartSave/internal/data"
	"github.com/Blue-Davinci/SmartSave/internal/fetcher"
	"github.com/Blue-Davinci/SmartSave/internal/httpclient"
	"github.com/Blue-Davinci/SmartSave/internal/kvstore"
	"github.com/Blue-Davinci/SmartSave/internal/ledger"
	"github.com/Blue-Davinci/SmartSave/internal/logger"
	"github.com/Blue-Davinci/SmartSave/internal/mailer"
	"github.com/Blue-Davinci/SmartSave/internal/notifier"
	"github.com/Blue-Davinci/SmartSave/internal/validator"
	"github.com/Blue-Davinci/SmartSave/internal/vcs"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/microcosm-cc/bluemonday"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	version = vcs.Version()
)

type config struct {
	port     int
	env      string
	logLevel string
	api      struct {
		name   string
		author string
	}
	ws struct {
		port                     int
		MaxConcurrentConnections int
	}
	feed struct {
		url          string
		strictDates  bool
		periodMonths int
		ledgerCSV    string
	}
	store struct {
		backend      string
		dsn          string
		namespace    string
		maxOpenConns int
		maxIdleConns int
		maxIdleTime  string
	}
	redis struct {
		enabled  bool
		addr     string
		password string
		db       int
	}
	amqp struct {
		url      string
		exchange string
		queue    string
	}
	http_client struct {
		timeout  time.Duration
		retrymax int
	}
	assistant struct {
		url              string
		apiKey           string
		chatHistoryLimit int
	}
	smtp struct {
		host      string
		port      int
		username  string
		password  string
		sender    string
		recipient string
	}
	limiter struct {
		rps     float64
		burst   int
		enabled bool
	}
	cors struct {
		trustedOrigins []string
	}
	encryption struct {
		key string
	}
	scheduler struct {
		refreshInterval    string
		startupRetries     int
		startupBackoff     time.Duration
		refreshDatasetCron *cron.Cron
	}
}

type application struct {
	config            config
	logger            *zap.Logger
	models            data.Models
	store             kvstore.Store
	dataset           *dataset
	fetcher           *fetcher.Fetcher
	assistant         *assistant.Client
	ledger            *ledger.Ledger
	mailer            mailer.Mailer
	broadcaster       *notifier.Broadcaster
	redisNotifier     *notifier.RedisNotifier
	notifier          notifier.Notifier
	amqpClient        *notifier.AMQPClient
	sanitizer         *bluemonday.Policy
	wg                sync.WaitGroup
	RedisDB           *redis.Client
	Mutex             sync.Mutex
	WebSocketUpgrader websocket.Upgrader
	wsConnections     int
}

func main() {
	cfg, opts, err := parseConfig(flag.CommandLine, os.Args[1:], getEnvPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if opts.displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}
	if opts.generateKey {
		key, err := data.GenerateEncryptionKey()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(key)
		os.Exit(0)
	}

	logger, err := logger.InitJSONLogger(cfg.logLevel)
	if err != nil {
		fmt.Println("Error initializing logger")
		return
	}
	defer logger.Sync()

	cfg.scheduler.refreshDatasetCron = cron.New()

	app, err := newApplication(cfg, logger)
	if err != nil {
		logger.Fatal("Error while starting up application", zap.Error(err))
	}
	defer app.close()

	publishMetrics(app)
	app.startSchedulers()

	err = app.server()
	if err != nil {
		logger.Fatal("Error while starting server.", zap.String("error", err.Error()))
	}
}

// cliOptions are the flags that make main exit early instead of serving.
type cliOptions struct {
	displayVersion bool
	generateKey    bool
}

// parseConfig loads the .env file at envPath and then defines and parses the
// flags on fs. The .env values must be in the environment before the flags
// are defined because they supply the flag defaults.
func parseConfig(fs *flag.FlagSet, args []string, envPath string) (config, cliOptions, error) {
	var (
		cfg  config
		opts cliOptions
	)
	loadEnvFile(envPath)

	// Port & env
	fs.IntVar(&cfg.port, "port", getEnvInt("SMARTSAVE_PORT", 4000), "API server port")
	fs.StringVar(&cfg.env, "env", getEnv("SMARTSAVE_ENV", "development"), "Environment (development|staging|production)")
	fs.StringVar(&cfg.logLevel, "log-level", getEnv("SMARTSAVE_LOG_LEVEL", "info"), "Log level (debug|info|warn|error)")
	// Websocket / SSE
	fs.IntVar(&cfg.ws.port, "ws-port", getEnvInt("SMARTSAVE_WS_PORT", 4001), "Websocket and SSE server port")
	fs.IntVar(&cfg.ws.MaxConcurrentConnections, "ws-max-concurrent-connections", 100, "Websocket server max concurrent connections")
	// API configuration
	fs.StringVar(&cfg.api.name, "api-name", "SmartSave", "API name")
	fs.StringVar(&cfg.api.author, "api-author", "Blue_Davinci", "API author")
	// Feed
	fs.StringVar(&cfg.feed.url, "feed-url", getEnv("SMARTSAVE_FEED_URL", "http://localhost:5000"), "Base URL of the transaction feed")
	fs.BoolVar(&cfg.feed.strictDates, "fetch-strict-dates", true, "Reject feed records whose date_str cannot be parsed")
	fs.IntVar(&cfg.feed.periodMonths, "period-months", data.DefaultPeriodMonths, "Number of months the feed covers")
	fs.StringVar(&cfg.feed.ledgerCSV, "ledger-csv", os.Getenv("SMARTSAVE_LEDGER_CSV"), "Serve /v1/feed from this bank export CSV")
	// Storage
	fs.StringVar(&cfg.store.backend, "storage-backend", getEnv("SMARTSAVE_STORAGE_BACKEND", kvstore.BackendSQLite), "Storage backend (memory|redis|postgres|sqlite)")
	fs.StringVar(&cfg.store.dsn, "storage-dsn", getEnv("SMARTSAVE_STORAGE_DSN", "smartsave.db"), "PostgreSQL DSN or SQLite file path")
	fs.StringVar(&cfg.store.namespace, "storage-namespace", os.Getenv("SMARTSAVE_STORAGE_NAMESPACE"), "Optional key prefix")
	fs.IntVar(&cfg.store.maxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	fs.IntVar(&cfg.store.maxIdleConns, "db-max-idle-conns", 25, "PostgreSQL max idle connections")
	fs.StringVar(&cfg.store.maxIdleTime, "db-max-idle-time", "15m", "PostgreSQL max connection idle time")
	// Redis configuration
	fs.BoolVar(&cfg.redis.enabled, "redis-enabled", getEnvBool("SMARTSAVE_REDIS_ENABLED", false), "Relay notifications through Redis pub/sub")
	fs.StringVar(&cfg.redis.addr, "redis-addr", getEnv("SMARTSAVE_REDIS_ADDR", "localhost:6379"), "Redis address")
	fs.StringVar(&cfg.redis.password, "redis-password", os.Getenv("SMARTSAVE_REDIS_PASSWORD"), "Redis password")
	fs.IntVar(&cfg.redis.db, "redis-db", 0, "Redis database")
	// AMQP
	fs.StringVar(&cfg.amqp.url, "amqp-url", os.Getenv("SMARTSAVE_AMQP_URL"), "AMQP broker URL for the messaging gateway")
	fs.StringVar(&cfg.amqp.exchange, "amqp-exchange", notifier.DefaultExchange, "AMQP exchange")
	fs.StringVar(&cfg.amqp.queue, "amqp-queue", notifier.DefaultQueue, "AMQP queue")
	// HTTP client configuration
	fs.DurationVar(&cfg.http_client.timeout, "http-client-timeout", 10*time.Second, "HTTP client timeout")
	fs.IntVar(&cfg.http_client.retrymax, "http-client-retrymax", 3, "HTTP client maximum retries")
	// Assistant
	fs.StringVar(&cfg.assistant.url, "openai-url", assistant.DefaultCompletionsURL, "Chat completions endpoint")
	fs.StringVar(&cfg.assistant.apiKey, "openai-api-key", os.Getenv("SMARTSAVE_OPENAI_API_KEY"), "Fallback assistant API key")
	fs.IntVar(&cfg.assistant.chatHistoryLimit, "chat-history-limit", 0, "Maximum chat messages kept (0 keeps all)")
	// Rate limiter flags
	fs.Float64Var(&cfg.limiter.rps, "limiter-rps", 5, "Rate limiter maximum requests per second")
	fs.IntVar(&cfg.limiter.burst, "limiter-burst", 10, "Rate limiter maximum burst")
	fs.BoolVar(&cfg.limiter.enabled, "limiter-enabled", true, "Enable rate limiter")
	// Encryption key
	fs.StringVar(&cfg.encryption.key, "encryption-key", os.Getenv("SMARTSAVE_DATA_ENCRYPTION_KEY"), "Hex encoded AES key for stored credentials")
	// CORS configuration
	cfg.cors.trustedOrigins = strings.Fields(getEnv("SMARTSAVE_CORS_TRUSTED_ORIGINS", "http://localhost:5173"))
	fs.Func("cors-trusted-origins", "Trusted CORS origins (space separated)", func(val string) error {
		cfg.cors.trustedOrigins = strings.Fields(val)
		return nil
	})
	// SMTP configuration
	fs.StringVar(&cfg.smtp.host, "smtp-host", os.Getenv("SMARTSAVE_SMTP_HOST"), "SMTP server hostname")
	fs.IntVar(&cfg.smtp.port, "smtp-port", 587, "SMTP server port")
	fs.StringVar(&cfg.smtp.username, "smtp-username", os.Getenv("SMARTSAVE_SMTP_USERNAME"), "SMTP server username")
	fs.StringVar(&cfg.smtp.password, "smtp-password", os.Getenv("SMARTSAVE_SMTP_PASSWORD"), "SMTP server password")
	fs.StringVar(&cfg.smtp.sender, "smtp-sender", os.Getenv("SMARTSAVE_SMTP_SENDER"), "SMTP sender email address")
	fs.StringVar(&cfg.smtp.recipient, "smtp-recipient", os.Getenv("SMARTSAVE_SMTP_RECIPIENT"), "Milestone email recipient (empty disables email)")
	// Scheduler
	fs.StringVar(&cfg.scheduler.refreshInterval, "refresh-interval", "@every 15m", "Dataset refresh schedule")
	fs.IntVar(&cfg.scheduler.startupRetries, "startup-retries", 3, "Dataset load attempts at startup")
	fs.DurationVar(&cfg.scheduler.startupBackoff, "startup-backoff", 2*time.Second, "Linear backoff step between startup attempts")

	fs.BoolVar(&opts.displayVersion, "version", false, "Display version and exit")
	fs.BoolVar(&opts.generateKey, "generate-encryption-key", false, "Print a new encryption key and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, opts, err
	}
	if opts.displayVersion || opts.generateKey {
		return cfg, opts, nil
	}
	return cfg, opts, validateConfig(cfg)
}

// validateConfig rejects settings that would only fail later at runtime.
func validateConfig(cfg config) error {
	v := validator.New()
	v.Check(cfg.port > 0 && cfg.port <= 65535, "port", "must be between 1 and 65535")
	v.Check(cfg.ws.port > 0 && cfg.ws.port <= 65535, "ws-port", "must be between 1 and 65535")
	v.Check(cfg.ws.port != cfg.port, "ws-port", "must differ from port")
	v.Check(validator.PermittedValue(cfg.store.backend, kvstore.Backends...), "storage-backend", "must be one of memory, redis, postgres or sqlite")
	v.Check(cfg.feed.periodMonths > 0, "period-months", "must be greater than zero")
	v.Check(cfg.assistant.chatHistoryLimit >= 0, "chat-history-limit", "must not be negative")
	if cfg.smtp.sender != "" {
		v.Check(validator.Matches(cfg.smtp.sender, validator.EmailRX), "smtp-sender", "must be a valid email address")
	}
	if cfg.smtp.recipient != "" {
		v.Check(validator.Matches(cfg.smtp.recipient, validator.EmailRX), "smtp-recipient", "must be a valid email address")
	}
	if v.Valid() {
		return nil
	}
	keys := make([]string, 0, len(v.Errors))
	for key := range v.Errors {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	problems := make([]string, 0, len(keys))
	for _, key := range keys {
		problems = append(problems, fmt.Sprintf("-%s %s", key, v.Errors[key]))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}

// newApplication wires every dependency described by cfg.
func newApplication(cfg config, logger *zap.Logger) (*application, error) {
	var (
		rdb *redis.Client
		err error
	)
	if cfg.redis.enabled || cfg.store.backend == kvstore.BackendRedis {
		rdb, err = openRedis(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("Redis connection established", zap.String("addr", cfg.redis.addr))
	}

	store, err := openStore(cfg, rdb)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.store.backend, err)
	}
	logger.Info("storage backend ready", zap.String("backend", cfg.store.backend))

	var encryptionKey []byte
	if cfg.encryption.key != "" {
		encryptionKey, err = data.DecodeEncryptionKey(cfg.encryption.key)
		if err != nil {
			return nil, err
		}
	}

	httpClient := httpclient.New(cfg.http_client.timeout, cfg.http_client.retrymax)

	app := &application{
		config:      cfg,
		logger:      logger,
		models:      data.NewModels(store, encryptionKey, cfg.assistant.chatHistoryLimit),
		store:       store,
		dataset:     &dataset{},
		fetcher:     fetcher.New(httpClient, cfg.feed.url, cfg.feed.strictDates, logger.Named("fetcher")),
		assistant:   assistant.NewClient(httpClient, cfg.assistant.url),
		mailer:      mailer.New(cfg.smtp.host, cfg.smtp.port, cfg.smtp.username, cfg.smtp.password, cfg.smtp.sender),
		broadcaster: notifier.NewBroadcaster(),
		sanitizer:   bluemonday.StrictPolicy(),
		RedisDB:     rdb,
		WebSocketUpgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	app.WebSocketUpgrader.CheckOrigin = app.checkWebSocketOrigin

	if cfg.feed.ledgerCSV != "" {
		app.ledger, err = ledger.LoadFile(cfg.feed.ledgerCSV, logger.Named("ledger"))
		if err != nil {
			return nil, err
		}
		logger.Info("ledger loaded",
			zap.String("path", cfg.feed.ledgerCSV),
			zap.Int("expenses", len(app.ledger.Expenses)),
			zap.Int("income", len(app.ledger.Income)),
			zap.Int("refunds", len(app.ledger.Refunds)))
	}

	notifiers := notifier.Multi{}
	if rdb != nil && cfg.redis.enabled {
		app.redisNotifier = notifier.NewRedisNotifier(rdb, logger.Named("notifier"))
		notifiers = append(notifiers, app.redisNotifier)
	} else {
		notifiers = append(notifiers, app.broadcaster)
	}
	if cfg.amqp.url != "" {
		app.amqpClient, err = notifier.NewAMQPClient(cfg.amqp.url, cfg.amqp.exchange, cfg.amqp.queue, logger.Named("amqp"))
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, app.amqpClient)
	}
	if cfg.smtp.recipient != "" && cfg.smtp.host != "" {
		notifiers = append(notifiers, notifier.NewMailNotifier(app.mailer, cfg.smtp.recipient, app.models.Goals.Get))
	}
	app.notifier = notifiers
	return app, nil
}

// close releases the store and broker connections.
func (app *application) close() {
	if app.amqpClient != nil {
		app.amqpClient.Close()
	}
	if err := app.store.Close(); err != nil {
		app.logger.Error("closing store", zap.Error(err))
	}
	if app.RedisDB != nil {
		app.RedisDB.Close()
	}
}

// publishMetrics sets up the expvar variables for the application
// It sets the version, the number of active goroutines, the current Unix
// timestamp and the state of the loaded dataset.
func publishMetrics(app *application) {
	expvar.NewString("version").Set(version)
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("timestamp", expvar.Func(func() any {
		return time.Now().Unix()
	}))
	expvar.Publish("dataset", expvar.Func(func() any {
		collections, loadedAt, ok := app.dataset.snapshot()
		if !ok {
			return map[string]any{"loaded": false}
		}
		return map[string]any{
			"loaded":    true,
			"loaded_at": loadedAt.Unix(),
			"expenses":  len(collections.Expenses),
			"income":    len(collections.Income),
			"refunds":   len(collections.Refunds),
		}
	}))
}

// loadEnvFile loads the .env file at path, if any, so that it can feed the
// flag defaults. Variables already set in the environment win.
func loadEnvFile(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "unable to load %s: %v\n", path, err)
	}
}

// getEnvPath returns the path to the .env file based on the current working directory.
func getEnvPath() string {
	dir, err := os.Getwd()
	if err != nil {
		return ".env"
	}
	if strings.Contains(dir, "cmd/api") || strings.Contains(dir, "cmd") {
		return ".env"
	}
	return filepath.Join("cmd", "api", ".env")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return fallback
}

// openStore() opens the configured key-value backend. SQL backends are
// migrated before use.
func openStore(cfg config, rdb *redis.Client) (kvstore.Store, error) {
	var store kvstore.Store
	switch cfg.store.backend {
	case kvstore.BackendMemory:
		store = kvstore.NewMemoryStore()
	case kvstore.BackendRedis:
		if rdb == nil {
			return nil, errors.New("redis backend needs a redis connection")
		}
		store = kvstore.NewRedisStore(rdb)
	case kvstore.BackendPostgres, kvstore.BackendSQLite:
		db, err := openDB(cfg)
		if err != nil {
			return nil, err
		}
		sqlStore, err := kvstore.NewSQLStore(db, cfg.store.backend)
		if err != nil {
			db.Close()
			return nil, err
		}
		store = sqlStore
	default:
		return nil, fmt.Errorf("%w: %q", kvstore.ErrUnknownBackend, cfg.store.backend)
	}
	if cfg.store.namespace != "" {
		store = kvstore.WithNamespace(store, cfg.store.namespace)
	}
	return store, nil
}

// openDB() runs the migrations and opens a connection pool for the SQL backends.
func openDB(cfg config) (*sql.DB, error) {
	if err := kvstore.RunMigrations(cfg.store.backend, cfg.store.dsn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := sql.Open(cfg.store.backend, cfg.store.dsn)
	if err != nil {
		return nil, err
	}
	if cfg.store.backend == kvstore.BackendSQLite {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.store.maxOpenConns)
		db.SetMaxIdleConns(cfg.store.maxIdleConns)
	}
	duration, err := time.ParseDuration(cfg.store.maxIdleTime)
	if err != nil {
		db.Close()
		return nil, err
	}
	db.SetConnMaxIdleTime(duration)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// openRedis() opens a new Redis connection using the provided configuration.
// It returns a pointer to the Redis client and an error value.
func openRedis(cfg config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.redis.addr,
		Password: cfg.redis.password,
		DB:       cfg.redis.db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}
