// Command permctl inspects and administers feature permissions.
//
// It builds a permission engine over a SQL user table and Redis, then runs
// one subcommand. Without -redis-addr or REDIS_ADDR it starts an in-process
// miniredis, which is enough for one-shot commands and local demos.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goPerm "github.com/MrEthical07/goPerm"
	"github.com/MrEthical07/goPerm/catalog"
	"github.com/MrEthical07/goPerm/permission"
	"github.com/MrEthical07/goPerm/userstore"
	"github.com/alicebob/miniredis/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type options struct {
	catalogPath string
	driver      string
	dsn         string
	redisAddr   string
	prefix      string
	ttl         time.Duration
	expires     time.Duration
	listenAddr  string
	audit       bool
	strict      bool
	verbose     bool
}

// errDenied makes check commands exit with status 1.
var errDenied = errors.New("denied")

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "permctl: reading .env: %v\n", err)
	}

	var opts options
	flag.StringVar(&opts.catalogPath, "catalog", os.Getenv("PERMCTL_CATALOG"), "feature catalog YAML; built-in catalog when empty")
	flag.StringVar(&opts.driver, "driver", envOr("PERMCTL_DRIVER", "sqlite3"), "database/sql driver: sqlite3 or pgx")
	flag.StringVar(&opts.dsn, "dsn", envOr("PERMCTL_DSN", "permctl.db"), "user database DSN")
	flag.StringVar(&opts.redisAddr, "redis-addr", os.Getenv("REDIS_ADDR"), "redis address; miniredis when empty")
	flag.StringVar(&opts.prefix, "prefix", "perm", "redis key prefix")
	flag.DurationVar(&opts.ttl, "ttl", 30*time.Minute, "permission cache TTL")
	flag.DurationVar(&opts.expires, "expires", 0, "override lifetime for set-overrides; 0 never expires")
	flag.StringVar(&opts.listenAddr, "addr", ":8080", "listen address for serve")
	flag.BoolVar(&opts.audit, "audit", false, "write audit events to stderr as JSON lines")
	flag.BoolVar(&opts.strict, "strict", false, "reject unknown feature and action names in encode and set-overrides")
	flag.BoolVar(&opts.verbose, "v", false, "debug logging")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	logger := newLogger(opts.verbose)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, opts, args, logger)
	switch {
	case err == nil:
	case errors.Is(err, errDenied):
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "permctl: %v\n", err)
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage: permctl [flags] <command> [args]

commands:
  features                          list every feature and action
  level <level>                     list actions granted by a level
  encode <feature=a,b>...           encode overrides
  decode <overrides>                decode overrides
  seed <user> <level>               create or replace an active user
  resolve <user>                    print effective permissions as JSON
  check <user> <feature> <action>   exit 0 when allowed, 1 when denied
  has-level <user> <level>          exit 0 when at or above level, 1 otherwise
  set-level <user> <level>
  set-active <user> <true|false>
  set-overrides <user> <feature=a,b>...
  clear-overrides <user>
  invalidate <user>
  token <user> [actor]              issue a subject token (PERMCTL_JWT_SECRET)
  serve                             serve /metrics and /v1/allowed/{feature}/{action}

flags:
`)
	flag.PrintDefaults()
}

func run(ctx context.Context, opts options, args []string, logger *zap.Logger) error {
	if args[0] == "token" {
		return cmdToken(args[1:])
	}

	db, dialect, err := openDB(ctx, opts.driver, opts.dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	store := userstore.New(db, dialect)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	client, closeRedis, err := openRedis(opts.redisAddr, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	var features []permission.FeatureConfig
	if opts.catalogPath != "" {
		features, err = catalog.LoadFile(opts.catalogPath)
		if err != nil {
			return err
		}
	}

	cfg := goPerm.DefaultConfig()
	cfg.Cache.RedisPrefix = opts.prefix
	cfg.Cache.TTL = opts.ttl
	cfg.Audit.Enabled = opts.audit
	cfg.Overrides.Strict = opts.strict

	builder := goPerm.New().
		WithConfig(cfg).
		WithRedis(client).
		WithFeatures(features).
		WithUserProvider(store).
		WithLogger(logger).
		WithMetricsEnabled(args[0] == "serve").
		WithLatencyHistograms(args[0] == "serve")
	if opts.audit {
		builder = builder.WithAuditSink(goPerm.NewJSONWriterSink(os.Stderr))
	}
	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx = goPerm.WithActorID(ctx, "permctl")

	c := &commands{engine: engine, store: store, opts: opts, logger: logger, out: os.Stdout}
	return c.dispatch(ctx, args)
}

func openDB(ctx context.Context, driver, dsn string) (*sql.DB, userstore.Dialect, error) {
	var dialect userstore.Dialect
	switch driver {
	case "sqlite3":
		dialect = userstore.DialectSQLite
	case "pgx":
		dialect = userstore.DialectPostgres
	default:
		return nil, 0, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, 0, fmt.Errorf("opening database: %w", err)
	}
	if dialect == userstore.DialectSQLite {
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, 0, fmt.Errorf("pinging database: %w", err)
	}
	return db, dialect, nil
}

func openRedis(addr string, logger *zap.Logger) (redis.UniversalClient, func(), error) {
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		logger.Debug("using redis", zap.String("addr", addr))
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("starting miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	logger.Debug("using miniredis", zap.String("addr", mr.Addr()))
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
