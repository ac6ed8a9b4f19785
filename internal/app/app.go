// Package app wires the service together and owns its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"example.com/abonos/internal/assign"
	"example.com/abonos/internal/auth"
	"example.com/abonos/internal/catalog"
	"example.com/abonos/internal/config"
	"example.com/abonos/internal/domain"
	"example.com/abonos/internal/events"
	"example.com/abonos/internal/fixtures"
	"example.com/abonos/internal/httpapi"
	"example.com/abonos/internal/ledger"
	"example.com/abonos/internal/migrate"
	"example.com/abonos/internal/reconcile"
	"example.com/abonos/internal/store"
)

type App struct {
	cfg config.Config
	log *slog.Logger

	db  *pgxpool.Pool
	rdb *redis.Client
	pub *events.AMQPPublisher

	Ledger     *ledger.Ledger
	Store      *store.Store
	Catalog    *catalog.Catalog
	Engine     *assign.Engine
	Reconciler *reconcile.Reconciler
	Hub        *httpapi.Hub

	srv *http.Server
}

type Options struct {
	// SkipMigrations overrides Postgres.RunMigrations.
	SkipMigrations bool
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger, opts Options) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{cfg: cfg, log: log}

	if cfg.Postgres.RunMigrations && !opts.SkipMigrations {
		if err := migrate.Up(cfg.Postgres.URL, log); err != nil {
			return nil, err
		}
	}

	// --- Postgres ---
	dbpool, err := pgxpool.New(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	a.db = dbpool

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := dbpool.Ping(pingCtx); err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	// --- Redis (optional) ---
	var gate reconcile.Gate
	if cfg.Redis.Enabled {
		a.rdb = redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		if err := a.rdb.Ping(pingCtx).Err(); err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("redis ping (%s db=%d): %w", cfg.Redis.Addr, cfg.Redis.DB, err)
		}
		gate = reconcile.NewRedisGate(a.rdb, cfg.Redis.GateKey, nil)
	}

	// --- Events (optional) ---
	var pub events.Publisher = events.Nop{}
	if cfg.AMQP.URL != "" {
		a.pub, err = events.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Queue, log)
		if err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
		pub = a.pub
	}

	// --- Core ---
	a.Ledger = ledger.New()
	a.Store = store.New(dbpool, a.Ledger, log)
	a.Catalog = catalog.New(a.Ledger, a.Store.Matches, a.Store.Assignments, a.Store.Customers, catalog.TTLs{
		MatchList:         cfg.Cache.MatchList,
		MatchDetail:       cfg.Cache.MatchDetail,
		AssignmentContext: cfg.Cache.AssignmentContext,
		CustomerOptions:   cfg.Cache.CustomerOptions,
		Match:             cfg.Cache.Match,
	})
	a.Engine = assign.NewEngine(a.Store.Assignments, a.Store.Customers,
		assign.WithPublisher(pub),
		assign.WithLogger(log),
	)

	client := fixtures.NewClient(fixtures.Config{
		BaseURL: cfg.Sync.BaseURL,
		APIKey:  cfg.Sync.APIKey,
		Host:    cfg.Sync.Host,
		Timeout: cfg.Sync.Timeout,
	}, log)
	a.Reconciler = reconcile.New(reconcile.Config{
		TeamID:   cfg.Sync.TeamID,
		TeamName: cfg.Sync.TeamName,
		Next:     cfg.Sync.Next,
		Interval: cfg.Sync.Interval,
		Location: cfg.Location(),
	}, client, a.Store.Matches,
		reconcile.WithGate(gate),
		reconcile.WithTransactor(a.Store.DB),
		reconcile.WithPublisher(pub),
		reconcile.WithLogger(log),
	)

	// --- HTTP ---
	authSvc := auth.NewService([]byte(cfg.Auth.Secret), cfg.Auth.TokenTTL)
	a.Hub = httpapi.NewHub(authSvc, log)
	a.Ledger.Subscribe(a.Hub.Notify)

	api := httpapi.New(httpapi.Deps{
		Log:       log,
		Auth:      authSvc,
		Users:     a.Store.Users,
		Reads:     a.Catalog,
		Engine:    a.Engine,
		Matches:   a.Store.Matches,
		Seats:     a.Store.Seats,
		Parking:   a.Store.Parking,
		Customers: a.Store.Customers,
		Totals:    a.Store.Stats,
		Sync:      a.Reconciler,
		Hub:       a.Hub,
		Limiter:   httpapi.NewIPLimiter(cfg.RateLimit.LoginPerWindow, cfg.RateLimit.LoginWindow),
		ClubName:  cfg.Sync.TeamName,
		Location:  cfg.Location(),
	})

	a.srv = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	if err := a.ensureAdmin(ctx); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

// ensureAdmin creates the bootstrap admin when a password is configured and
// the account does not exist yet.
func (a *App) ensureAdmin(ctx context.Context) error {
	if a.cfg.Auth.AdminPassword == "" {
		return nil
	}
	err := a.CreateUser(ctx, a.cfg.Auth.AdminUser, a.cfg.Auth.AdminPassword, domain.RoleAdmin)
	if errors.Is(err, domain.ErrUserExists) {
		return nil
	}
	return err
}

func (a *App) CreateUser(ctx context.Context, username, password string, role domain.Role) error {
	u, err := auth.NewUser(username, password, role)
	if err != nil {
		return err
	}
	if err := a.Store.Users.Create(ctx, u); err != nil {
		return err
	}
	a.log.Info("user created", "username", u.Username, "role", u.Role)
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	a.log.Info("http server starting", "addr", a.cfg.HTTP.Addr)
	a.Catalog.Start()

	g.Go(func() error {
		err := a.srv.ListenAndServe()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		a.log.Info("http server shutting down")
		a.Hub.CloseAll()
		_ = a.srv.Shutdown(shutdownCtx)
		return nil
	})

	if a.cfg.Sync.Enabled {
		w := reconcile.NewWorker(a.Reconciler, a.cfg.Sync.Interval, a.log)
		g.Go(func() error { return w.Run(gctx) })
	}

	err := g.Wait()
	_ = a.Close(context.Background())
	return err
}

// Close releases every connection. It is safe to call on a partially built
// App.
func (a *App) Close(ctx context.Context) error {
	if a.Catalog != nil {
		a.Catalog.Stop()
	}
	if a.pub != nil {
		if err := a.pub.Close(); err != nil {
			a.log.Warn("rabbitmq close", "err", err)
		}
		a.pub = nil
	}
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
		a.rdb = nil
	}
	return nil
}
