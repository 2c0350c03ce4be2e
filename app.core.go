package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type AppProvider interface {
	Run() error
	Serve() func() error
	Stop(context.Context, context.Context) func() error
}

type App struct {
	logger         *zap.Logger
	config         *Config
	server         *http.Server
	cleanups       []func() error
	queueConsumers []func(context.Context) error
}

// NewApp provides an instance of App.
func NewApp() (AppProvider, error) {
	config, err := LoadAndInitConfigs(GitCommit, GitTag, BuildTime)
	if err != nil {
		return nil, fmt.Errorf("failed to setup app configuration: %w", err)
	}

	clock := NewClock(config.IsProduction)
	logWriter := NewRSyncWriter(config, clock)
	logger, flusher := SetupLogging(config, logWriter, NewTickClock(clock))

	app := &App{
		logger:   logger,
		config:   config,
		cleanups: []func() error{logWriter.Close, flusher},
	}

	storage, queue, err := app.setupStorage(context.Background())
	if err != nil {
		app.Clean()
		return nil, err
	}

	bookService := NewBookService(logger, clock, NewIDsHandler(), storage, queue)
	apiService := NewAPIHandler(
		logger,
		config,
		&Statistics{
			version:   config.GitTag,
			container: IsAppRunningInDocker(),
			started:   clock.Now(),
			runtime:   runtime.Version(),
			platform:  runtime.GOOS + "/" + runtime.GOARCH,
		},
		clock,
		NewIDsHandler(),
		bookService,
	)

	// Use git commit in case the tag is not set.
	if config.GitTag == "" {
		apiService.stats.version = config.GitCommit
	}

	app.server = NewServer(config, apiService)
	return app, nil
}

// NewServer builds the api server definition with all routes and their middlewares.
func NewServer(config *Config, api *APIHandler) *http.Server {
	middlewaresPublic, middlewaresOps := api.MiddlewaresStacks()

	router := api.SetupRoutes(httprouter.New(),
		&MiddlewareMap{
			public: middlewaresPublic.Chain,
			ops:    middlewaresOps.Chain,
		},
	)

	// Wrap the router with the default http timeout handler.
	routerWithTimeout := http.TimeoutHandler(
		router,
		config.Server.RequestTimeout,
		"Timeout. Processing taking too long. Please reach out to support.")

	return &http.Server{
		Addr:           net.JoinHostPort(config.Server.Host, config.Server.Port),
		Handler:        routerWithTimeout,
		ReadTimeout:    config.Server.ReadTimeout,
		WriteTimeout:   config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // Max headers size : 1MB
		ConnContext:    SaveConnInContext,
	}
}

// setupStorage connects to the configured primary storage and, when
// replication is enabled, to the redis queue and the boltdb replica.
// Every opened client registers its close function into the cleanups.
func (app *App) setupStorage(ctx context.Context) (BookStorage, Queuer, error) {
	config := app.config
	var redisClient *redis.Client
	if config.RedisRequired() {
		client, err := GetRedisClient(config)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis server: %w", err)
		}
		redisClient = client
		app.cleanups = append(app.cleanups, client.Close)
	}

	var storage BookStorage
	switch config.Storage.Driver {
	case RedisDriver:
		storage = NewRedisBookStorage(app.logger, redisClient)
	case PostgresDriver:
		pool, err := GetPostgresPool(ctx, config)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres server: %w", err)
		}
		app.cleanups = append(app.cleanups, closePool(pool))
		storage = NewPostgresBookStorage(app.logger, pool)
	case BoltDriver:
		client, err := GetBoltDBClient(config)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open boltdb file: %w", err)
		}
		app.cleanups = append(app.cleanups, client.Close)
		storage = NewBoltBookStorage(app.logger, &config.BoltDB, client)
	case MongoDriver:
		client, err := GetMongoClient(ctx, config)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to mongodb server: %w", err)
		}
		app.cleanups = append(app.cleanups, func() error { return client.Disconnect(context.Background()) })
		storage = NewMongoBookStorage(app.logger, &config.Mongo, client)
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
	}

	if !config.Storage.Replicate {
		return storage, nil, nil
	}

	replica, err := GetBoltDBClient(config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open boltdb replica file: %w", err)
	}
	app.cleanups = append(app.cleanups, replica.Close)

	queue := NewRedisQueue(redisClient)
	consumer := NewBoltDBConsumer(app.logger, queue, NewBoltBookStorage(app.logger, &config.BoltDB, replica))
	app.queueConsumers = append(app.queueConsumers, func(ctx context.Context) error {
		return consumer.Consume(ctx, CreateQueue, UpdateQueue, DeleteQueue)
	})
	return storage, queue, nil
}

func closePool(pool *pgxpool.Pool) func() error {
	return func() error {
		pool.Close()
		return nil
	}
}

// Run starts the api web server and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(app.ConsumeQueues(gCtx, g))
	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.logger.Info("api server stopped",
		zap.String("app.host", app.config.Server.Host),
		zap.String("app.port", app.config.Server.Port),
		zap.Error(err),
	)
	return err
}

// Clean calls all registered cleanups functions in reverse order
// so the logging sink is the last to be closed.
func (app *App) Clean() {
	for i := len(app.cleanups) - 1; i >= 0; i-- {
		if err := app.cleanups[i](); err != nil {
			fmt.Println("error during app cleanup: ", err)
		}
	}
}

// Serve starts the api web server. It returned error
// will be caught by the errorgroup.
func (app *App) Serve() func() error {
	return func() error {
		app.logger.Info("api server starting",
			zap.String("app.host", app.config.Server.Host),
			zap.String("app.port", app.config.Server.Port),
			zap.String("storage.driver", app.config.Storage.Driver),
			zap.Bool("storage.replicate", app.config.Storage.Replicate),
		)
		err := app.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return err
	}
}

// Stop listens for the group context and triggers the server graceful shutdown.
// It states the reason of its call. We proceed with a brutal shutdown if the
// the graceful did not complete successfully. We explicitly return `nil` to
// allow the errorgroup catches only the `Serve` method result.
func (app *App) Stop(nCtx, gCtx context.Context) func() error {
	return func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			app.logger.Info("api server stopping. reason: requested to stop")
		} else {
			app.logger.Info("api server stopping. reason: errored at running")
		}

		sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		err := app.server.Shutdown(sCtx)
		switch {
		case err == nil, errors.Is(err, http.ErrServerClosed):
			app.logger.Info("api server graceful shutdown succeeded")
		case errors.Is(err, context.DeadlineExceeded):
			app.logger.Info("api server graceful shutdown timed out")
		default:
			app.logger.Info("api server graceful shutdown failed", zap.Error(err))
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Info("api server going to force shutdown", zap.Error(app.server.Close()))
		}
		return nil
	}
}

// ConsumeQueues runs all queue consumers into separate controlled goroutines.
func (app *App) ConsumeQueues(gCtx context.Context, g *errgroup.Group) func() error {
	return func() error {
		for _, consume := range app.queueConsumers {
			consume := consume
			g.Go(func() error {
				return consume(gCtx)
			})
		}
		return nil
	}
}
