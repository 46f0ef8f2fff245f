package container

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"

	database "github.com/FACorreiaa/go-itinerary-planner/app/db"
	"github.com/FACorreiaa/go-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/auth"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/costs"
	generativeAI "github.com/FACorreiaa/go-itinerary-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/itinerary"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/maps"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/meals"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/mosque"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/pipeline"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/transport"
	"github.com/FACorreiaa/go-itinerary-planner/internal/router"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Container holds all application dependencies
type Container struct {
	Config           *config.Config
	Logger           *slog.Logger
	Metrics          *metrics.AppMetrics
	Pool             *pgxpool.Pool
	Mongo            *mongo.Client
	Orchestrator     *pipeline.Orchestrator
	ItineraryService *itinerary.ServiceImpl
	ItineraryHandler *itinerary.HandlerImpl
}

// NewContainer wires the pipeline and the itinerary store. Metrics must be
// initialised before it is called.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger, Metrics: metrics.Get()}

	orchestrator, err := c.newOrchestrator(ctx)
	if err != nil {
		return nil, err
	}
	c.Orchestrator = orchestrator

	repo, err := c.newRepository(ctx)
	if err != nil {
		c.Close(ctx)
		return nil, err
	}

	var fetcher costs.RateFetcher
	if cfg.Currency.RatesURL != "" {
		fetcher = &costs.HTTPRateFetcher{URL: cfg.Currency.RatesURL, Client: &http.Client{Timeout: 5 * time.Second}}
	}
	rates := costs.NewRateCache(fetcher, cfg.Currency.TTL, nil, logger)

	c.ItineraryService = itinerary.NewServiceImpl(repo, orchestrator, rates, itinerary.Config{
		DraftTTL:      cfg.Itinerary.DraftTTL,
		SweepInterval: cfg.Itinerary.SweepInterval,
	}, c.Metrics, logger)
	c.ItineraryHandler = itinerary.NewHandlerImpl(c.ItineraryService, logger)
	return c, nil
}

// newOrchestrator builds every stage. Without a maps key the transport,
// restaurant and mosque lookups stay unset and those stages pass days through.
func (c *Container) newOrchestrator(ctx context.Context) (*pipeline.Orchestrator, error) {
	cfg, logger := c.Config, c.Logger

	aiClient, err := generativeAI.NewAIClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}
	generator := generativeAI.NewItineraryGenerator(aiClient, logger)

	gm, err := maps.NewClient(cfg.Maps.APIKey, cfg.Maps.RequestsPerSecond)
	if err != nil {
		return nil, err
	}

	var (
		directions  transport.DirectionsLookup
		restaurants meals.RestaurantSource
		nearby      mosque.NearbySearch
		distance    mosque.DistanceLookup
	)
	if gm != nil {
		directions = maps.NewDirections(gm, cfg.Maps.WalkMaxMeters, logger)
		restaurants = meals.NewCachedRestaurantSource(
			maps.NewRestaurants(gm, cfg.Maps.RestaurantRadius, logger),
			cfg.Maps.RestaurantTTL, logger)
		places := maps.NewMosques(gm)
		nearby, distance = places, places
	} else {
		logger.Warn("Maps API key not set, transport, restaurant and mosque lookups are disabled")
	}

	mealPolicy := cfg.Meals
	if mealPolicy.DefaultLunch == 0 {
		mealPolicy = meals.DefaultMealPolicy()
	}
	mosquePolicy := cfg.Mosque
	if mosquePolicy.MaxRadius == 0 {
		mosquePolicy = mosque.DefaultPolicy()
	}

	return pipeline.NewOrchestrator(
		generator,
		transport.NewEnricher(directions, cfg.Maps.DirectionsTimeout, logger),
		meals.NewPlanner(restaurants, mealPolicy, logger),
		mosque.NewEnricher(nearby, distance, mosquePolicy, logger),
		cfg.Pipeline,
		c.Metrics,
		logger,
	), nil
}

func (c *Container) newRepository(ctx context.Context) (itinerary.Repository, error) {
	cfg, logger := c.Config, c.Logger

	switch cfg.Storage.Driver {
	case DriverMemory:
		logger.Warn("Using in-memory itinerary store, data is lost on restart")
		return itinerary.NewMemoryRepository(), nil

	case DriverMongo:
		client, coll, err := itinerary.ConnectMongo(ctx, cfg.Storage.Mongo.URI, cfg.Storage.Mongo.Database)
		if err != nil {
			return nil, err
		}
		c.Mongo = client
		repo := itinerary.NewMongoRepository(coll, logger)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		logger.Info("Using MongoDB itinerary store", slog.String("database", cfg.Storage.Mongo.Database))
		return repo, nil

	case DriverPostgres, "":
		dbConfig, err := database.NewDatabaseConfig(cfg, logger)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
			return nil, err
		}
		pool, err := database.Init(ctx, dbConfig.ConnectionURL, logger)
		if err != nil {
			return nil, err
		}
		c.Pool = pool
		if !database.WaitForDB(ctx, pool, logger) {
			return nil, fmt.Errorf("database not ready")
		}
		return itinerary.NewPostgresRepository(pool, c.Metrics, logger), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Router builds the HTTP routes around the itinerary handler.
func (c *Container) Router() http.Handler {
	return router.SetupRouter(&router.Config{
		ItineraryHandler:       c.ItineraryHandler,
		AuthenticateMiddleware: auth.Authenticate(c.Logger, c.Config.JWT),
		OptionalAuthMiddleware: auth.OptionalAuthenticate(c.Logger, c.Config.JWT),
		AllowedOrigins:         c.Config.Server.AllowedOrigins,
		GenerateRateLimit:      c.Config.Server.GenerateRateLimit,
	})
}

// StartBackground runs the draft sweeper until ctx is done.
func (c *Container) StartBackground(ctx context.Context) {
	go c.ItineraryService.StartDraftSweeper(ctx, c.Config.Itinerary.SweepInterval)
}

// Close releases all resources held by the container
func (c *Container) Close(ctx context.Context) {
	if c.Pool != nil {
		c.Pool.Close()
	}
	if c.Mongo != nil {
		if err := c.Mongo.Disconnect(ctx); err != nil {
			c.Logger.Warn("Failed to disconnect from MongoDB", slog.Any("error", err))
		}
	}
}
