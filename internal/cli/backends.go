package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mathquiz-service/internal/app"
	"mathquiz-service/internal/config"
	"mathquiz-service/internal/game"
	"mathquiz-service/internal/infra/memory"
	mongostore "mathquiz-service/internal/infra/mongo"
	pgstore "mathquiz-service/internal/infra/postgres"
	redisstore "mathquiz-service/internal/infra/redis"
)

// backends holds the connections opened for the configured stores.
type backends struct {
	redis *redis.Client
	bun   *bun.DB
	pool  *pgxpool.Pool
	mongo *mongo.Client

	leaderboard app.LeaderboardStore
	games       app.GameRepository
	archive     app.GameArchive
}

func newBackends(ctx context.Context, cfg config.Config) (_ *backends, err error) {
	b := &backends{}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	if cfg.Postgres.URL != "" {
		if b.bun, err = openBun(cfg); err != nil {
			return nil, err
		}
		if err = migrateDB(ctx, b.bun); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		if b.pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL); err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
	}

	switch store := cfg.LeaderboardStore(); store {
	case config.StoreMemory:
		b.leaderboard = memory.NewLeaderboardStore()
	case config.StoreRedis:
		if b.redis == nil {
			return nil, fmt.Errorf("leaderboard store %q needs redis.addr", store)
		}
		b.leaderboard = redisstore.NewLeaderboardStore(b.redis)
	case config.StorePostgres:
		if b.bun == nil {
			return nil, fmt.Errorf("leaderboard store %q needs postgres.url", store)
		}
		b.leaderboard = pgstore.NewLeaderboardStore(b.bun)
	case config.StoreMongo:
		if cfg.Mongo.URI == "" {
			return nil, fmt.Errorf("leaderboard store %q needs mongo.uri", store)
		}
		if b.mongo, err = mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI)); err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		if err = b.mongo.Ping(ctx, nil); err != nil {
			return nil, fmt.Errorf("ping mongo: %w", err)
		}
		lb := mongostore.NewLeaderboardStore(b.mongo.Database(cfg.MongoDatabase()))
		if err = lb.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		b.leaderboard = lb
	default:
		return nil, fmt.Errorf("unknown leaderboard store %q", store)
	}

	if b.redis != nil {
		b.games = redisstore.NewGameStore(b.redis, config.TTLDuration(cfg.Redis.TTL, 30*time.Minute))
	} else {
		b.games = memory.NewGameStore()
	}

	if b.pool != nil {
		b.archive = pgstore.NewGameArchive(b.pool)
	} else {
		log.Printf("postgres not configured, finished games are kept in memory")
		b.archive = memory.NewGameArchive()
	}
	return b, nil
}

func (b *backends) gameService(cfg config.Config) (*app.GameService, error) {
	formula, err := game.FormulaByName(cfg.Game.Scoring)
	if err != nil {
		return nil, err
	}
	board := app.NewLeaderboardService(b.leaderboard, cfg.Leaderboard.MaxEntries, cfg.Leaderboard.MaxPerUser)
	return app.NewGameService(b.games, b.archive, board, game.NewSeededGenerator(cfg.Game.Seed), formula), nil
}

func (b *backends) Close() {
	if b.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.mongo.Disconnect(ctx); err != nil {
			log.Printf("disconnect mongo: %v", err)
		}
	}
	if b.pool != nil {
		b.pool.Close()
	}
	if b.bun != nil {
		b.bun.Close()
	}
	if b.redis != nil {
		b.redis.Close()
	}
}
