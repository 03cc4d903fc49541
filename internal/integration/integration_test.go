package integration

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mathquiz-service/internal/app"
	"mathquiz-service/internal/domain"
	"mathquiz-service/internal/game"
	"mathquiz-service/internal/infra/memory"
	mongostore "mathquiz-service/internal/infra/mongo"
	pgstore "mathquiz-service/internal/infra/postgres"
	pgmigrations "mathquiz-service/internal/infra/postgres/migrations"
	infraredis "mathquiz-service/internal/infra/redis"
)

func TestPostgresLeaderboardAndArchive(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	db := migrateDB(t, ctx, pgURL)
	defer db.Close()

	exerciseLeaderboard(t, ctx, pgstore.NewLeaderboardStore(db))

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	archive := pgstore.NewGameArchive(pool)

	missing, err := archive.Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for unknown game, got %v, %v", missing, err)
	}

	record := domain.GameRecord{
		ID:          "game-1",
		UserID:      "u1",
		Username:    "Alice",
		Difficulty:  domain.Expert,
		TotalScore:  72.9,
		Questions:   []domain.Question{{ID: 1, Operand1: 16, Operand2: 4, Operation: domain.Divide, CorrectAnswer: 4, Answered: true, UserAnswer: 4, ElapsedSeconds: 1.6, Score: 24}},
		CompletedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := archive.Record(ctx, record); err != nil {
		t.Fatalf("record: %v", err)
	}
	got, err := archive.Get(ctx, "game-1")
	if err != nil || got == nil {
		t.Fatalf("get archived game: %v, %v", got, err)
	}
	if got.TotalScore != 72.9 || got.Difficulty != domain.Expert || len(got.Questions) != 1 || got.Questions[0].Score != 24 {
		t.Fatalf("unexpected archived game %+v", got)
	}
	if !got.CompletedAt.Equal(record.CompletedAt) {
		t.Fatalf("completion time changed: %v", got.CompletedAt)
	}
}

func TestRedisGameEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	board := app.NewLeaderboardService(infraredis.NewLeaderboardStore(redisClient), 0, 0)
	service := app.NewGameService(
		infraredis.NewGameStore(redisClient, 5*time.Minute),
		memory.NewGameArchive(),
		board,
		game.NewGenerator(rand.NewSource(11)),
		game.Tiered{},
	)

	session, err := service.NewGame(ctx, "u1", "Alice", domain.Novice)
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	for !session.Complete() {
		q, err := service.StartQuestion(ctx, session.ID)
		if err != nil {
			t.Fatalf("start question: %v", err)
		}
		if _, ok, err := service.SubmitAnswer(ctx, session.ID, q.CorrectAnswer); err != nil || !ok {
			t.Fatalf("submit: ok=%v err=%v", ok, err)
		}
		if session, err = service.AdvanceQuestion(ctx, session.ID); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}

	result, err := service.FinishGame(ctx, session.ID)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if result.Entry == nil || result.Entry.Rank != 1 {
		t.Fatalf("expected first place, got %+v", result.Entry)
	}
	if _, err := service.Game(ctx, session.ID); err != domain.ErrGameNotFound {
		t.Fatalf("expected live game to be removed, got %v", err)
	}

	exerciseLeaderboard(t, ctx, infraredis.NewLeaderboardStore(redisClient))
}

func TestMongoLeaderboard(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	uri, cleanup := startMongo(t, ctx)
	defer cleanup()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect mongo: %v", err)
	}
	defer client.Disconnect(ctx)

	store := mongostore.NewLeaderboardStore(client.Database("mathquiz_test"))
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("indexes: %v", err)
	}
	if got, err := store.Get(ctx, domain.Expert, "missing"); err != nil || got != nil {
		t.Fatalf("expected nil, nil for unknown entry, got %v, %v", got, err)
	}
	exerciseLeaderboard(t, ctx, store)
}

// exerciseLeaderboard runs the ranking rules against a real store, using the
// Intermediate bucket so it does not collide with other data in the store.
func exerciseLeaderboard(t *testing.T, ctx context.Context, store app.LeaderboardStore) {
	t.Helper()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := app.NewLeaderboardServiceWithClock(store, 0, 0, func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})
	d := domain.Intermediate

	add := func(user string, score float64) *domain.LeaderboardEntry {
		t.Helper()
		e, err := svc.AddEntry(ctx, user, user, "g", d, score)
		if err != nil {
			t.Fatalf("add %s %.0f: %v", user, score, err)
		}
		return e
	}

	for _, s := range []float64{30, 40, 50} {
		add("Alice", s)
	}
	if add("alice", 60) != nil {
		t.Fatalf("expected 60 to be rejected at the personal cap")
	}
	if add("ALICE", 35) == nil {
		t.Fatalf("expected 35 to replace alice's worst")
	}

	for i := 0; i < 7; i++ {
		add(fmt.Sprintf("user%d", i), float64(10+i))
	}
	page, err := svc.GetLeaderboard(ctx, d, 20)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(page) != 10 {
		t.Fatalf("expected a full bucket, got %d", len(page))
	}
	worst := page[len(page)-1].Score
	if add("zed", worst) != nil {
		t.Fatalf("expected a tie with the worst score to be rejected")
	}
	if e := add("zed", 1); e == nil || e.Rank != 1 {
		t.Fatalf("expected new best at rank 1, got %+v", e)
	}

	entries, err := store.Entries(ctx, d)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 10 {
		t.Fatalf("expected the bucket capped at 10, got %d", len(entries))
	}
	perUser := map[string]int{}
	for i, e := range entries {
		if e.Rank != i+1 {
			t.Fatalf("stored rank %d at position %d", e.Rank, i+1)
		}
		if i > 0 && entries[i-1].Score > e.Score {
			t.Fatalf("entries out of order: %+v", entries)
		}
		perUser[strings.ToLower(e.Username)]++
	}
	for user, n := range perUser {
		if n > 3 {
			t.Fatalf("%s holds %d entries", user, n)
		}
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func startContainer(t *testing.T, ctx context.Context, req tc.ContainerRequest, port string) (tc.Container, string, string) {
	t.Helper()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start %s: %v", req.Image, err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("%s host: %v", req.Image, err)
	}
	mapped, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		t.Fatalf("%s port: %v", req.Image, err)
	}
	return container, host, mapped.Port()
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	container, host, port := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}, "5432/tcp")
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port)
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	container, host, port := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}, "6379/tcp")
	url := fmt.Sprintf("redis://%s:%s", host, port)
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func startMongo(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	container, host, port := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
	}, "27017/tcp")
	uri := fmt.Sprintf("mongodb://%s:%s", host, port)
	return uri, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
