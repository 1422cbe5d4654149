package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"trivia-rooms/internal/domain"
	"trivia-rooms/internal/game"
	pgloader "trivia-rooms/internal/infra/postgres"
	pgmigrations "trivia-rooms/internal/infra/postgres/migrations"
	infraredis "trivia-rooms/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestGameEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedBank(t, ctx, pgURL, sampleBank())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	banks := infraredis.NewBankRepository(redisClient, pgloader.NewBankLoader(pool), 5*time.Minute)

	// bank survives the postgres -> redis -> engine path unchanged
	bank, err := banks.GetBank(ctx, "default")
	if err != nil {
		t.Fatalf("get bank: %v", err)
	}
	if len(bank.Questions) != len(sampleBank().Questions) {
		t.Fatalf("expected %d questions, got %d", len(sampleBank().Questions), len(bank.Questions))
	}

	sink := newEventSink()
	engine := game.NewEngine(game.NewRegistry(), banks, sink, game.Settings{
		StartingScore:   7,
		MinPlayers:      1,
		QuestionSeconds: 2,
		PreGameDelay:    10 * time.Millisecond,
		ResultsDelay:    20 * time.Millisecond,
		TickInterval:    20 * time.Millisecond,
	})
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go engine.Run(runCtx)

	engine.CreateRoom(ctx, "H", "R1")
	sink.await(t, game.EventRoomCreated)
	engine.JoinRoom("A", "R1", "Alice")
	sink.await(t, game.EventJoinedRoom)
	engine.StartGame("H", "R1")
	sink.await(t, game.EventNewQuestion)

	engine.SubmitAnswer("A", "R1", sampleBank().Questions[0].CorrectOption)
	sink.await(t, game.EventQuestionResults)
	sink.await(t, game.EventGameEnded)
}

// eventSink implements game.Broadcaster for driving the engine without a
// websocket transport.
type eventSink struct {
	ch chan game.Event
}

func newEventSink() *eventSink {
	return &eventSink{ch: make(chan game.Event, 256)}
}

func (s *eventSink) ToConn(_ string, ev game.Event) { s.ch <- ev }

func (s *eventSink) ToRoom(_ string, ev game.Event) { s.ch <- ev }

func (s *eventSink) ToRoomExcept(_, _ string, ev game.Event) { s.ch <- ev }

func (s *eventSink) Subscribe(_, _ string) {}

func (s *eventSink) Unsubscribe(_, _ string) {}

func (s *eventSink) CloseRoom(_ string) {}

func (s *eventSink) await(t *testing.T, evType string) game.Event {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case ev := <-s.ch:
			if ev.Type == evType {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", evType)
		}
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedBank(t *testing.T, ctx context.Context, dsn string, bank domain.QuestionBank) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(bank)
	if err != nil {
		t.Fatalf("marshal bank: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO question_banks (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, bank.ID, string(data)); err != nil {
		t.Fatalf("insert bank: %v", err)
	}
}

func sampleBank() domain.QuestionBank {
	return domain.QuestionBank{
		ID: "default",
		Questions: []domain.QuestionRecord{
			{ID: 1, Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectOption: 1},
		},
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
