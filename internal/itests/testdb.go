package itests

import (
	"QueryFilter/internal"
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
)

const testDBName = "queryfilter_test"

// DeriveTestDSN переписывает DSN на базу queryfilter_test и возвращает
// admin-DSN к базе postgres на том же сервере.
func DeriveTestDSN(baseDSN string) (testDSN, adminDSN, dbName string, err error) {
	u, err := url.Parse(baseDSN)
	if err != nil {
		return "", "", "", fmt.Errorf("parse DSN: %w", err)
	}
	switch u.Scheme {
	case "postgres", "postgresql":
	default:
		return "", "", "", errors.New("only URL DSN supported: postgres://...")
	}
	// тесты дропают базу, поэтому только локальный сервер
	if host := u.Hostname(); host != "localhost" && host != "127.0.0.1" {
		return "", "", "", fmt.Errorf("refuse non-local host for tests: %s", host)
	}

	test, admin := *u, *u
	test.Path = "/" + testDBName
	admin.Path = "/postgres"
	return test.String(), admin.String(), testDBName, nil
}

// testDatabase is a throwaway database created on the admin connection.
type testDatabase struct {
	name     string
	dsn      string
	adminDSN string
}

func (d testDatabase) admin(ctx context.Context, fn func(*pgx.Conn) error) error {
	conn, err := pgx.Connect(ctx, d.adminDSN)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())
	return fn(conn)
}

func (d testDatabase) create() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return d.admin(ctx, func(conn *pgx.Conn) error {
		var exists bool
		err := conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`, d.name).Scan(&exists)
		if err != nil || exists {
			return err
		}
		_, err = conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{d.name}.Sanitize())
		return err
	})
}

func (d testDatabase) drop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return d.admin(ctx, func(conn *pgx.Conn) error {
		// открытые пулы тестов держат коннекты
		_, _ = conn.Exec(ctx, `SELECT pg_terminate_backend(pid) FROM pg_stat_activity
			WHERE datname = $1 AND pid <> pg_backend_pid()`, d.name)
		_, err := conn.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{d.name}.Sanitize())
		return err
	})
}

// migrate applies every migration under <repo>/migrations.
func (d testDatabase) migrate() error {
	root, err := internal.FindRepoRoot()
	if err != nil {
		return fmt.Errorf("repo root not found: %w", err)
	}
	dir, err := filepath.Abs(filepath.Join(root, "migrations"))
	if err != nil {
		return fmt.Errorf("abs migrations: %w", err)
	}

	m, err := migrate.New("file://"+filepath.ToSlash(dir), d.dsn)
	if err != nil {
		return fmt.Errorf("migrate.New: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// SetupAndTeardownTestDB создаёт тестовую БД, накатывает миграции и
// вызывает initFunc с DSN тестовой базы. teardown удаляет базу.
func SetupAndTeardownTestDB(baseDSN string, initFunc func(string) error) (teardown func() error, err error) {
	if os.Getenv("APP_ENV") == "production" {
		return nil, errors.New("APP_ENV=production, aborting tests")
	}
	testDSN, adminDSN, name, err := DeriveTestDSN(baseDSN)
	if err != nil {
		return nil, err
	}
	d := testDatabase{name: name, dsn: testDSN, adminDSN: adminDSN}
	hint := fmt.Sprintf("(ITEST_POSTGRES_DSN -> %s). Ensure Postgres is running", redactDSN(baseDSN))

	if err := d.create(); err != nil {
		return nil, fmt.Errorf("create DB %q: %w %s", name, err, hint)
	}
	if err := d.migrate(); err != nil {
		_ = d.drop()
		return nil, err
	}
	log.Printf("test DB %q created and migrated", name)

	if initFunc != nil {
		if err := initFunc(testDSN); err != nil {
			_ = d.drop()
			return nil, fmt.Errorf("InitPostgres failed: %w %s", err, hint)
		}
	}
	return d.drop, nil
}

func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil || u.User.Username() == "" {
		return dsn
	}
	u.User = url.UserPassword(u.User.Username(), "******")
	return u.String()
}
