package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// DatabaseConfig describes the idempotency store connection.
//
// Postgres needs the full set of fields. For sqlite only the driver matters;
// an empty name selects an in-memory database.
type DatabaseConfig struct {
	Name     string `env:"SIGNET_DATABASE_NAME" env-default:""`
	Schema   string `env:"SIGNET_DATABASE_SCHEMA" env-default:""`
	Driver   string `env:"SIGNET_DATABASE_DRIVER" env-default:"postgres"`
	Username string `env:"SIGNET_DATABASE_USERNAME" env-default:"postgres"`
	Password string `env:"SIGNET_DATABASE_PASSWORD" env-default:""`
	Host     string `env:"SIGNET_DATABASE_HOST" env-default:"localhost"`
	Port     string `env:"SIGNET_DATABASE_PORT" env-default:"5432"`
}

// ParseConnectionString parses a PostgreSQL URI or a sqlite file URI and
// returns a DatabaseConfig.
func ParseConnectionString(connStr string) (DatabaseConfig, error) {
	// SQLite detection: starts with "file:"
	if strings.HasPrefix(connStr, "file:") {
		parts := strings.SplitN(connStr[5:], "?", 2)
		return DatabaseConfig{
			Name:   parts[0],
			Driver: "sqlite",
		}, nil
	}

	parsedURL, err := url.Parse(connStr)
	if err != nil {
		return DatabaseConfig{}, fmt.Errorf("invalid connection string: %w", err)
	}

	if parsedURL.Scheme != "postgres" && parsedURL.Scheme != "postgresql" {
		return DatabaseConfig{}, fmt.Errorf("unsupported scheme: %s", parsedURL.Scheme)
	}

	username := ""
	password := ""
	if user := parsedURL.User; user != nil {
		username = user.Username()
		password, _ = user.Password()
	}

	port := parsedURL.Port()
	if port == "" {
		port = "5432" // default PostgreSQL port
	}

	cnf := DatabaseConfig{
		Name:     strings.TrimPrefix(parsedURL.Path, "/"),
		Driver:   "postgres",
		Username: username,
		Password: password,
		Host:     parsedURL.Hostname(),
		Port:     port,
	}
	if s := parsedURL.Query().Get("search_path"); s != "" {
		cnf.Schema = s
	}

	return cnf, nil
}

func ConnectToDB(cnf DatabaseConfig, logger Logger) (*gorm.DB, error) {
	logger = logger.NewSystem("database")
	switch cnf.Driver {
	case "postgres":
		return connectToPostgresql(cnf, logger)
	case "sqlite", "":
		return connectToSqlite(cnf, logger)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cnf.Driver)
	}
}

func connectToPostgresql(cnf DatabaseConfig, logger Logger) (*gorm.DB, error) {
	logger.Info("connecting to Postgresql")
	if err := ensurePostgresqlSchema(cnf, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure Postgresql schema: %w", err)
	}

	if err := migratePostgres(cnf, logger); err != nil {
		return nil, fmt.Errorf("failed to apply Postgresql migrations: %w", err)
	}

	dsn, err := postgresqlDbUrl(cnf)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: cnf.Schema + ".", // schema name
		}})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func connectToSqlite(cnf DatabaseConfig, logger Logger) (*gorm.DB, error) {
	var dsn string
	if cnf.Name != "" {
		logger.Info("connecting to sqlite", "name", cnf.Name)
		dsn = fmt.Sprintf("file:%s?cache=shared", cnf.Name)
	} else {
		logger.Info("connecting to in-memory sqlite")
		dsn = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: cnf.Schema + ".", // schema name
		}})
	if err != nil {
		return nil, err
	}

	if err := migrateSqlite(db); err != nil {
		return nil, err
	}
	logger.Info("sqlite auto-migration complete")

	return db, nil
}

func postgresqlDbUrl(cnf DatabaseConfig) (string, error) {
	switch cnf.Driver {
	case "postgres":
		dsn := fmt.Sprintf(
			"user=%s password=%s host=%s port=%s dbname=%s sslmode=disable",
			cnf.Username, cnf.Password, cnf.Host, cnf.Port, cnf.Name,
		)

		if cnf.Schema != "" {
			dsn = fmt.Sprintf("%s search_path=%s", dsn, cnf.Schema)
		}

		return dsn, nil

	default:
		return "", fmt.Errorf("unsupported driver: %s", cnf.Driver)
	}
}

func ensurePostgresqlSchema(cnf DatabaseConfig, logger Logger) error {
	if cnf.Schema == "" {
		logger.Info("no schema specified, skipping schema creation")
		return nil
	}

	dbConf := cnf
	dbConf.Schema = ""
	dsn, err := postgresqlDbUrl(dbConf)
	if err != nil {
		return err
	}

	db, err := sqlx.Connect(dbConf.Driver, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	queryDbCheck := fmt.Sprintf("SELECT 1 FROM information_schema.schemata WHERE schema_name='%s'", cnf.Schema)
	if res, err := db.Exec(queryDbCheck); err != nil {
		return fmt.Errorf("error while checking schema existance: %s", err.Error())
	} else if rows, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("error while checking schema existance: %s", err.Error())
	} else if rows > 0 {
		logger.Info("schema already exists", "schema", cnf.Schema)
		return nil
	}

	if _, err = db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", cnf.Schema)); err != nil {
		return fmt.Errorf("error while creating schema: %s", err.Error())
	}

	logger.Info("schema created", "schema", cnf.Schema)
	return nil
}

func migratePostgres(cnf DatabaseConfig, logger Logger) error {
	dsn, err := postgresqlDbUrl(cnf)
	if err != nil {
		return err
	}

	db, err := goose.OpenDBWithDriver(cnf.Driver, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if cnf.Schema != "" {
		if _, err := db.Exec(fmt.Sprintf("SET search_path TO %s", cnf.Schema)); err != nil {
			return fmt.Errorf("failed to set search path: %v", err)
		}
	}

	logger.Info("applying database migrations")
	goose.SetBaseFS(embedMigrations)
	if err := goose.Up(db, "config/migrations/"+cnf.Driver); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Info("applied migrations")
	return nil
}

func migrateSqlite(db *gorm.DB) error {
	return db.AutoMigrate(&IdempotencyRecord{})
}
