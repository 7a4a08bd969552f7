package db

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Config struct {
	User string
	Pass string
	Host string
	Name string
	Port int
}

func (c Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.Host, c.User, c.Pass, c.Name, c.Port)
}

func NewConnection(cfg Config) (*sqlx.DB, error) {
	log.Info("connecting to database...")
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}

	log.Info("verifying connection...")
	if err := verify(db); err != nil {
		return nil, err
	}

	log.Info("verified postgres connection")
	return db, nil
}

// verify pings db and closes it when it does not answer.
func verify(db *sqlx.DB) error {
	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.WithError(closeErr).Warn("close postgres after failed ping")
		}
		return errors.Wrap(err, "ping postgres")
	}
	return nil
}

// Migrate brings the schema up to the latest embedded migration.
func Migrate(db *sqlx.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return errors.Wrap(err, "open embedded migrations")
	}

	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return errors.Wrap(err, "create migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return errors.Wrap(err, "create migrator")
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "run migrations")
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return errors.Wrap(err, "read schema version")
	}

	log.Infof("database schema at version %d (dirty: %t)", version, dirty)
	return nil
}
