package db

import (
	"embed"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ThreeDotsLabs/watermill"
	wmsql "github.com/ThreeDotsLabs/watermill-sql/v3/pkg/sql"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/openmart/martd/internal/core/domain"
	"github.com/openmart/martd/internal/core/ports"
	badgerdb "github.com/openmart/martd/internal/infrastructure/db/badger"
	pgdb "github.com/openmart/martd/internal/infrastructure/db/postgres"
	sqlitedb "github.com/openmart/martd/internal/infrastructure/db/sqlite"
	watermilldb "github.com/openmart/martd/internal/infrastructure/db/watermill"
)

//go:embed sqlite/migration/*
var migrations embed.FS

//go:embed postgres/migration/*
var pgMigration embed.FS

var (
	itemStoreTypes = map[string]func(...interface{}) (domain.ItemRepository, error){
		"badger":   badgerdb.NewItemRepository,
		"sqlite":   sqlitedb.NewItemRepository,
		"postgres": pgdb.NewItemRepository,
	}
	accountStoreTypes = map[string]func(...interface{}) (domain.AccountRepository, error){
		"badger":   badgerdb.NewAccountRepository,
		"sqlite":   sqlitedb.NewAccountRepository,
		"postgres": pgdb.NewAccountRepository,
	}
)

const (
	sqliteDbFile = "sqlite.db"
)

type ServiceConfig struct {
	EventStoreType string
	DataStoreType  string

	EventStoreConfig []interface{}
	DataStoreConfig  []interface{}
}

type service struct {
	eventStore   domain.EventRepository
	itemStore    domain.ItemRepository
	accountStore domain.AccountRepository
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	itemStoreFactory, ok := itemStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	accountStoreFactory, ok := accountStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}

	var eventStore domain.EventRepository
	var itemStore domain.ItemRepository
	var accountStore domain.AccountRepository
	var err error

	switch config.EventStoreType {
	case "badger":
		eventStore, err = badgerdb.NewEventRepository(config.EventStoreConfig...)
		if err != nil {
			return nil, fmt.Errorf("failed to open event store: %s", err)
		}
	case "postgres":
		if len(config.EventStoreConfig) != 2 {
			return nil, fmt.Errorf("invalid event store config for postgres")
		}

		dsn, ok := config.EventStoreConfig[0].(string)
		if !ok {
			return nil, fmt.Errorf("invalid DSN for postgres")
		}

		autoCreate, ok := config.EventStoreConfig[1].(bool)
		if !ok {
			return nil, fmt.Errorf("invalid autocreate flag for postgres")
		}

		db, err := pgdb.OpenDb(dsn, autoCreate)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres db: %s", err)
		}

		publisher, err := wmsql.NewPublisher(
			db,
			wmsql.PublisherConfig{
				SchemaAdapter:        wmsql.DefaultPostgreSQLSchema{},
				AutoInitializeSchema: true,
			},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create event publisher: %s", err)
		}

		eventStore = watermilldb.NewWatermillEventRepository(publisher, db)
	default:
		return nil, fmt.Errorf("unknown event store db type")
	}

	switch config.DataStoreType {
	case "badger":
		itemStore, err = itemStoreFactory(config.DataStoreConfig...)
		if err != nil {
			return nil, fmt.Errorf("failed to open item store: %s", err)
		}
		accountStore, err = accountStoreFactory(config.DataStoreConfig...)
		if err != nil {
			return nil, fmt.Errorf("failed to open account store: %s", err)
		}

	case "postgres":
		if len(config.DataStoreConfig) != 2 {
			return nil, fmt.Errorf("invalid data store config for postgres")
		}

		dsn, ok := config.DataStoreConfig[0].(string)
		if !ok {
			return nil, fmt.Errorf("invalid DSN for postgres")
		}

		autoCreate, ok := config.DataStoreConfig[1].(bool)
		if !ok {
			return nil, fmt.Errorf("invalid autocreate flag for postgres")
		}

		db, err := pgdb.OpenDb(dsn, autoCreate)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres db: %s", err)
		}

		pgDriver, err := migratepg.WithInstance(db, &migratepg.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to init postgres migration driver: %s", err)
		}

		source, err := iofs.New(pgMigration, "postgres/migration")
		if err != nil {
			return nil, fmt.Errorf("failed to embed postgres migrations: %s", err)
		}

		m, err := migrate.NewWithInstance("iofs", source, "postgres", pgDriver)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres migration instance: %s", err)
		}

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, fmt.Errorf("failed to run postgres migrations: %s", err)
		}

		itemStore, err = itemStoreFactory(db)
		if err != nil {
			return nil, fmt.Errorf("failed to open item store: %s", err)
		}
		accountStore, err = accountStoreFactory(db)
		if err != nil {
			return nil, fmt.Errorf("failed to open account store: %s", err)
		}

	case "sqlite":
		if len(config.DataStoreConfig) != 1 {
			return nil, fmt.Errorf("invalid data store config")
		}

		baseDir, ok := config.DataStoreConfig[0].(string)
		if !ok {
			return nil, fmt.Errorf("invalid base directory")
		}

		dbFile := filepath.Join(baseDir, sqliteDbFile)
		db, err := sqlitedb.OpenDb(dbFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %s", err)
		}

		driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to init driver: %s", err)
		}

		source, err := iofs.New(migrations, "sqlite/migration")
		if err != nil {
			return nil, fmt.Errorf("failed to embed migrations: %s", err)
		}

		m, err := migrate.NewWithInstance("iofs", source, "martdb", driver)
		if err != nil {
			return nil, fmt.Errorf("failed to create migration instance: %s", err)
		}

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, fmt.Errorf("failed to run migrations: %s", err)
		}

		itemStore, err = itemStoreFactory(db)
		if err != nil {
			return nil, fmt.Errorf("failed to open item store: %s", err)
		}
		accountStore, err = accountStoreFactory(db)
		if err != nil {
			return nil, fmt.Errorf("failed to open account store: %s", err)
		}
	}

	return &service{
		eventStore:   eventStore,
		itemStore:    itemStore,
		accountStore: accountStore,
	}, nil
}

func (s *service) Events() domain.EventRepository {
	return s.eventStore
}

func (s *service) Items() domain.ItemRepository {
	return s.itemStore
}

func (s *service) Accounts() domain.AccountRepository {
	return s.accountStore
}

func (s *service) Close() {
	s.eventStore.Close()
	s.itemStore.Close()
	s.accountStore.Close()
}
