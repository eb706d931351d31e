package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openmart/martd/internal/core/application"
	"github.com/openmart/martd/internal/core/ports"
	httpcustody "github.com/openmart/martd/internal/infrastructure/custody/httpclient"
	inmemorycustody "github.com/openmart/martd/internal/infrastructure/custody/inmemory"
	"github.com/openmart/martd/internal/infrastructure/db"
	inmemorylivestore "github.com/openmart/martd/internal/infrastructure/live-store/inmemory"
	redislivestore "github.com/openmart/martd/internal/infrastructure/live-store/redis"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	supportedEventDbs = supportedType{
		"badger":   {},
		"postgres": {},
	}
	supportedDbs = supportedType{
		"badger":   {},
		"sqlite":   {},
		"postgres": {},
	}
	supportedLiveStores = supportedType{
		"inmemory": {},
		"redis":    {},
	}
	supportedCustodyTypes = supportedType{
		"inmemory": {},
		"http":     {},
	}
)

type Config struct {
	Datadir  string
	Port     uint32
	LogLevel int

	DbType              string
	EventDbType         string
	DbDir               string
	DbUrl               string
	EventDbUrl          string
	EventDbDir          string
	LiveStoreType       string
	RedisUrl            string
	RedisTxNumOfRetries int

	CustodyType           string
	CustodyRegistryUrl    string
	CustodyRequestTimeout int64

	FeeAccount    string
	FeePercent    uint64
	EscrowAccount string

	repo      ports.RepoManager
	svc       application.Service
	custody   ports.CustodyService
	liveStore ports.LiveStore
}

func (c *Config) String() string {
	json, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	defaultDatadir               = appDataDir("martd")
	DefaultPort                  = 7080
	defaultDbType                = "badger"
	defaultEventDbType           = "badger"
	defaultLiveStoreType         = "inmemory"
	defaultCustodyType           = "inmemory"
	defaultRedisTxNumOfRetries   = 10
	defaultLogLevel              = 4
	defaultFeePercent            = 1
	defaultFeeAccount            = "marketplace-operator"
	defaultEscrowAccount         = "marketplace-escrow"
	defaultCustodyRequestTimeout = 15 // seconds
)

// env returns a list of strings prefixed with `MARTD_`.
// This is used as a syntax sugar for defining env vars.
func env(values ...string) []string {
	envs := make([]string, len(values))

	for i, value := range values {
		envs[i] = fmt.Sprintf("MARTD_%s", value)
	}

	return envs
}

var (
	Datadir = &cli.StringFlag{
		Usage: "Directory to store data",
		Name:  "datadir", EnvVars: env("DATADIR"),
		Value: defaultDatadir,
	}

	Port = &cli.UintFlag{
		Usage: "Port to listen on",
		Name:  "port", EnvVars: env("PORT"),
		Value: uint(DefaultPort),
	}

	LogLevel = &cli.IntFlag{
		Usage: "Logging level (0-6, where 6 is trace)",
		Name:  "log-level", EnvVars: env("LOG_LEVEL"),
		Value: defaultLogLevel,
	}

	DbType = &cli.StringFlag{
		Usage: "Database type (postgres, sqlite, badger)",
		Name:  "db-type", EnvVars: env("DB_TYPE"),
		Value: defaultDbType,
	}

	DbUrl = &cli.StringFlag{
		Usage: "Postgres connection url if MARTD_DB_TYPE is set to postgres",
		Name:  "pg-db-url", EnvVars: env("PG_DB_URL"),
	}

	EventDbType = &cli.StringFlag{
		Usage: "Event database type (postgres, badger)",
		Name:  "event-db-type", EnvVars: env("EVENT_DB_TYPE"),
		Value: defaultEventDbType,
	}

	EventDbUrl = &cli.StringFlag{
		Usage: "Postgres connection url if MARTD_EVENT_DB_TYPE is set to postgres",
		Name:  "pg-event-db-url", EnvVars: env("PG_EVENT_DB_URL"),
	}

	LiveStoreType = &cli.StringFlag{
		Usage: "Cache service type (redis, inmemory)",
		Name:  "live-store-type", EnvVars: env("LIVE_STORE_TYPE"),
		Value: defaultLiveStoreType,
	}

	RedisUrl = &cli.StringFlag{
		Usage: "Redis db connection url if MARTD_LIVE_STORE_TYPE is set to redis",
		Name:  "redis-url", EnvVars: env("REDIS_URL"),
	}

	RedisTxNumOfRetries = &cli.IntFlag{
		Usage: "Maximum number of retries for Redis write operations in case of conflicts",
		Name:  "redis-num-of-retries", EnvVars: env("REDIS_NUM_OF_RETRIES"),
		Value: defaultRedisTxNumOfRetries,
	}

	CustodyType = &cli.StringFlag{
		Usage: "Asset registry type (inmemory, http)",
		Name:  "custody-type", EnvVars: env("CUSTODY_TYPE"),
		Value: defaultCustodyType,
	}

	CustodyRegistryUrl = &cli.StringFlag{
		Usage: "Asset registry url if MARTD_CUSTODY_TYPE is set to http",
		Name:  "custody-registry-url", EnvVars: env("CUSTODY_REGISTRY_URL"),
	}

	CustodyRequestTimeout = &cli.Int64Flag{
		Usage: "Timeout in seconds for requests towards the asset registry",
		Name:  "custody-request-timeout", EnvVars: env("CUSTODY_REQUEST_TIMEOUT"),
		Value: int64(defaultCustodyRequestTimeout),
	}

	FeeAccount = &cli.StringFlag{
		Usage: "Identity collecting marketplace fees",
		Name:  "fee-account", EnvVars: env("FEE_ACCOUNT"),
		Value: defaultFeeAccount,
	}

	FeePercent = &cli.Uint64Flag{
		Usage: "Fee percentage added on top of the listing price",
		Name:  "fee-percent", EnvVars: env("FEE_PERCENT"),
		Value: uint64(defaultFeePercent),
	}

	EscrowAccount = &cli.StringFlag{
		Usage: "Reserved identity holding custody of listed assets",
		Name:  "escrow-account", EnvVars: env("ESCROW_ACCOUNT"),
		Value: defaultEscrowAccount,
	}
)

var Flags = []cli.Flag{
	Datadir,
	Port,
	LogLevel,
	DbType,
	DbUrl,
	EventDbType,
	EventDbUrl,
	LiveStoreType,
	RedisUrl,
	RedisTxNumOfRetries,
	CustodyType,
	CustodyRegistryUrl,
	CustodyRequestTimeout,
	FeeAccount,
	FeePercent,
	EscrowAccount,
}

func LoadConfig(c *cli.Context) (*Config, error) {
	if err := initDatadir(c); err != nil {
		return nil, fmt.Errorf("failed to create datadir: %s", err)
	}

	dbPath := filepath.Join(c.String(Datadir.Name), "db")

	var eventDbUrl string
	if c.String(EventDbType.Name) == "postgres" {
		eventDbUrl = c.String(EventDbUrl.Name)
		if eventDbUrl == "" {
			return nil, fmt.Errorf("event db type set to 'postgres' but event db url is missing")
		}
	}

	var dbUrl string
	if c.String(DbType.Name) == "postgres" {
		dbUrl = c.String(DbUrl.Name)
		if dbUrl == "" {
			return nil, fmt.Errorf("db type set to 'postgres' but db url is missing")
		}
	}

	var redisUrl string
	if c.String(LiveStoreType.Name) == "redis" {
		redisUrl = c.String(RedisUrl.Name)
		if redisUrl == "" {
			return nil, fmt.Errorf("live store type set to 'redis' but redis url is missing")
		}
	}

	var custodyRegistryUrl string
	if c.String(CustodyType.Name) == "http" {
		custodyRegistryUrl = c.String(CustodyRegistryUrl.Name)
		if custodyRegistryUrl == "" {
			return nil, fmt.Errorf("custody type set to 'http' but registry url is missing")
		}
	}

	return &Config{
		Datadir:               c.String(Datadir.Name),
		Port:                  uint32(c.Uint(Port.Name)),
		LogLevel:              c.Int(LogLevel.Name),
		DbType:                c.String(DbType.Name),
		EventDbType:           c.String(EventDbType.Name),
		DbDir:                 dbPath,
		DbUrl:                 dbUrl,
		EventDbDir:            dbPath,
		EventDbUrl:            eventDbUrl,
		LiveStoreType:         c.String(LiveStoreType.Name),
		RedisUrl:              redisUrl,
		RedisTxNumOfRetries:   c.Int(RedisTxNumOfRetries.Name),
		CustodyType:           c.String(CustodyType.Name),
		CustodyRegistryUrl:    custodyRegistryUrl,
		CustodyRequestTimeout: c.Int64(CustodyRequestTimeout.Name),
		FeeAccount:            c.String(FeeAccount.Name),
		FeePercent:            c.Uint64(FeePercent.Name),
		EscrowAccount:         c.String(EscrowAccount.Name),
	}, nil
}

func initDatadir(c *cli.Context) error {
	datadir := c.String(Datadir.Name)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0o755)
	}
	return nil
}

func appDataDir(appName string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, "."+appName)
}

func (c *Config) Validate() error {
	if !supportedEventDbs.supports(c.EventDbType) {
		return fmt.Errorf(
			"event db type not supported, please select one of: %s",
			supportedEventDbs,
		)
	}
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedLiveStores.supports(c.LiveStoreType) {
		return fmt.Errorf(
			"live store type not supported, please select one of: %s",
			supportedLiveStores,
		)
	}
	if !supportedCustodyTypes.supports(c.CustodyType) {
		return fmt.Errorf(
			"custody type not supported, please select one of: %s",
			supportedCustodyTypes,
		)
	}
	if c.FeeAccount == "" {
		return fmt.Errorf("missing fee account")
	}
	if c.EscrowAccount == "" {
		return fmt.Errorf("missing escrow account")
	}
	if c.FeeAccount == c.EscrowAccount {
		return fmt.Errorf("fee account and escrow account must be distinct")
	}
	if err := c.custodyService(); err != nil {
		return err
	}
	if err := c.liveStoreService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) CustodyService() ports.CustodyService {
	return c.custody
}

func (c *Config) RepoManager() (ports.RepoManager, error) {
	if c.repo == nil {
		if err := c.repoManager(); err != nil {
			return nil, err
		}
	}
	return c.repo, nil
}

func (c *Config) repoManager() error {
	var svc ports.RepoManager
	var err error
	var eventStoreConfig []interface{}
	var dataStoreConfig []interface{}
	logger := log.New()

	switch c.EventDbType {
	case "badger":
		eventStoreConfig = []interface{}{c.EventDbDir, logger}
	case "postgres":
		eventStoreConfig = []interface{}{c.EventDbUrl, true}
	default:
		return fmt.Errorf("unknown event db type")
	}

	switch c.DbType {
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	case "sqlite":
		dataStoreConfig = []interface{}{c.DbDir}
	case "postgres":
		dataStoreConfig = []interface{}{c.DbUrl, true}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err = db.NewService(db.ServiceConfig{
		EventStoreType:   c.EventDbType,
		DataStoreType:    c.DbType,
		EventStoreConfig: eventStoreConfig,
		DataStoreConfig:  dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) custodyService() error {
	var svc ports.CustodyService
	var err error
	switch c.CustodyType {
	case "inmemory":
		svc = inmemorycustody.NewCustodyService(c.EscrowAccount)
	case "http":
		svc, err = httpcustody.NewCustodyService(
			c.CustodyRegistryUrl, time.Duration(c.CustodyRequestTimeout)*time.Second,
		)
	default:
		err = fmt.Errorf("unknown custody type")
	}
	if err != nil {
		return err
	}

	c.custody = svc
	return nil
}

func (c *Config) liveStoreService() error {
	var liveStoreSvc ports.LiveStore
	var err error
	switch c.LiveStoreType {
	case "inmemory":
		liveStoreSvc = inmemorylivestore.NewLiveStore()
	case "redis":
		redisOpts, err := redis.ParseURL(c.RedisUrl)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(redisOpts)
		liveStoreSvc = redislivestore.NewLiveStore(rdb, c.RedisTxNumOfRetries)
	default:
		err = fmt.Errorf("unknown liveStore type")
	}

	if err != nil {
		return err
	}

	c.liveStore = liveStoreSvc
	return nil
}

func (c *Config) appService() error {
	if _, err := c.RepoManager(); err != nil {
		return err
	}
	if c.custody == nil {
		if err := c.custodyService(); err != nil {
			return err
		}
	}
	if c.liveStore == nil {
		if err := c.liveStoreService(); err != nil {
			return err
		}
	}

	svc, err := application.NewService(
		c.repo, c.custody, c.liveStore,
		c.FeeAccount, c.FeePercent, c.EscrowAccount,
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
