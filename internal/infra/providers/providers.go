package providers

import (
	"github.com/bradfitz/gomemcache/memcache"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/opencadastre/cadastre/internal/config"
	"github.com/opencadastre/cadastre/internal/domain"
	"github.com/opencadastre/cadastre/internal/infra/database"
	"github.com/opencadastre/cadastre/internal/infra/repository"
	"github.com/opencadastre/cadastre/internal/service"
	"github.com/opencadastre/cadastre/internal/usecase"
)

// NewDatabase opens a Postgres connection using the configured DSN.
func NewDatabase(conf config.Server) (*gorm.DB, error) {
	return database.NewPostgres(conf.PostgresDsn)
}

// MigrateDatabase applies migrations for the application models.
func MigrateDatabase(db *gorm.DB) error {
	return database.MigratePostgres(db)
}

// NewRedis creates the redis client backing the clock and the event bus.
func NewRedis(conf config.Server) *redis.Client {
	return database.NewRedis(conf.RedisAddr, conf.RedisPassword, conf.RedisDB)
}

// NewMemcache creates a memcache client.
func NewMemcache(addr string) *memcache.Client {
	return database.NewMemcached(addr)
}

// NewRegistry wires the registry state machine to its stores.
func NewRegistry(
	conf domain.Config,
	db *gorm.DB,
	mc *memcache.Client,
	clock *service.ClockService,
	signal *service.SignalService,
) *usecase.RegistryUsecase {
	return usecase.NewRegistryUsecase(
		conf,
		repository.NewRecordRepository(db, mc),
		repository.NewGrantRepository(db),
		repository.NewAttestationRepository(db),
		repository.NewAuthenticatorRepository(db),
		repository.NewCounterRepository(db),
		clock,
		signal,
	)
}
