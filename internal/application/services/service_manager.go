package services

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/adrata/backend/internal/config"
	"github.com/adrata/backend/internal/logging"
	"github.com/adrata/backend/pkg/enrichment"
	"github.com/adrata/backend/pkg/rules"
)

const memoryCacheCleanup = 10 * time.Minute

// ServiceManager wires every service against one database handle.
type ServiceManager struct {
	db     *sql.DB
	cfg    *config.Config
	cache  enrichment.Cache
	logger *zap.Logger

	Registry    *enrichment.Registry
	BrightData  *enrichment.BrightDataClient
	Cleanup     *CleanupService
	Migration   *MigrationService
	Diagnostics *DiagnosticsService
	Enrichment  *EnrichmentService
	BuyerGroups *BuyerGroupService
	Import      *ImportService
	Seeder      *DemoSeeder
	Users       *UserService
}

// NewEnrichmentCache opens the SQLite cache when a path is configured and
// falls back to an in-memory cache otherwise.
func NewEnrichmentCache(cfg config.EnrichmentConfig) (enrichment.Cache, error) {
	if cfg.CachePath == "" {
		return enrichment.NewMemoryCache(cfg.CacheTTL, memoryCacheCleanup), nil
	}
	return enrichment.OpenSQLiteCache(cfg.CachePath, cfg.CacheTTL)
}

// NewEnrichmentRegistry registers every provider. Vendors without an API key
// report themselves unavailable and are skipped at run time.
func NewEnrichmentRegistry(cfg config.EnrichmentConfig, cache enrichment.Cache) *enrichment.Registry {
	opts := func(p config.ProviderConfig) enrichment.ClientOptions {
		return enrichment.ClientOptions{APIKey: p.APIKey, BaseURL: p.BaseURL, RequestsPerMinute: cfg.RequestsPerMinute}
	}
	return enrichment.NewRegistry([]enrichment.Provider{
		enrichment.NewCoreSignalProvider(opts(cfg.CoreSignal)),
		enrichment.NewLushaProvider(opts(cfg.Lusha)),
		enrichment.NewProspeoProvider(opts(cfg.Prospeo)),
		enrichment.NewWebsiteProvider(enrichment.ClientOptions{RequestsPerMinute: cfg.RequestsPerMinute}),
	}, cache)
}

// NewFakeRuleSet compiles the built-in rules plus those in path, if any.
func NewFakeRuleSet(path string, logger *zap.Logger) (*rules.RuleSet, error) {
	var custom []rules.Rule
	if path != "" {
		loaded, err := rules.LoadFile(path)
		if err != nil {
			return nil, err
		}
		custom = loaded
	}
	return rules.NewRuleSet(custom, logger)
}

// NewServiceManager creates a new service manager with all dependencies wired
func NewServiceManager(db *sql.DB, cfg *config.Config, logger *zap.Logger) (*ServiceManager, error) {
	logger = logging.OrNop(logger)
	sm := &ServiceManager{db: db, cfg: cfg, logger: logger}

	ruleSet, err := NewFakeRuleSet(cfg.RulesFile, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load fake-record rules: %w", err)
	}
	cache, err := NewEnrichmentCache(cfg.Enrichment)
	if err != nil {
		return nil, fmt.Errorf("failed to open enrichment cache: %w", err)
	}
	sm.cache = cache

	sm.Registry = NewEnrichmentRegistry(cfg.Enrichment, cache)
	sm.BrightData = enrichment.NewBrightDataClient(enrichment.ClientOptions{
		APIKey:            cfg.Enrichment.BrightData.APIKey,
		BaseURL:           cfg.Enrichment.BrightData.BaseURL,
		RequestsPerMinute: cfg.Enrichment.RequestsPerMinute,
	})

	sm.Cleanup = NewCleanupService(db, ruleSet, logger)
	sm.Migration = NewMigrationService(db, logger)
	sm.Diagnostics = NewDiagnosticsService(db, logger)
	sm.Enrichment = NewEnrichmentService(db, sm.Registry, cfg.Enrichment.Concurrency, logger)
	sm.BuyerGroups = NewBuyerGroupService(db, sm.BrightData, cfg.Enrichment.BrightDataDataset, logger)
	sm.Import = NewImportService(db, logger)
	sm.Seeder = NewDemoSeeder(db, logger)
	sm.Users = NewUserService(db, logger)

	logger.Debug("🔧 Services wired", zap.Strings("enrichment_providers", sm.Registry.Available()))
	return sm, nil
}

// NewScheduler builds the enrichment queue scheduler from configuration.
func (sm *ServiceManager) NewScheduler() (*EnrichmentScheduler, error) {
	return NewEnrichmentScheduler(sm.Enrichment, sm.cfg.Enrichment.Schedule, DefaultQueueBatch, sm.logger)
}

// Close releases the enrichment cache. The database handle belongs to the caller.
func (sm *ServiceManager) Close() error {
	if sm.cache == nil {
		return nil
	}
	return sm.cache.Close()
}
