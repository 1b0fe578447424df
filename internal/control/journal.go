package control

import (
	"context"
	"fmt"
	"log/slog"

	redisclient "github.com/vietddude/armctl/internal/infra/redis"
	"github.com/vietddude/armctl/internal/infra/storage"
	"github.com/vietddude/armctl/internal/infra/storage/memory"
	"github.com/vietddude/armctl/internal/infra/storage/postgres"
)

// Journal drivers.
const (
	JournalMemory   = "memory"
	JournalRedis    = "redis"
	JournalPostgres = "postgres"
	JournalPgx      = "pgx"
)

// JournalConfig selects and configures the command journal backend.
type JournalConfig struct {
	Driver     string `yaml:"driver"`
	URL        string `yaml:"url"`
	MaxEntries int    `yaml:"max_entries"`
}

// OpenJournal connects to the configured backend. An empty driver means an
// in-memory journal, which lives only as long as the process.
func OpenJournal(ctx context.Context, cfg JournalConfig, logger *slog.Logger) (storage.JournalRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Driver {
	case "", JournalMemory:
		return memory.NewJournalRepo(cfg.MaxEntries), nil

	case JournalRedis:
		if cfg.URL == "" {
			return nil, fmt.Errorf("journal driver %q requires a url", cfg.Driver)
		}
		client, err := redisclient.NewClient(ctx, redisclient.Config{URL: cfg.URL})
		if err != nil {
			return nil, err
		}
		logger.Debug("Journal connected", "driver", cfg.Driver)
		return redisclient.NewJournalRepo(client, "", cfg.MaxEntries), nil

	case JournalPostgres, JournalPgx:
		if cfg.URL == "" {
			return nil, fmt.Errorf("journal driver %q requires a url", cfg.Driver)
		}
		db, err := postgres.NewDB(ctx, postgres.Config{Driver: cfg.Driver, URL: cfg.URL})
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Debug("Journal connected", "driver", cfg.Driver)
		return postgres.NewJournalRepo(db, cfg.Driver, cfg.MaxEntries), nil

	default:
		return nil, fmt.Errorf("unknown journal driver %q", cfg.Driver)
	}
}
