package store

import (
	"fmt"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter atomic.Int64

// OpenForTests opens an in-memory GORM database backed by the teacher's
// pure-Go sqlite driver (glebarez/sqlite over modernc.org/sqlite) and
// AutoMigrates the schema — this is marlonfan-go-stock-collector's
// NewDatabase pattern, preserved for test setup after the production path
// switched to goose migrations against MySQL (see DESIGN.md). Each call gets
// its own uniquely-named shared-cache database so independent test cases
// never see each other's rows within the same test binary.
func OpenForTests() (*DB, error) {
	dsn := fmt.Sprintf("file:mfnavtest%d?mode=memory&cache=shared", testDBCounter.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open test sqlite: %w", err)
	}
	if err := gdb.AutoMigrate(AllModels...); err != nil {
		return nil, fmt.Errorf("automigrate test sqlite: %w", err)
	}
	if err := gdb.Exec(`INSERT OR IGNORE INTO pipeline_status (id, status, current_phase, progress_percent) VALUES (1, 'idle', '', 0)`).Error; err != nil {
		return nil, fmt.Errorf("seed pipeline_status: %w", err)
	}
	return &DB{gormDB: gdb}, nil
}
