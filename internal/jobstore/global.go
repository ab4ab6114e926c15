package jobstore

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/schema"
)

// StoreManager holds the process-wide job store.
type StoreManager struct {
	sync.RWMutex // Protects the store pointer during initialization
	store        contract.JobStore
}

// Global Manager instance for main logic.
var (
	Manager   = &StoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// GetStore returns the job store, or a no-op store when tracking was never initialized.
func (mgr *StoreManager) GetStore() contract.JobStore {
	mgr.RLock()
	defer mgr.RUnlock()
	if mgr.store == nil {
		return &StoreImpl{backend: schema.NoneBackend}
	}
	return mgr.store
}

// Init initializes the global job store. Only the first call has any effect.
func Init(backend schema.DatabaseBackend, connStr string) error {
	var initErr error
	initOnce.Do(func() {
		store, err := New(backend, connStr)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize job store: %w", err)
			return
		}
		Manager.Lock()
		Manager.store = store
		Manager.Unlock()
	})
	return initErr
}

// Close should be called on application shutdown.
func Close() { // called in main defer
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.store != nil {
			_ = Manager.store.Close()
		}
	})
}

// Clear removes all job history for the specified backend.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the job tables.
// For NoneBackend, it does nothing.
func Clear(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		driver, _ := driverName(backend)
		// Children first
		for i := len(Tables) - 1; i >= 0; i-- {
			if err := dropSQLTable(driver, connStr, quoteTableName(Tables[i], backend)); err != nil {
				return err
			}
		}
		// golang-migrate keeps its own bookkeeping table
		return dropSQLTable(driver, connStr, quoteTableName("schema_migrations", backend))

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported backend for clearing: %s", backend)
	}
}

// dropSQLTable connects to the SQL database and drops the table if it exists.
func dropSQLTable(driverName, connStr, tableName string) error {
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", driverName, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}
	if _, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", tableName)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", tableName, err)
	}
	return nil
}
