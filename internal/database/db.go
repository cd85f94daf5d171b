package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	sqliteGo "github.com/mattn/go-sqlite3"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const CustomDriverName = "sqlite3_durable"

const DefaultFile = "sfms.db"

// BusyTimeoutMs is how long a connection waits on a locked database before failing.
const BusyTimeoutMs = 5000

// durabilityPragmas run on every new connection, in order.
var durabilityPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA fullfsync = ON",
	"PRAGMA synchronous = EXTRA",
	fmt.Sprintf("PRAGMA busy_timeout = %d", BusyTimeoutMs),
}

func init() {
	sql.Register(CustomDriverName,
		&sqliteGo.SQLiteDriver{
			ConnectHook: func(conn *sqliteGo.SQLiteConn) error {
				for _, pragma := range durabilityPragmas {
					if _, err := conn.Exec(pragma, nil); err != nil {
						return fmt.Errorf("%s: %w", pragma, err)
					}
				}
				return nil
			},
		},
	)
}

// Config describes where the store lives and how it is opened.
type Config struct {
	// Location is a database file path, or a name when InMemory is set.
	Location string
	// InMemory opens a private in-memory database that no other Config can reach.
	InMemory bool
	// Logger receives gorm's SQL trace. Silent when nil.
	Logger logger.Interface
}

// DSN returns the data source name handed to the sqlite driver.
func (c Config) DSN() string {
	location := c.Location
	if location == "" {
		location = DefaultFile
	}
	if c.InMemory {
		// a shared cache is needed for the pool to see one database, the uuid keeps it private
		name := strings.TrimPrefix(location, "file:") + "-" + uuid.NewString()
		return "file:" + name + "?mode=memory&cache=shared"
	}
	return location
}

// NewDb opens the store described by cfg and brings its schema up to date.
func NewDb(cfg Config) (*gorm.DB, error) {
	dsn := cfg.DSN()

	conn, err := sql.Open(CustomDriverName, dsn)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer; one connection also keeps an in-memory database alive
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	l := cfg.Logger
	if l == nil {
		l = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(sqlite.Dialector{
		DriverName: CustomDriverName,
		DSN:        dsn,
		Conn:       conn,
	}, &gorm.Config{
		Logger:                   l,
		SkipDefaultTransaction:   true,
		DisableNestedTransaction: true,
		TranslateError:           true,
		NowFunc:                  nowUTC,
	})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := Migrate(db); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the connection pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("can't get database instance: %w", err)
	}
	return sqlDB.Close()
}
