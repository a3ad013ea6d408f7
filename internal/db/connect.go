// Package db provides database connection and migration helpers.
package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN builds a MySQL DSN for the ForYou database.
func DSN(user, password, host string, port int, database string) string {
	cred := user
	if password != "" {
		cred = user + ":" + password
	}
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4", cred, host, port, database)
}

// Connect opens a GORM connection to a MySQL database.
func Connect(user, password, host string, port int, database string) (*gorm.DB, error) {
	dsn := DSN(user, password, host, port, database)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: connect to %s:%d/%s: %w", host, port, database, err)
	}
	return db, nil
}

// ConnectLocal opens a GORM connection to a local SQLite database file,
// used for development and single-node deployments. WAL mode and a busy
// timeout keep concurrent request handling from failing on writer locks.
func ConnectLocal(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", path, err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		return nil, fmt.Errorf("db: set WAL mode: %w", err)
	}
	if err := db.Exec("PRAGMA busy_timeout=5000").Error; err != nil {
		return nil, fmt.Errorf("db: set busy timeout: %w", err)
	}
	return db, nil
}
