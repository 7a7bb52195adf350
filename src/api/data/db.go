package data

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the durable store for driver ("mysql" or "postgres").
func Connect(driver, dsn string) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags),
		logger.Config{SlowThreshold: time.Second, LogLevel: logger.Warn, IgnoreRecordNotFoundError: true, Colorful: false},
	)
	cfg := &gorm.Config{Logger: gormLogger, TranslateError: true}

	var dial gorm.Dialector
	switch driver {
	case "mysql":
		dsn = ensureParam(dsn, "parseTime", "true")
		dsn = ensureParam(dsn, "loc", "UTC")
		if !strings.Contains(dsn, "charset=") {
			dsn = ensureParam(dsn, "charset", "utf8mb4")
			dsn = ensureParam(dsn, "collation", "utf8mb4_unicode_ci")
		}
		dial = mysql.Open(dsn)
	case "postgres":
		dial = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func MustConnect(driver, dsn string) *gorm.DB {
	db, err := Connect(driver, dsn)
	if err != nil {
		log.Fatalf("%s: %v", driver, err)
	}
	return db
}

func ensureParam(dsn, key, val string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + key + "=" + val
}
