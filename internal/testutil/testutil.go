package testutil

import (
	"fmt"
	"testing"

	"coffeeshop-service/internal/model"
	"coffeeshop-service/pkg/config"
	"coffeeshop-service/pkg/database"
	"coffeeshop-service/pkg/jwtutil"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq int

// OpenTestDB opens a fresh in-memory SQLite database, migrates all models
// and installs it as the global handle. The previous handle is restored on
// cleanup.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A shared cache memory database so every pooled connection sees the
	// same data. The name keeps parallel test databases apart.
	dbSeq++
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), dbSeq)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	prev := database.GetDB()
	database.SetDB(db)
	t.Cleanup(func() {
		database.SetDB(prev)
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

// InitTestJWT points the token service at a fixed test signing key
func InitTestJWT(t *testing.T) {
	t.Helper()
	jwtutil.Initialize(&config.JWTConfig{
		SigningKey:      "test-secret",
		ExpirationHours: 7,
	})
}

// TokenFor returns a signed token for the given user id and role
func TokenFor(t *testing.T, userID uint, role string) string {
	t.Helper()
	tok, err := jwtutil.GenerateToken(userID, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return tok
}
