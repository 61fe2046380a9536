package database

import (
	"fmt"
	"log"
	"time"

	"github.com/MentorCircle/mentorcircle/app/models"
	"github.com/MentorCircle/mentorcircle/internal/pkg/env"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *gorm.DB

const maxRetries = 5
const retryDelay = 5 * time.Second

func SetupDatabase() {
	var err error
	// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                      dsn,
			DefaultStringSize:        256,
			DisableDatetimePrecision: true,
		}), &gorm.Config{
			// TranslateError maps driver duplicate-key errors onto
			// gorm.ErrDuplicatedKey, which the idempotency claim relies on.
			TranslateError: true,
		})
		if err == nil {
			DB.AutoMigrate(
				&models.Purchase{},
				&models.Mentee{},
				&models.Instructor{},
				&models.Mentorship{},
				&models.PendingJoin{},
				&models.OfferMapping{},
				&models.RedirectLink{},
				&models.RateLimitToken{},
			)

			return
		}

		log.Printf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}

// GetDB returns the shared GORM handle.
func GetDB() *gorm.DB {
	return DB
}
