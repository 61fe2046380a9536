package controllers

import (
	"github.com/MentorCircle/mentorcircle/internal/pkg/cache"
	"github.com/MentorCircle/mentorcircle/internal/pkg/database"
	"github.com/MentorCircle/mentorcircle/internal/pkg/env"
	"github.com/gofiber/fiber/v2"
)

// HandleHealth reports per-dependency status and an aggregate verdict. The
// database is the only hard dependency; a cache or Discord-config problem
// degrades but does not take the service down.
func HandleHealth(c *fiber.Ctx) error {
	checks := fiber.Map{}
	aggregate := "healthy"

	dbStatus := "ok"
	db := database.GetDB()
	if db == nil {
		dbStatus = "error"
	} else if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "error"
	}
	checks["mysql"] = dbStatus
	if dbStatus != "ok" {
		aggregate = "unhealthy"
	}

	cacheStatus := "ok"
	if err := cache.Ping(); err != nil {
		cacheStatus = "error"
		if aggregate == "healthy" {
			aggregate = "degraded"
		}
	}
	checks["redis"] = cacheStatus

	discordStatus := "ok"
	if env.GetEnv("DISCORD_BOT_TOKEN", "") == "" || env.GetEnv("DISCORD_GUILD_ID", "") == "" {
		discordStatus = "error"
		if aggregate == "healthy" {
			aggregate = "degraded"
		}
	}
	checks["discord_config"] = discordStatus

	status := fiber.StatusOK
	if aggregate == "unhealthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"status": aggregate,
		"checks": checks,
	})
}
