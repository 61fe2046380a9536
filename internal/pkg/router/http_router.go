package router

import (
	"log"
	"strconv"
	"time"

	"github.com/MentorCircle/mentorcircle/app/controllers"
	"github.com/MentorCircle/mentorcircle/app/models"
	"github.com/MentorCircle/mentorcircle/app/repository"
	"github.com/MentorCircle/mentorcircle/internal/pkg/database"
	"github.com/MentorCircle/mentorcircle/internal/pkg/discord"
	"github.com/MentorCircle/mentorcircle/internal/pkg/env"
	"github.com/MentorCircle/mentorcircle/internal/pkg/mentorship"
	"github.com/MentorCircle/mentorcircle/internal/pkg/metrics/counter"
	"github.com/MentorCircle/mentorcircle/internal/pkg/middleware"
	"github.com/MentorCircle/mentorcircle/internal/pkg/notify"
	"github.com/MentorCircle/mentorcircle/internal/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	db := database.GetDB()
	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()

	limiter := ratelimit.New(db)
	gateway := discord.NewClientFromEnv()
	oauthClient := discord.NewOAuthClientFromEnv()
	notifier := notify.NewFromEnv(gateway)
	service := mentorship.NewService(repos, gateway, oauthClient, notifier)

	controllers.InitializeWebhookController(service)
	controllers.InitializeOAuthController(service)
	controllers.InitializeRedirectController(repos.Redirect)

	webhookLimit := envInt("WEBHOOK_RATE_LIMIT", 30)
	redirectLimit := envInt("REDIRECT_RATE_LIMIT", 200)

	app.Post("/webhook/:provider",
		middleware.RateLimitByIP(limiter, models.RateLimitTypeWebhook, webhookLimit, time.Minute),
		controllers.HandleCommerceWebhook)
	app.Post("/webhook/:provider/cancellation",
		middleware.RateLimitByIP(limiter, models.RateLimitTypeWebhook, webhookLimit, time.Minute),
		controllers.HandleCommerceCancellation)
	app.Get("/oauth/callback", controllers.HandleOAuthCallback)
	app.Get("/health", controllers.HandleHealth)

	// Catch-all short code route; must stay last.
	app.Get("/:shortCode",
		middleware.RateLimitByIP(limiter, models.RateLimitTypeRedirect, redirectLimit, 15*time.Minute),
		controllers.HandleRedirect)

	startBackgroundTasks(limiter, gateway, repos)
}

// startBackgroundTasks launches the periodic sweeps that bound storage and
// memory growth. They run for the process lifetime.
func startBackgroundTasks(limiter *ratelimit.Limiter, gateway *discord.Client, repos *repository.Repositories) {
	stop := make(chan struct{})

	limiter.StartSweeper(10*time.Minute, stop)
	counter.StartFlusher(repos.Redirect, time.Minute, stop)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := gateway.SweepBuckets(); n > 0 {
					log.Printf("discord: swept %d stale rate-limit buckets", n)
				}
				if n, err := repos.PendingJoin.DeleteExpired(); err != nil {
					log.Printf("joins: expired sweep failed: %v", err)
				} else if n > 0 {
					log.Printf("joins: removed %d expired invitations", n)
				}
			case <-stop:
				return
			}
		}
	}()
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(env.GetEnv(key, strconv.Itoa(def)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
