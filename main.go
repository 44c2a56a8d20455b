package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"rental-sync-server/providers"
	"rental-sync-server/routes"
	"rental-sync-server/services"
	"rental-sync-server/storage"
	"rental-sync-server/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"github.com/sirupsen/logrus"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	logger := newLogger()

	// Initialize services
	db := storage.InitializeDB()
	redisClient := storage.InitializeRedis()

	store := services.NewAvailabilityStore(db, logger.WithField("Component", "availability-store"))
	query := services.NewAvailabilityQuery(db, store, logger.WithField("Component", "availability-query"))
	quotes := services.NewQuoteCache(redisClient, quoteTTLFromEnv(), logger.WithField("Component", "quote-cache"))

	providerLog := logger.WithField("Component", "providers")
	clients := map[string]providers.CalendarProvider{
		"pms":         providers.NewPMSClient(providerLog),
		"pagebuilder": providers.NewPageBuilderClient(providerLog),
	}
	credentials := map[string]providers.Credentials{
		"pms": {
			BaseURL: os.Getenv("PMS_BASE_URL"),
			APIKey:  os.Getenv("PMS_API_KEY"),
		},
		"pagebuilder": {
			BaseURL: os.Getenv("PAGEBUILDER_BASE_URL"),
			APIKey:  os.Getenv("PAGEBUILDER_API_KEY"),
		},
	}
	importer := services.NewCalendarImporter(store, clients, credentials,
		maxWindowDaysFromEnv(logger), logger.WithField("Component", "calendar-importer"))

	searchHandler := &routes.SearchHandler{Query: query, Quotes: quotes}
	listingHandler := &routes.ListingHandler{DB: db, Store: store}
	syncHandler := &routes.SyncHandler{DB: db, Store: store, Importer: importer}

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	// Minimal middleware - compression only
	app.Use(iris.Compression)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	api := app.Party("/api")
	{
		api.Get("/search", searchHandler.Search)
		api.Get("/map/markers", searchHandler.MapMarkers)
		api.Get("/listings/{id}", listingHandler.GetListing)
	}

	admin := app.Party("/api/admin")
	{
		admin.Post("/login", routes.AdminLogin)

		protected := admin.Party("/", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
		protected.Get("/listings", listingHandler.ListListings)
		protected.Post("/listings", listingHandler.CreateListing)
		protected.Delete("/listings/{id}", listingHandler.DeleteListing)
		protected.Post("/listings/{id}/sync", syncHandler.SyncListingCalendar)
		protected.Post("/availability/purge", syncHandler.PurgeOrphans)
		protected.Get("/audits", syncHandler.ListAudits)
	}

	// Daily consistency sweep: remove availability rows whose listing is gone.
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			store.PurgeOrphanRows(ctx)
			cancel()
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}

	if err := app.Listen(":" + port); err != nil {
		logger.Fatalln(err)
	}
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if os.Getenv("ENVIRONMENT") == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:      true,
			QuoteEmptyFields: true,
		})
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func maxWindowDaysFromEnv(logger *logrus.Logger) int {
	raw := os.Getenv("SYNC_MAX_WINDOW_DAYS")
	if raw == "" {
		return services.DefaultMaxWindowDays
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		logger.WithField("SYNC_MAX_WINDOW_DAYS", raw).Warn("invalid sync window override, using default")
		return services.DefaultMaxWindowDays
	}
	return days
}

func quoteTTLFromEnv() time.Duration {
	raw := os.Getenv("QUOTE_CACHE_TTL_SECONDS")
	if raw == "" {
		return services.DefaultQuoteTTL
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return services.DefaultQuoteTTL
	}
	return time.Duration(seconds) * time.Second
}
