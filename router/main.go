package router

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/museume/museume-backend/config"
	"github.com/museume/museume-backend/database"
	"github.com/museume/museume-backend/handlers"
	auth_handlers "github.com/museume/museume-backend/handlers/auth"
	class_handlers "github.com/museume/museume-backend/handlers/class"
	work_handlers "github.com/museume/museume-backend/handlers/work"
	"github.com/museume/museume-backend/services"
	stripegw "github.com/museume/museume-backend/services/stripe"
	"github.com/museume/museume-backend/services/storage"
	"github.com/museume/museume-backend/utils/auth"
	"github.com/museume/museume-backend/utils/cache"
	"github.com/museume/museume-backend/utils/middleware"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, store database.Storage) {
	env, err := config.Get()
	if err != nil {
		log.Fatal("Failed to read configuration:", err)
	}

	if env.JWT_SECRET == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := env.JWT_ISSUER
	if jwtIssuer == "" {
		jwtIssuer = "museume-api"
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        env.JWT_SECRET,
		Expiry:        24 * time.Hour,     // Access token expires in 24 hours
		RefreshExpiry: 7 * 24 * time.Hour, // Refresh token expires in 7 days
		Issuer:        jwtIssuer,
	})

	// Get DB instance (type assert from interface)
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	// Redis backs brute-force protection and the catalog cache
	redisURL := env.REDIS_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Brute force protection will be disabled.", err)
		redisCache = nil
	}

	var bruteForceProtection *middleware.BruteForceProtection
	if redisCache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(redisCache)
	}

	mailer := services.NewEmailService()

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)
	authHandler := auth_handlers.NewAuthHandler(db, jwtManager, bruteForceProtection, mailer)

	// Payment gateway
	if env.STRIPE_SECRET_KEY == "" {
		log.Println("Warning: STRIPE_SECRET_KEY is not set; paid class signups will fail")
	}
	stripeClient := stripegw.NewClient(env.STRIPE_SECRET_KEY)
	signupService := services.NewClassSignupService(db, stripeClient)
	classHandler := class_handlers.NewClassHandler(db, signupService, mailer, redisCache, env.STRIPE_ARTIST_CLASS_WH_SECRET)

	// Artwork image storage
	var uploader storage.Uploader
	if env.SPACES_ACCESS_KEY != "" {
		spaces, err := storage.NewSpacesClient(storage.SpacesConfig{
			AccessKey: env.SPACES_ACCESS_KEY,
			SecretKey: env.SPACES_SECRET_KEY,
			Bucket:    env.SPACES_BUCKET,
			Region:    env.SPACES_REGION,
			Endpoint:  env.SPACES_ENDPOINT,
			CDNURL:    env.SPACES_CDN_URL,
		})
		if err != nil {
			log.Printf("Warning: Failed to set up Spaces storage: %v. Artwork uploads will fail.", err)
		} else {
			uploader = spaces
		}
	} else {
		log.Println("Warning: SPACES_ACCESS_KEY is not set; artwork uploads will fail")
	}
	workHandler := work_handlers.NewWorkHandler(db, uploader)

	healthHandler := handlers.NewHealthHandler(store)

	// Apply security middleware
	allowedOrigins := env.ALLOWED_ORIGINS
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
	})

	// API v1 group
	api := app.Group("/api/v1")

	// Health check (public)
	api.Get("/health", healthHandler.Check)

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)

	// Login with brute force protection
	if bruteForceProtection != nil {
		authGroup.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}

	authGroup.Post("/refresh", authHandler.RefreshToken)
	authGroup.Post("/forgot-password", authHandler.ForgotPassword)
	authGroup.Post("/reset-password", authHandler.ResetPassword)

	// Protected auth routes
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Post("/change-password", authMiddleware.Required(), authHandler.ChangePassword)
	authGroup.Post("/register-child", authMiddleware.Required(), authHandler.RegisterChild)

	// Profile routes (protected)
	profileGroup := api.Group("/profile", authMiddleware.Required())
	profileGroup.Get("/", authHandler.GetProfile)
	profileGroup.Put("/", authHandler.UpdateProfile)

	// Class routes. The webhook and the catalog are public; the webhook is
	// authenticated by its Stripe signature rather than a bearer token, and
	// the detail endpoint shows more with one.
	classes := api.Group("/classes")
	classes.Post("/webhook", classHandler.StripeWebhook)
	classes.Post("/signup", authMiddleware.Required(), classHandler.Signup)
	classes.Post("/confirm-payment", authMiddleware.Required(), classHandler.ConfirmPayment)
	classes.Get("/mine", authMiddleware.Required(), classHandler.MyClasses)
	classes.Get("/", classHandler.ListClasses)
	classes.Get("/:id", authMiddleware.Optional(), classHandler.GetClass)
	classes.Get("/:id/registration-status", authMiddleware.Required(), classHandler.RegistrationStatus)
	classes.Post("/:id/video-url", authMiddleware.Required(), classHandler.ResendVideoURL)

	// Work (artwork gallery) routes
	works := api.Group("/works")
	works.Get("/mine", authMiddleware.Required(), workHandler.MyWorks)
	works.Get("/", authMiddleware.Optional(), workHandler.ListWorks)
	works.Get("/:id", authMiddleware.Optional(), workHandler.GetWork)
	works.Post("/", authMiddleware.Required(), workHandler.CreateWork)
	works.Put("/:id", authMiddleware.Required(), workHandler.UpdateWork)
	works.Delete("/:id", authMiddleware.Required(), workHandler.DeleteWork)
	works.Post("/:id/like", authMiddleware.Required(), workHandler.LikeWork)
	works.Delete("/:id/like", authMiddleware.Required(), workHandler.UnlikeWork)
}
