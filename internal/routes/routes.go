package routes

import (
	"github.com/gofiber/adaptor/v2"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ldupont/SparLinkBack/internal/config"
	"github.com/ldupont/SparLinkBack/internal/handlers"
	"github.com/ldupont/SparLinkBack/internal/middleware"
	"github.com/ldupont/SparLinkBack/internal/repository"
	"github.com/ldupont/SparLinkBack/internal/services"
	chatws "github.com/ldupont/SparLinkBack/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewFighterProfileRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	requestRepo := repository.NewSessionRequestRepository(db)
	participantRepo := repository.NewSessionParticipantRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	entitlementRepo := repository.NewEntitlementRepository(db)

	var storageService services.StorageService
	if cfg.SupabaseURL != "" && cfg.SupabaseBucket != "" && cfg.SupabaseServiceKey != "" {
		storageService = services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	}
	var mailer services.Mailer
	if cfg.MailerConfigured() {
		mailer = services.NewResendMailer(cfg.MailerAPIURL, cfg.MailerAPIKey, cfg.MailerFrom)
	}

	notificationService := services.NewNotificationService(notificationRepo, userRepo, mailer)
	profileService := services.NewProfileService(db, profileRepo)
	quotaService := services.NewQuotaService(entitlementRepo, sessionRepo)
	sessionService := services.NewSessionService(sessionRepo, quotaService)
	requestService := services.NewRequestService(db, requestRepo, sessionRepo, participantRepo, notificationService)
	chatService := services.NewChatService(db, conversationRepo, messageRepo, sessionRepo, participantRepo)
	reminderService := services.NewReminderService(
		messageRepo,
		conversationRepo,
		notificationRepo,
		sessionRepo,
		participantRepo,
		notificationService,
	)

	chatHub := chatws.NewHub()
	go chatHub.Run()

	authHandler := handlers.NewAuthHandler(db, userRepo, profileRepo, cfg.JWTSecret)
	profileHandler := handlers.NewProfileHandler(profileService, profileRepo, storageService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	requestHandler := handlers.NewSessionRequestHandler(requestService)
	chatHandler := handlers.NewChatHandler(chatService, chatHub, cfg.JWTSecret)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo)
	hooksHandler := handlers.NewHooksHandler(
		requestRepo,
		sessionRepo,
		entitlementRepo,
		notificationService,
		reminderService,
		cfg.MailerConfigured(),
		cfg.CronSecret,
		cfg.BillingSecret,
	)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	// Profile routes stay outside the completeness gate so a fresh account
	// can finish its profile at all.
	profile := api.Group("/profile", middleware.AuthRequired(cfg.JWTSecret))
	profile.Get("", profileHandler.GetMyProfile)
	profile.Put("", profileHandler.UpdateMyProfile)
	profile.Put("/disciplines", profileHandler.ReplaceDisciplines)
	profile.Post("/avatar", profileHandler.UploadAvatar)

	authProtected := api.Group(
		"/v1",
		middleware.AuthRequired(cfg.JWTSecret),
		middleware.ProfileComplete(profileService),
	)

	sessions := authProtected.Group("/sessions")
	sessions.Post("", sessionHandler.CreateSession)
	sessions.Get("", sessionHandler.DiscoverSessions)
	sessions.Get("/mine", sessionHandler.ListMySessions)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Put("/:id", sessionHandler.UpdateSession)
	sessions.Put("/:id/published", sessionHandler.SetPublished)
	sessions.Put("/:id/full", sessionHandler.SetFull)
	sessions.Post("/:id/boost", sessionHandler.BoostSession)
	sessions.Get("/:id/requests", requestHandler.ListForSession)

	requests := authProtected.Group("/requests")
	requests.Post("", requestHandler.SubmitRequest)
	requests.Get("/mine", requestHandler.ListMine)
	requests.Get("/:id", requestHandler.GetRequest)
	requests.Post("/:id/decision", requestHandler.Decide)
	requests.Post("/:id/withdraw", requestHandler.Withdraw)
	requests.Post("/:id/reverse", requestHandler.ReverseAcceptance)

	conversations := authProtected.Group("/conversations")
	conversations.Get("", chatHandler.ListConversations)
	conversations.Post("", chatHandler.ProvisionConversation)
	conversations.Get("/:id/messages", chatHandler.GetMessages)

	notifications := authProtected.Group("/notifications")
	notifications.Get("", notificationHandler.ListNotifications)
	notifications.Get("/unread-count", notificationHandler.UnreadCount)
	notifications.Post("/read-all", notificationHandler.MarkAllRead)

	hooks := api.Group("/hooks")
	hooks.Post("/request-received", hooksHandler.RequestReceived)
	hooks.Post("/request-decision", hooksHandler.RequestDecision)
	hooks.Post("/request-withdrawn", hooksHandler.RequestWithdrawn)
	hooks.Post("/billing", hooksHandler.Billing)

	cron := api.Group("/cron")
	cron.Post("/chat-reminders", hooksHandler.ChatReminders)
	cron.Post("/review-reminders", hooksHandler.ReviewReminders)

	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))
}
