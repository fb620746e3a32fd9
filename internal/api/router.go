package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"courier/internal/auth"
	"courier/internal/blob"
	"courier/internal/call"
	"courier/internal/chat"
	"courier/internal/config"
	"courier/internal/convo"
	"courier/internal/db"
	"courier/internal/feed"
	"courier/internal/notify"
	"courier/internal/presence"
)

type Server struct {
	router *chi.Mux
	config *config.Config
	hub    *feed.Hub
}

func NewServer(
	cfg *config.Config,
	database *db.DB,
	blobService *blob.Service,
	userRepo *db.UserRepository,
	messageRepo *db.MessageRepository,
	blobRepo *db.BlobRepository,
	notificationRepo *db.NotificationRepository,
	notifier *notify.Service,
) (*Server, error) {
	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)

	hub := feed.NewHub()
	heartbeat := presence.NewHeartbeat(userRepo, cfg.Presence.HeartbeatInterval)

	chatService := chat.NewService(messageRepo, userRepo, blobRepo, notifier, hub, cfg.Server.BaseURL)
	convoService := convo.NewService(messageRepo, userRepo)
	callService := call.NewService(chatService, messageRepo, userRepo, notifier, hub, cfg.TURN)

	messageHandler := NewMessageHandler(chatService)
	conversationHandler := NewConversationHandler(convoService, chatService)
	callHandler := NewCallHandler(callService)
	uploadHandler := NewUploadHandler(blobService, blobRepo, cfg.Server.BaseURL)
	mediaHandler := NewMediaHandler(blobRepo, blobService)
	presenceHandler := NewPresenceHandler(userRepo, heartbeat)
	userHandler := NewUserHandler(userRepo)
	notificationHandler := NewNotificationHandler(notificationRepo)
	healthHandler := NewHealthHandler(database)
	wsHandler := NewWebSocketHandler(hub, jwtService, userRepo, heartbeat)

	authMiddleware := NewAuthMiddleware(jwtService)

	r := chi.NewRouter()
	r.Use(slogRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(securityHeadersMiddleware)

	r.Get("/health", healthHandler.Check)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/media", func(r chi.Router) {
		r.Get("/blobs/{blobID}", mediaHandler.GetBlob)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByRealIP(300, time.Minute))

		r.Group(func(r chi.Router) {
			r.Use(maxBodySizeMiddleware(1 << 20)) // 1 MB
			r.Use(authMiddleware.RequireAuth)

			r.Route("/messages", func(r chi.Router) {
				r.With(httprate.LimitByRealIP(60, time.Minute)).Post("/", messageHandler.Send)
				r.Patch("/{messageID}", messageHandler.Edit)
				r.Get("/", messageHandler.GetThread)
			})

			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", conversationHandler.List)
				r.Post("/read", conversationHandler.MarkRead)
				r.Post("/unread", conversationHandler.MarkUnread)
				r.Delete("/", conversationHandler.Delete)
			})

			r.Route("/calls", func(r chi.Router) {
				r.With(httprate.LimitByRealIP(30, time.Minute)).Post("/", callHandler.Propose)
				r.Post("/{messageID}/respond", callHandler.Respond)
			})

			r.Route("/presence", func(r chi.Router) {
				r.Post("/heartbeat", presenceHandler.PostHeartbeat)
				r.Get("/{userID}", presenceHandler.GetStatus)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", userHandler.GetMe)
				r.Patch("/me", userHandler.UpdateMe)
			})

			r.Get("/notifications", notificationHandler.List)
		})

		// Uploads skip the 1 MB JSON body cap; the blob service enforces
		// its own size limit on the multipart stream.
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.With(httprate.LimitByRealIP(20, time.Minute)).Post("/uploads/chat", uploadHandler.UploadChatAttachment)
		})
	})

	r.With(httprate.LimitByRealIP(10, time.Minute)).Get("/ws", wsHandler.ServeWS)

	return &Server{
		router: r,
		config: cfg,
		hub:    hub,
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) Shutdown() {
	s.hub.Shutdown()
}
