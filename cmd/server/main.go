package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/vedran77/relay/internal/auth"
	"github.com/vedran77/relay/internal/config"
	"github.com/vedran77/relay/internal/database"
	"github.com/vedran77/relay/internal/presence"
	postgresrepo "github.com/vedran77/relay/internal/repository/postgres"
	"github.com/vedran77/relay/internal/service"
	"github.com/vedran77/relay/internal/transport/http/handlers"
	"github.com/vedran77/relay/internal/transport/http/middleware"
	"github.com/vedran77/relay/internal/transport/ws"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// Database
	pool, err := database.Connect(context.Background(), cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	log.Println("Connected to database")

	// Repositories
	userRepo := postgresrepo.NewUserRepo(pool)
	messageRepo := postgresrepo.NewMessageRepo(pool)

	// Identity verifier, shared by the HTTP middleware and the ws handshake
	tokens := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Presence registry, injected into the delivery router and the hub
	registry := presence.NewRegistry()

	// Services
	authService := service.NewAuthService(userRepo, tokens)
	userService := service.NewUserService(userRepo)
	chatService := service.NewChatService(messageRepo, userRepo, registry)
	conversationService := service.NewConversationService(messageRepo, userRepo)

	// WebSocket hub
	hub := ws.NewHub(registry, userRepo, chatService)
	go hub.Run()

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, cfg.RefreshTokenTTL)
	userHandler := handlers.NewUserHandler(userService)
	chatHandler := handlers.NewChatHandler(chatService, conversationService)

	// Auth middleware
	authMW := middleware.Auth(tokens)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", authHandler.Refresh)

	// Protected - Auth
	mux.Handle("POST /api/v1/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Protected - Users
	mux.Handle("GET /api/v1/users/me", authMW(http.HandlerFunc(userHandler.Me)))
	mux.Handle("GET /api/v1/users", authMW(http.HandlerFunc(userHandler.List)))
	mux.Handle("GET /api/v1/users/{id}", authMW(http.HandlerFunc(userHandler.Get)))
	mux.Handle("PATCH /api/v1/users/status", authMW(http.HandlerFunc(userHandler.UpdateStatus)))

	// Protected - Chat
	mux.Handle("GET /api/v1/chat/conversations", authMW(http.HandlerFunc(chatHandler.ListConversations)))
	mux.Handle("GET /api/v1/chat/messages/{userID}", authMW(http.HandlerFunc(chatHandler.Conversation)))
	mux.Handle("POST /api/v1/chat/messages/{userID}", authMW(http.HandlerFunc(chatHandler.Send)))
	mux.Handle("PATCH /api/v1/chat/messages/{id}/read", authMW(http.HandlerFunc(chatHandler.MarkRead)))
	mux.Handle("POST /api/v1/chat/conversations/{userID}/read", authMW(http.HandlerFunc(chatHandler.MarkConversationRead)))
	mux.Handle("GET /api/v1/chat/unread", authMW(http.HandlerFunc(chatHandler.UnreadCount)))

	// Live connections
	mux.HandleFunc("GET /ws", ws.ServeWS(hub, tokens))

	// Start server with CORS
	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("Starting server on %s", addr)
	log.Fatal(http.ListenAndServe(addr, middleware.CORS(mux)))
}
