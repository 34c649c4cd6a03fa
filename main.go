package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"crawl-backend/auth"
	"crawl-backend/config"
	"crawl-backend/game"
	"crawl-backend/handlers"
	"crawl-backend/leaderboard"
	"crawl-backend/webrtc"
)

const (
	heartbeatPeriod  = 54 * time.Second
	heartbeatTimeout = 60 * time.Second
	tokenSlack       = time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store leaderboard.Store = leaderboard.NewMemoryStore()
	if cfg.LeaderboardDB != "" {
		bolt, err := leaderboard.OpenBolt(cfg.LeaderboardDB)
		if err != nil {
			log.Fatalf("Leaderboard store: %v", err)
		}
		store = bolt
	}
	scores := leaderboard.NewService(store, leaderboard.FlushEvery)
	scoresDone := make(chan struct{})
	go func() {
		defer close(scoresDone)
		scores.Run(ctx)
	}()

	secret := cfg.TokenSecret
	if secret == "" {
		secret = uuid.New().String()
		log.Printf("TOKEN_SECRET not set, resume tokens will not survive a restart")
	}
	tokens, err := auth.NewIssuer(secret, cfg.Game.ReconnectGrace+tokenSlack)
	if err != nil {
		log.Fatalf("Token issuer: %v", err)
	}

	gameManager := game.NewManager(ctx, cfg.Game, scores, tokens)
	webrtcManager := webrtc.NewManager(webrtc.ICEServers(cfg.ICE.STUNURLs, cfg.ICE.TURNURL, cfg.ICE.TURNUsername, cfg.ICE.TURNCredential))
	go webrtcManager.Heartbeat(ctx, heartbeatPeriod, heartbeatTimeout)

	wsHandler := handlers.NewWebSocketHandler(gameManager)
	webrtcHandler := handlers.NewWebRTCHandler(gameManager, webrtcManager)
	resume := auth.ResumeMiddleware(tokens)

	mux := http.NewServeMux()
	mux.Handle("/ws", resume(wsHandler))
	mux.Handle("/webrtc/offer", resume(http.HandlerFunc(webrtcHandler.HandleOffer)))
	mux.Handle("/leaderboard", handlers.NewLeaderboardHandler(scores))
	mux.Handle("/rooms", handlers.NewRoomsHandler(gameManager))
	mux.HandleFunc("/healthz", handlers.Health(gameManager, webrtcManager))

	server := &http.Server{Addr: ":" + cfg.Port, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("Server starting on port %s", cfg.Port)
	log.Printf("WebSocket endpoint: /ws, WebRTC offers: /webrtc/offer")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}

	gameManager.Wait()
	<-scoresDone
	if err := scores.Close(); err != nil {
		log.Printf("Closing leaderboard store: %v", err)
	}
	log.Printf("Server stopped")
}
