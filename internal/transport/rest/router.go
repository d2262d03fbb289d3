package rest

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	_ "pongarena/docs"
	"pongarena/internal/matchmaking"
	"pongarena/internal/service"
	"pongarena/internal/transport/rest/handler"
	"pongarena/internal/transport/rest/middleware"
	"pongarena/internal/transport/ws"

	"github.com/decred/slog"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/swaggo/swag"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService  *service.AuthService
	MatchService *service.MatchService
	Matchmaker   *matchmaking.Matchmaker
	WSHub        *ws.Hub
	Log          slog.Logger
	WSLog        slog.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()
	log := c.Log
	if log == nil {
		log = slog.Disabled
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	matchHandler := handler.NewMatchHandler(c.MatchService)
	tournamentHandler := handler.NewTournamentHandler(c.MatchService)
	wsHandler := ws.NewHandler(c.WSHub, c.Matchmaker, c.AuthService, c.WSLog)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	r.Use(chimw.RequestID, chimw.RealIP, requestLogger(log), chimw.Recoverer)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/token", authHandler.Token).Methods("POST", "OPTIONS")

	// WebSocket route (token in query param)
	v1.HandleFunc("/ws/matches/{id}", wsHandler.MatchWS).Methods("GET")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "ok",
			"sessions":    c.Matchmaker.Len(),
			"waiting":     len(c.Matchmaker.Waiting()),
			"connections": c.WSHub.Count(),
		})
	}).Methods("GET")

	r.HandleFunc("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		doc, err := swag.ReadDoc()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(doc))
	}).Methods("GET")

	// Player routes (require player auth)
	playerRoutes := v1.NewRoute().Subrouter()
	playerRoutes.Use(authMW.RequirePlayer)

	playerRoutes.HandleFunc("/matches", matchHandler.Create).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/matches/current", matchHandler.Current).Methods("GET", "OPTIONS")
	playerRoutes.HandleFunc("/matches/{id}", matchHandler.Get).Methods("GET", "OPTIONS")
	playerRoutes.HandleFunc("/matches/{id}/join", matchHandler.Join).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/matches/{id}/cancel", matchHandler.Cancel).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/players/{id}/matches", matchHandler.History).Methods("GET", "OPTIONS")
	playerRoutes.HandleFunc("/players/{id}/rank", matchHandler.Rank).Methods("GET", "OPTIONS")
	playerRoutes.HandleFunc("/leaderboard", matchHandler.Leaderboard).Methods("GET", "OPTIONS")

	// Tournament collaborator routes
	playerRoutes.HandleFunc("/tournaments/matches/{matchId}/session", tournamentHandler.CreateSession).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/tournaments/matches/{matchId}/result", tournamentHandler.Result).Methods("GET", "OPTIONS")

	return r
}

func requestLogger(log slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debugf("%s %s %d %s [%s]", r.Method, r.URL.Path, ww.Status(), time.Since(start), chimw.GetReqID(r.Context()))
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
