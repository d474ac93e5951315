package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"Scribe/internal/apperror"
)

// Pinger проверяет, что хранилище отвечает
type Pinger interface {
	Ping(ctx context.Context) error
}

func NewRouter(h *ChatHandler, db Pinger) http.Handler {
	r := chi.NewRouter()
	r.Use(WithRequestID)
	r.Use(LogRequests)
	r.Use(middleware.Recoverer)

	r.NotFound(WrapHandler(func(w http.ResponseWriter, r *http.Request) error {
		return apperror.New(apperror.NotFound, "no route for %s %s", r.Method, r.URL.Path)
	}))
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{
			Code:        http.StatusMethodNotAllowed,
			Description: "method not allowed",
		})
	})

	r.Get("/", serveHome)
	r.Get("/health", healthCheck(db))

	r.Route("/user", func(r chi.Router) {
		r.Get("/list", WrapHandler(h.ListUsers))
		r.Post("/create/{username}", WrapHandler(h.CreateUser))
		r.Get("/delete/{username}", WrapHandler(h.DeleteUser))
	})

	r.Route("/room", func(r chi.Router) {
		r.Get("/list", WrapHandler(h.ListRooms))
		r.Post("/create/{roomname}", WrapHandler(h.CreateRoom))
		r.Get("/delete/{roomname}", WrapHandler(h.DeleteRoom))
	})

	r.Route("/joined_room", func(r chi.Router) {
		r.Get("/join/{roomname}", WrapHandler(h.JoinRoom))
		r.Get("/leave/{roomname}", WrapHandler(h.LeaveRoom))
		r.Get("/list/{username}", WrapHandler(h.JoinedRooms))
		r.Get("/all", WrapHandler(h.AllMemberships))
	})

	r.Route("/message", func(r chi.Router) {
		r.Get("/get/{roomname}", WrapHandler(h.GetMessages))
		r.Post("/send/{roomname}", WrapHandler(h.SendMessage))
	})

	return r
}

func serveHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("scribe chat server\n"))
}

func healthCheck(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, code := "ok", http.StatusOK
		if err := db.Ping(ctx); err != nil {
			handlerLogger.Error("Health check: storage unavailable", "error", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}

		writeJSON(w, code, map[string]string{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   "scribe",
		})
	}
}
