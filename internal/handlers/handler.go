package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"Scribe/internal/apperror"
	"Scribe/internal/chatservice"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var handlerLogger = slog.With("component", "http")

// ChatHandler - HTTP обертка над ChatService
type ChatHandler struct {
	Service  *chatservice.ChatService
	Validate *validator.Validate
}

func NewChatHandler(svc *chatservice.ChatService) *ChatHandler {
	return &ChatHandler{
		Service:  svc,
		Validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// errorBody - единый формат ошибки для клиента
type errorBody struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		handlerLogger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.From(err)
	status := appErr.Status()

	attrs := []any{
		"request_id", RequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		handlerLogger.Error("Request failed", attrs...)
	} else {
		handlerLogger.Warn("Request rejected", attrs...)
	}

	writeJSON(w, status, errorBody{Code: status, Description: appErr.Message})
}

// HandlerFunc - обработчик, который возвращает ошибку вместо записи ответа
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

func WrapHandler(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			writeError(w, r, err)
		}
	}
}
