package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type userItem struct {
	User string `json:"user"`
}

type createUserResponse struct {
	Username    string   `json:"username"`
	JoinedRooms []string `json:"joined_rooms"`
}

func (h *ChatHandler) ListUsers(w http.ResponseWriter, r *http.Request) error {
	users := h.Service.Users()
	resp := make([]userItem, 0, len(users))
	for _, u := range users {
		resp = append(resp, userItem{User: u})
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

func (h *ChatHandler) CreateUser(w http.ResponseWriter, r *http.Request) error {
	username := chi.URLParam(r, "username")

	rooms, err := h.Service.CreateUser(r.Context(), username)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, createUserResponse{Username: username, JoinedRooms: nonNil(rooms)})
	return nil
}

func (h *ChatHandler) DeleteUser(w http.ResponseWriter, r *http.Request) error {
	if err := h.Service.DeleteUser(r.Context(), chi.URLParam(r, "username")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
