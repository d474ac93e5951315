package handlers

import (
	"maps"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"Scribe/internal/apperror"
)

type roomItem struct {
	Room string `json:"room"`
}

type userRoomsResponse struct {
	User  string   `json:"user"`
	Rooms []string `json:"rooms"`
}

func (h *ChatHandler) ListRooms(w http.ResponseWriter, r *http.Request) error {
	rooms := h.Service.Rooms()
	resp := make([]roomItem, 0, len(rooms))
	for _, room := range rooms {
		resp = append(resp, roomItem{Room: room})
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

func (h *ChatHandler) CreateRoom(w http.ResponseWriter, r *http.Request) error {
	roomname := chi.URLParam(r, "roomname")
	if err := h.Service.CreateRoom(r.Context(), roomname); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, roomItem{Room: roomname})
	return nil
}

func (h *ChatHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) error {
	if err := h.Service.DeleteRoom(r.Context(), chi.URLParam(r, "roomname")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

// usernameParam - обязательный query параметр join/leave
func usernameParam(r *http.Request) (string, error) {
	q := r.URL.Query()
	if !q.Has("username") || q.Get("username") == "" {
		return "", apperror.New(apperror.Unprocessable, "query parameter username is required")
	}
	return q.Get("username"), nil
}

func (h *ChatHandler) JoinRoom(w http.ResponseWriter, r *http.Request) error {
	username, err := usernameParam(r)
	if err != nil {
		return err
	}

	rooms, err := h.Service.Join(r.Context(), username, chi.URLParam(r, "roomname"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, userRoomsResponse{User: username, Rooms: nonNil(rooms)})
	return nil
}

func (h *ChatHandler) LeaveRoom(w http.ResponseWriter, r *http.Request) error {
	username, err := usernameParam(r)
	if err != nil {
		return err
	}

	rooms, err := h.Service.Leave(r.Context(), username, chi.URLParam(r, "roomname"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, userRoomsResponse{User: username, Rooms: nonNil(rooms)})
	return nil
}

func (h *ChatHandler) JoinedRooms(w http.ResponseWriter, r *http.Request) error {
	username := chi.URLParam(r, "username")

	rooms, err := h.Service.JoinedRooms(username)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, userRoomsResponse{User: username, Rooms: nonNil(rooms)})
	return nil
}

// AllMemberships отдает [{"room": [members]}, ...] по алфавиту комнат
func (h *ChatHandler) AllMemberships(w http.ResponseWriter, r *http.Request) error {
	memberships := h.Service.Memberships()

	resp := make([]map[string][]string, 0, len(memberships))
	for _, room := range slices.Sorted(maps.Keys(memberships)) {
		resp = append(resp, map[string][]string{room: nonNil(memberships[room])})
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}
