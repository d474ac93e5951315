package handlers

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"Scribe/internal/apperror"
	"Scribe/internal/chatservice"
)

// sendRequest - тело POST /message/send/{roomname}.
// Указатели отличают отсутствующее поле от пустого значения.
type sendRequest struct {
	Message *sendMessage `json:"message" validate:"required"`
}

type sendMessage struct {
	Username  *string  `json:"username" validate:"required"`
	Roomname  *string  `json:"roomname" validate:"required"`
	Content   *string  `json:"content" validate:"required"`
	Timestamp *float64 `json:"timestamp" validate:"required"`
}

type messageItem struct {
	Offset    int64  `json:"offset"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

type messagesResponse struct {
	Roomname string        `json:"roomname"`
	Messages []messageItem `json:"messages"`
}

// тело send - одно сообщение, мегабайта хватает с запасом
const maxSendBody = 1 << 20

type sendResponse struct {
	Status int `json:"status"`
}

func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) error {
	roomname := chi.URLParam(r, "roomname")

	msgs, err := h.Service.Messages(roomname)
	if err != nil {
		return err
	}

	resp := messagesResponse{Roomname: roomname, Messages: make([]messageItem, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, messageItem{
			Offset:    m.Offset,
			Username:  m.Username,
			Content:   m.Content,
			Timestamp: m.Timestamp.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) error {
	roomname := chi.URLParam(r, "roomname")
	defer r.Body.Close()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSendBody))
	if err != nil {
		return apperror.Wrap(apperror.Unprocessable, err, "could not read body")
	}

	// Unmarshal, в отличие от Decoder, не пропускает мусор после JSON значения
	var req sendRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return apperror.Wrap(apperror.Unprocessable, err, "invalid JSON body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return apperror.Wrap(apperror.Unprocessable, err, "invalid fields: %s", describeValidation(err))
	}

	msg := req.Message
	if *msg.Roomname != roomname {
		return apperror.New(apperror.Unprocessable, "body roomname %q does not match path room %q", *msg.Roomname, roomname)
	}

	ts, ok := fromUnixSeconds(*msg.Timestamp)
	if !ok {
		return apperror.New(apperror.Unprocessable, "timestamp %v is out of range", *msg.Timestamp)
	}

	_, err = h.Service.Send(r.Context(), chatservice.SendInput{
		Room:      roomname,
		Username:  *msg.Username,
		Content:   *msg.Content,
		Timestamp: ts,
	})
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, sendResponse{Status: http.StatusOK})
	return nil
}

// describeValidation превращает ошибки validator в "message.username, message.content"
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(strings.TrimPrefix(fe.Namespace(), "sendRequest.")))
	}
	return strings.Join(fields, ", ") + " required"
}

// fromUnixSeconds переводит секунды в время; false, если хранилище не сможет его записать
func fromUnixSeconds(sec float64) (time.Time, bool) {
	// int64(whole) определен только внутри диапазона int64
	if math.IsNaN(sec) || math.Abs(sec) >= 1<<62 {
		return time.Time{}, false
	}
	whole, frac := math.Modf(sec)
	ts := time.Unix(int64(whole), int64(frac*float64(time.Second))).UTC()
	return ts, chatservice.ValidTimestamp(ts)
}
