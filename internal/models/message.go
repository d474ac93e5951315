package models

import "time"

// Message - одно сообщение в журнале комнаты.
// Offset уникален в пределах комнаты и идет подряд начиная с 0.
type Message struct {
	Offset    int64     `json:"offset"`
	RoomName  string    `json:"roomname"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

