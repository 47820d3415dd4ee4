package store

import "time"

type Session struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// History is one completed question/answer pair of a session.
type History struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}
