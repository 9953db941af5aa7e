package model

import "time"

type Role string

const (
	SystemRole    Role = "system"
	UserRole      Role = "user"
	AssistantRole Role = "assistant"
)

type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

// Session is a single respondent's interaction with a form.
type Session struct {
	ID       string    `json:"id"`
	FormID   string    `json:"form_id"`
	AdminID  string    `json:"admin_id"`
	Email    string    `json:"email"`
	Messages []Message `json:"messages"`
	Finished bool      `json:"finished"`
	Created  time.Time `json:"created"`
}
