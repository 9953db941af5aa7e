package model

import "time"

// DateFormat is the layout of Result.Date.
const DateFormat = "2006-01-02"

// Result is one submission. Answers are keyed by FieldKeys of the form's inputs.
type Result struct {
	Date      string            `json:"date"`
	Email     string            `json:"email"`
	FormID    string            `json:"form_id"`
	AdminID   string            `json:"admin_id"`
	SessionID string            `json:"session_id"`
	Answers   map[string]string `json:"answers"`
}

func NewResult(s Session, answers map[string]string, now time.Time) Result {
	if answers == nil {
		answers = map[string]string{}
	}
	return Result{
		Date:      now.Format(DateFormat),
		Email:     s.Email,
		FormID:    s.FormID,
		AdminID:   s.AdminID,
		SessionID: s.ID,
		Answers:   answers,
	}
}
