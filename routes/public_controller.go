package routes

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gofrs/uuid"
	"github.com/mbolis/quick-form/app"
	"github.com/mbolis/quick-form/assistant"
	"github.com/mbolis/quick-form/httpx"
	"github.com/mbolis/quick-form/log"
	"github.com/mbolis/quick-form/model"
	"github.com/mbolis/quick-form/store"
)

var errSessionFinished = errors.New("session already finished")

type answerIssues []string

func (answerIssues) Error() string { return "invalid answers" }

func PublicGetForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := chi.URLParam(r, "admin_id")
		formID := chi.URLParam(r, "form_id")

		form := model.Form{}
		err := app.Get(r.Context(), model.FormPath(adminID, formID), &form)
		if err != nil {
			httpx.LogStoreError(w, "db.get_form", formID, err)
			return
		}

		render.JSON(w, r, form.Public())
	}
}

func StartSession(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := chi.URLParam(r, "admin_id")
		formID := chi.URLParam(r, "form_id")

		var req struct {
			Email string `json:"email" form:"email"`
		}
		err := render.Decode(r, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.email", "email is required")
			return
		}

		form := model.Form{}
		err = app.Get(r.Context(), model.FormPath(adminID, formID), &form)
		if err != nil {
			httpx.LogStoreError(w, "db.get_form", formID, err)
			return
		}
		if !form.Permits(req.Email) {
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "start_session.not_permitted")
			return
		}

		session := model.Session{
			ID:       uuid.Must(uuid.NewV4()).String(),
			FormID:   formID,
			AdminID:  adminID,
			Email:    req.Email,
			Messages: []model.Message{},
			Created:  time.Now(),
		}
		err = app.Set(r.Context(), model.SessionPath(adminID, formID, session.ID), session)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_session", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": session.ID,
		})
	}
}

func GetSession(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := chi.URLParam(r, "admin_id")
		formID := chi.URLParam(r, "form_id")
		sessionID := chi.URLParam(r, "session_id")

		session := model.Session{}
		err := app.Get(r.Context(), model.SessionPath(adminID, formID, sessionID), &session)
		if err != nil {
			httpx.LogStoreError(w, "db.get_session", sessionID, err)
			return
		}

		render.JSON(w, r, session)
	}
}

// SendMessage runs one conversation turn. When the assistant closes the
// conversation the collected answers are stored as the session's result.
func SendMessage(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := chi.URLParam(r, "admin_id")
		formID := chi.URLParam(r, "form_id")
		sessionID := chi.URLParam(r, "session_id")

		if app.Assistant == nil {
			httpx.LogStatus(w, http.StatusServiceUnavailable, log.DebugLevel, "send_message.no_assistant")
			return
		}

		var req struct {
			Content string `json:"content" form:"content"`
		}
		err := render.Decode(r, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		content := assistant.Sanitize(req.Content)
		if content == "" {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.content", "content is required")
			return
		}

		formPath := model.FormPath(adminID, formID)
		sessionPath := model.SessionPath(adminID, formID, sessionID)

		form := model.Form{}
		err = app.Get(r.Context(), formPath, &form)
		if err != nil {
			httpx.LogStoreError(w, "db.get_form", formID, err)
			return
		}
		session := model.Session{}
		err = app.Get(r.Context(), sessionPath, &session)
		if err != nil {
			httpx.LogStoreError(w, "db.get_session", sessionID, err)
			return
		}
		if session.Finished {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "send_message.finished")
			return
		}

		reply, err := app.Assistant.Reply(r.Context(), form, session.Messages, content)
		if err != nil {
			httpx.LogInternalError(w, "assistant.reply", err)
			return
		}

		now := time.Now()
		finished := assistant.Finished(reply)
		var answers map[string]string
		var issues []string
		if finished {
			history := append(append([]model.Message{}, session.Messages...),
				model.Message{Role: model.UserRole, Content: content, Time: now},
				model.Message{Role: model.AssistantRole, Content: reply, Time: now},
			)
			answers, err = app.Assistant.Extract(r.Context(), form, history)
			if err != nil {
				httpx.LogInternalError(w, "assistant.extract", err)
				return
			}
			// the conversation goes on until the extracted answers fit the form
			if issues = form.AnswerIssues(answers); len(issues) > 0 {
				log.Debugf("send_message.extract: %d issues in session %s", len(issues), sessionID)
				finished = false
				reply = assistant.FollowUp(issues)
			}
		}

		turn := []model.Message{
			{Role: model.UserRole, Content: content, Time: now},
			{Role: model.AssistantRole, Content: reply, Time: now},
		}

		err = app.RunTransaction(r.Context(), func(ctx context.Context, tx store.Tx) error {
			session := model.Session{}
			if err := tx.Get(sessionPath, &session); err != nil {
				return err
			}
			if session.Finished {
				return errSessionFinished
			}
			form := model.Form{}
			if finished {
				if err := tx.Get(formPath, &form); err != nil {
					return err
				}
				if issues := form.AnswerIssues(answers); len(issues) > 0 {
					return answerIssues(issues)
				}
			}

			session.Messages = append(session.Messages, turn...)
			if finished {
				session.Finished = true
				form.Results = append(form.Results, model.NewResult(session, answers, now))
				if err := tx.Set(formPath, form); err != nil {
					return err
				}
			}
			return tx.Set(sessionPath, session)
		})
		var changed answerIssues
		switch {
		case errors.As(err, &changed):
			httpx.LogIssues(w, r, "send_message.validate", changed)
			return
		case errors.Is(err, errSessionFinished):
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "send_message.finished")
			return
		case err != nil:
			httpx.LogStoreError(w, "db.update_session", sessionID, err)
			return
		}

		resp := map[string]any{
			"reply":    reply,
			"finished": finished,
		}
		if len(issues) > 0 {
			resp["issues"] = issues
		}
		render.JSON(w, r, resp)
	}
}

// SubmitResult stores answers given directly, closing the session.
func SubmitResult(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := chi.URLParam(r, "admin_id")
		formID := chi.URLParam(r, "form_id")
		sessionID := chi.URLParam(r, "session_id")

		var req struct {
			Answers map[string]string `json:"answers" form:"answers"`
		}
		err := render.Decode(r, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		formPath := model.FormPath(adminID, formID)
		sessionPath := model.SessionPath(adminID, formID, sessionID)

		err = app.RunTransaction(r.Context(), func(ctx context.Context, tx store.Tx) error {
			session := model.Session{}
			if err := tx.Get(sessionPath, &session); err != nil {
				return err
			}
			if session.Finished {
				return errSessionFinished
			}
			form := model.Form{}
			if err := tx.Get(formPath, &form); err != nil {
				return err
			}

			if issues := form.AnswerIssues(req.Answers); len(issues) > 0 {
				return answerIssues(issues)
			}

			session.Finished = true
			form.Results = append(form.Results, model.NewResult(session, sanitizeAnswers(form, req.Answers), time.Now()))
			if err := tx.Set(formPath, form); err != nil {
				return err
			}
			return tx.Set(sessionPath, session)
		})
		var issues answerIssues
		switch {
		case errors.As(err, &issues):
			httpx.LogIssues(w, r, "submit_result.validate", issues)
			return
		case errors.Is(err, errSessionFinished):
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "submit_result.finished")
			return
		case err != nil:
			httpx.LogStoreError(w, "db.insert_result", sessionID, err)
			return
		}

		w.WriteHeader(http.StatusCreated)
	}
}

// sanitizeAnswers strips markup from free-text answers. Choice and number
// answers were already checked against the form.
func sanitizeAnswers(form model.Form, answers map[string]string) map[string]string {
	clean := make(map[string]string, len(answers))
	for i, key := range model.FieldKeys(form.Inputs) {
		value := answers[key]
		if _, ok := form.Inputs[i].Data.(model.StringData); ok {
			value = assistant.Sanitize(value)
		}
		clean[key] = value
	}
	return clean
}
