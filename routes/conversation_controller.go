package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mbolis/quick-form/app"
	"github.com/mbolis/quick-form/httpx"
	"github.com/mbolis/quick-form/log"
	"github.com/mbolis/quick-form/model"
	"github.com/mbolis/quick-form/store"
)

// DeleteSessionPage removes a session and its results, then sends the admin back to the form view.
func DeleteSessionPage(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := chi.URLParam(r, "admin_id")
		formID := chi.URLParam(r, "form_id")
		sessionID := chi.URLParam(r, "session_id")

		err := deleteSession(r.Context(), app.Store, adminID, formID, sessionID)
		if err != nil {
			httpx.LogStoreError(w, "db.delete_session", formID, err)
			return
		}

		http.Redirect(w, r, "/admin/view/"+formID, http.StatusPermanentRedirect)
	}
}

func DeleteSession(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := chi.URLParam(r, "admin_id")
		formID := chi.URLParam(r, "form_id")
		sessionID := chi.URLParam(r, "session_id")

		err := deleteSession(r.Context(), app.Store, adminID, formID, sessionID)
		if err != nil {
			httpx.LogStoreError(w, "db.delete_session", formID, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// deleteSession drops the session's results from the form and deletes the
// session document. Both happen in one transaction so concurrent deletions
// and submissions cannot overwrite each other's results.
func deleteSession(ctx context.Context, st store.Store, adminID, formID, sessionID string) error {
	return st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		formPath := model.FormPath(adminID, formID)

		var form model.Form
		if err := tx.Get(formPath, &form); err != nil {
			return err
		}

		if n := form.RemoveSession(sessionID); n > 0 {
			log.Debugf("delete_session: %d results removed from %s", n, formPath)
			if err := tx.Set(formPath, form); err != nil {
				return err
			}
		}
		return tx.Delete(model.SessionPath(adminID, formID, sessionID))
	})
}
