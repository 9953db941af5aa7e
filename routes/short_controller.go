package routes

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/quick-form/app"
	"github.com/mbolis/quick-form/httpx"
	"github.com/mbolis/quick-form/log"
	"github.com/mbolis/quick-form/model"
	"github.com/mbolis/quick-form/store"
)

var errLinkTaken = errors.New("link already taken")

// ShortRedirect sends the client to the URL stored under the short link.
func ShortRedirect(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		link := chi.URLParam(r, "link")

		var short model.ShortLink
		err := app.Get(r.Context(), model.ShortPath(link), &short)
		if err != nil {
			httpx.LogStoreError(w, "db.get_short", link, err)
			return
		}

		http.Redirect(w, r, short.URL, http.StatusPermanentRedirect)
	}
}

func CreateShort(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := chi.URLParam(r, "admin_id")

		var req struct {
			Link string `json:"link" form:"link"`
			URL  string `json:"url" form:"url"`
		}
		err := render.Decode(r, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		short, err := model.NewShortLink(req.Link, req.URL, adminID, time.Now())
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.short", "%s", err)
			return
		}
		err = app.RunTransaction(r.Context(), func(ctx context.Context, tx store.Tx) error {
			var existing model.ShortLink
			err := tx.Get(model.ShortPath(short.Link), &existing)
			switch {
			case err == nil:
				return errLinkTaken
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
			return tx.Set(model.ShortPath(short.Link), short)
		})
		switch {
		case errors.Is(err, errLinkTaken):
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "db.insert_short.conflict")
			return
		case err != nil:
			httpx.LogInternalError(w, "db.insert_short", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"link": short.Link,
			"path": "/s/" + short.Link,
		})
	}
}

func DeleteShort(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := chi.URLParam(r, "admin_id")
		link := chi.URLParam(r, "link")

		err := app.RunTransaction(r.Context(), func(ctx context.Context, tx store.Tx) error {
			var short model.ShortLink
			if err := tx.Get(model.ShortPath(link), &short); err != nil {
				return err
			}
			// links of other admins are reported as missing
			if short.AdminID != adminID {
				return store.ErrNotFound
			}
			return tx.Delete(model.ShortPath(link))
		})
		if err != nil {
			httpx.LogStoreError(w, "db.delete_short", link, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
