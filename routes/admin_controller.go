package routes

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gofrs/uuid"
	"github.com/mbolis/quick-form/app"
	"github.com/mbolis/quick-form/httpx"
	"github.com/mbolis/quick-form/log"
	"github.com/mbolis/quick-form/model"
	"github.com/mbolis/quick-form/store"
)

var errVersionConflict = errors.New("version conflict")

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := chi.URLParam(r, "admin_id")

		form := model.Form{}
		err := render.DecodeJSON(r.Body, &form)
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body", "%s", err)
			return
		}

		if issues := form.Issues(); len(issues) > 0 {
			httpx.LogIssues(w, r, "create_form.validate", issues)
			return
		}

		now := time.Now()
		form.ID = uuid.Must(uuid.NewV4()).String()
		form.AdminID = adminID
		form.Version = 1
		form.Results = nil
		form.Created = now
		form.Updated = now

		err = app.Set(r.Context(), model.FormPath(adminID, form.ID), form)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_form", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": form.ID,
		})
	}
}

// ValidateForm reports the issues of a form definition without storing it.
func ValidateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := model.Form{}
		err := render.DecodeJSON(r.Body, &form)
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body", "%s", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"issues": form.Issues(),
		})
	}
}

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := chi.URLParam(r, "admin_id")

		snapshots, err := app.List(r.Context(), model.FormsPath(adminID))
		if err != nil {
			httpx.LogInternalError(w, "db.get_forms", err)
			return
		}

		type formSummary struct {
			ID      string `json:"id"`
			Version int    `json:"version"`
			Title   string `json:"title"`
			Inputs  int    `json:"inputs"`
			Results int    `json:"results"`
		}
		forms := []formSummary{}
		for _, snap := range snapshots {
			f := model.Form{}
			err = snap.DataTo(&f)
			if err != nil {
				httpx.LogInternalError(w, "db.get_forms.decode", err)
				return
			}
			forms = append(forms, formSummary{
				ID:      snap.ID,
				Version: f.Version,
				Title:   f.Title,
				Inputs:  len(f.Inputs),
				Results: len(f.Results),
			})
		}

		render.JSON(w, r, map[string]any{
			"forms": forms,
		})
	}
}

func GetForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := chi.URLParam(r, "admin_id")
		formID := chi.URLParam(r, "form_id")

		form := model.Form{}
		err := app.Get(r.Context(), model.FormPath(adminID, formID), &form)
		if err != nil {
			httpx.LogStoreError(w, "db.get_form", formID, err)
			return
		}

		render.JSON(w, r, form)
	}
}

// UpdateForm rewrites the definition of a form. The request must carry the
// version it was based on. Inputs of a form with results are never changed in
// place: such an edit is stored as a new form and the old one keeps its results.
func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := chi.URLParam(r, "admin_id")
		formID := chi.URLParam(r, "form_id")

		update := model.Form{}
		err := render.DecodeJSON(r.Body, &update)
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body", "%s", err)
			return
		}

		if issues := update.Issues(); len(issues) > 0 {
			httpx.LogIssues(w, r, "update_form.validate", issues)
			return
		}

		var saved model.Form
		err = app.RunTransaction(r.Context(), func(ctx context.Context, tx store.Tx) error {
			path := model.FormPath(adminID, formID)

			form := model.Form{}
			if err := tx.Get(path, &form); err != nil {
				return err
			}
			// optimistic lock
			if form.Version != update.Version {
				return errVersionConflict
			}

			now := time.Now()
			if len(form.Results) > 0 && !model.SameInputs(form.Inputs, update.Inputs) {
				saved = model.Form{
					ID:      uuid.Must(uuid.NewV4()).String(),
					AdminID: adminID,
					Version: 1,
					Title:   update.Title,
					Inputs:  update.Inputs,
					Users:   update.Users,
					Created: now,
					Updated: now,
				}
				return tx.Set(model.FormPath(adminID, saved.ID), saved)
			}

			form.ID = formID
			form.Title = update.Title
			form.Inputs = update.Inputs
			form.Users = update.Users
			form.Version++
			form.Updated = now
			saved = form
			return tx.Set(path, form)
		})
		switch {
		case errors.Is(err, errVersionConflict):
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "db.update_form.verify.conflict")
			return
		case err != nil:
			httpx.LogStoreError(w, "db.update_form", formID, err)
			return
		}

		if saved.ID != formID {
			log.Debugf("update_form: %s has results, edit stored as %s", formID, saved.ID)
			render.Status(r, http.StatusCreated)
		}
		render.JSON(w, r, map[string]any{
			"id":      saved.ID,
			"version": saved.Version,
		})
	}
}

func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := chi.URLParam(r, "admin_id")
		formID := chi.URLParam(r, "form_id")

		sessions, err := app.List(r.Context(), model.SessionsPath(adminID, formID))
		if err != nil {
			httpx.LogInternalError(w, "db.delete_form.sessions", err)
			return
		}

		err = app.RunTransaction(r.Context(), func(ctx context.Context, tx store.Tx) error {
			path := model.FormPath(adminID, formID)

			var form model.Form
			if err := tx.Get(path, &form); err != nil {
				return err
			}
			for _, s := range sessions {
				if err := tx.Delete(s.Path); err != nil {
					return err
				}
			}
			return tx.Delete(path)
		})
		if err != nil {
			httpx.LogStoreError(w, "db.delete_form", formID, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type resultField struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

func GetFormResults(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := chi.URLParam(r, "admin_id")
		formID := chi.URLParam(r, "form_id")

		form := model.Form{}
		err := app.Get(r.Context(), model.FormPath(adminID, formID), &form)
		if err != nil {
			httpx.LogStoreError(w, "db.get_results", formID, err)
			return
		}

		keys := model.FieldKeys(form.Inputs)
		fields := make([]resultField, len(keys))
		for i, key := range keys {
			fields[i] = resultField{Key: key, Label: form.Inputs[i].Label}
		}
		results := form.Results
		if results == nil {
			results = []model.Result{}
		}

		render.JSON(w, r, map[string]any{
			"fields":  fields,
			"results": results,
		})
	}
}

// ExportFormResults writes one CSV row per result, answer columns in input order.
func ExportFormResults(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := chi.URLParam(r, "admin_id")
		formID := chi.URLParam(r, "form_id")

		form := model.Form{}
		err := app.Get(r.Context(), model.FormPath(adminID, formID), &form)
		if err != nil {
			httpx.LogStoreError(w, "db.get_results", formID, err)
			return
		}

		w.Header().Set("content-type", "text/csv; charset=utf-8")
		w.Header().Set("content-disposition", `attachment; filename="`+formID+`.csv"`)

		err = writeResultsCSV(w, form)
		if err != nil {
			log.Errorf("export_results.write: %s", err)
		}
	}
}

func writeResultsCSV(w http.ResponseWriter, form model.Form) error {
	keys := model.FieldKeys(form.Inputs)

	out := csv.NewWriter(w)
	header := append([]string{"date", "email", "session_id"}, keys...)
	if err := out.Write(header); err != nil {
		return err
	}

	for _, result := range form.Results {
		row := make([]string, 0, len(header))
		row = append(row, result.Date, result.Email, result.SessionID)
		for _, key := range keys {
			row = append(row, result.Answers[key])
		}
		if err := out.Write(row); err != nil {
			return err
		}
	}

	out.Flush()
	return out.Error()
}
