package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mbolis/quick-form/app"
	"github.com/mbolis/quick-form/log"
	"github.com/mbolis/quick-form/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.Logger, NoColor: true}),
		middleware.Recoverer,
		middlewares.Secure(app.Config.Debug),
		middlewares.Cors,
	)

	root.Get("/s/{link}", ShortRedirect(app))

	root.Mount("/api", apiRouter(app))

	root.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.CookieAuth(app.BearerServer), middlewares.Admin(app.Config.TokenSecret))

		r.With(middlewares.Owner).
			Get("/conversation/{admin_id}/{form_id}/{session_id}/delete", DeleteSessionPage(app))

		r.Mount("/", servePrivateFiles("/admin", app.Config.PrivateDir))
	})
	root.Mount("/", servePublicFiles(app.Config.PublicDir))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Route("/forms/{admin_id}/{form_id}", func(r chi.Router) {
		r.Get("/", PublicGetForm(app))
		r.Post("/sessions", StartSession(app))
		r.Get("/sessions/{session_id}", GetSession(app))
		r.Post("/sessions/{session_id}/messages", SendMessage(app))
		r.Post("/sessions/{session_id}/results", SubmitResult(app))
	})

	api.Route("/admin/{admin_id}", func(r chi.Router) {
		r.Use(middlewares.Admin(app.Config.TokenSecret), middlewares.Owner)

		// CRUD form
		r.Post("/forms", CreateForm(app))
		r.Get("/forms", ListForms(app))
		r.Post("/forms/validate", ValidateForm(app))
		r.Get("/forms/{form_id}", GetForm(app))
		r.Put("/forms/{form_id}", UpdateForm(app))
		r.Delete("/forms/{form_id}", DeleteForm(app))

		r.Get("/forms/{form_id}/results", GetFormResults(app))
		r.Get("/forms/{form_id}/results.csv", ExportFormResults(app))
		r.Delete("/forms/{form_id}/sessions/{session_id}", DeleteSession(app))

		r.Post("/shorts", CreateShort(app))
		r.Delete("/shorts/{link}", DeleteShort(app))
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}

func servePublicFiles(dir string) http.Handler {
	return http.FileServer(http.Dir(dir))
}

func servePrivateFiles(path, dir string) http.Handler {
	return http.StripPrefix(path, http.FileServer(http.Dir(dir)))
}
