package middlewares

import "net/http"

const allowedMethods = "GET, POST, PUT, DELETE, PATCH, OPTIONS"

// Cors admits every origin. Preflight requests are answered here and never reach next.
func Cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		if r.Method == http.MethodOptions {
			header.Set("Access-Control-Allow-Methods", allowedMethods)
			header.Set("Access-Control-Allow-Origin", "*")
			header.Set("Access-Control-Allow-Headers", "*")
			w.WriteHeader(http.StatusOK)
			return
		}

		header.Add("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}
