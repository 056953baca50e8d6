package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func pathString(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

func pathInt64(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

func queryInt(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
