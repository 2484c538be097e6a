// README: API gateway; wraps the gin router with CORS for browser clients.
package http

import (
	"net/http"

	gorillahandlers "github.com/gorilla/handlers"
)

type Server struct {
	router  http.Handler
	origins []string
}

func NewServer(deps ServerDeps) *Server {
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{router: NewRouter(deps), origins: origins}
}

func (s *Server) Routes() http.Handler {
	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(s.origins),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)
	return cors(s.router)
}
