package server

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "embed"
)

//go:embed openapi.json
var openapiDoc []byte

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(openapiDoc)
}

func (s *Server) swaggerHandler() http.HandlerFunc {
	return httpSwagger.Handler(httpSwagger.URL("/openapi.json"))
}
