package api

import (
	_ "embed"
	"net/http"
)

// OpenAPI describes the ops routes.
//
//go:embed openapi.yaml
var OpenAPI []byte

// HandleOpenAPI serves the embedded OpenAPI document.
func HandleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(OpenAPI)
}
