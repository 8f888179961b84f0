package apperror

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Error  Kind   `json:"error"`
	Detail string `json:"detail"`
}

// WriteHTTP writes err as a JSON error body with the matching status code.
func WriteHTTP(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(kind))
	json.NewEncoder(w).Encode(errorBody{Error: kind, Detail: Message(err)})
}
