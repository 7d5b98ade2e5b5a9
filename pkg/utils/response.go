package utils

import (
	"encoding/json"
	"net/http"
	"strconv"

	"arremate-backend/internal/apperr"
)

type errorBody struct {
	Code    apperr.Kind       `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Error writes err as {"error": {code, message, details}} with its HTTP status
func Error(w http.ResponseWriter, err error) {
	e := apperr.From(err)
	JSON(w, e.HTTPStatus(), map[string]errorBody{
		"error": {Code: e.Kind, Message: e.Message, Details: e.Details},
	})
}

// DecodeJSON reads the request body into v
func DecodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("corpo da requisição inválido").Wrap(err)
	}
	return nil
}

// QueryInt parses an optional integer query parameter
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("parâmetro %s inválido", name).WithDetail(name, raw)
	}
	return v, nil
}
