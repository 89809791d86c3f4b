package handlers

import (
	"chatmate-api/internal/logger"
	"chatmate-api/internal/pkg/errors"
	"encoding/json"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, errorResponse{
		Error:   strings.ToLower(strings.ReplaceAll(http.StatusText(code), " ", "_")),
		Message: message,
	})
}

// respondWithServiceError maps a service error onto an HTTP status.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errors.ErrInvalidInput):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errors.ErrInvalidIdentity):
		respondWithError(w, http.StatusUnauthorized, "Invalid authentication token")
	case errors.Is(err, errors.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, errors.ErrStoreUnavailable):
		logger.LogEvent(logrus.ErrorLevel, "Store unavailable", logrus.Fields{
			"path":  r.URL.Path,
			"error": err.Error(),
		})
		respondWithError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		logger.LogEvent(logrus.ErrorLevel, "Request failed", logrus.Fields{
			"path":  r.URL.Path,
			"error": err.Error(),
		})
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeAndValidate reads a JSON body into dst and checks its validate tags.
func decodeAndValidate(r *http.Request, validate *validator.Validate, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Invalid("Invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.Invalid("invalid " + fe.Field() + ": failed " + fe.Tag() + " check")
		}
		return errors.Invalid(err.Error())
	}
	return nil
}

// NewValidator reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
