package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Nzyazin/momopay/internal/core/logger"
	"github.com/Nzyazin/momopay/internal/core/usecase"
)

type ErrorResponse struct {
	Detail string `json:"detail"`
}

func respondWithError(w http.ResponseWriter, code int, detail string) {
	respondWithJSON(w, code, ErrorResponse{Detail: detail})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"Internal Server Error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithUsecaseError is the single place where failure kinds become HTTP statuses.
func respondWithUsecaseError(w http.ResponseWriter, log logger.Logger, r *http.Request, err error) {
	code, detail := errorStatus(err)

	fields := []logger.Field{
		logger.StringField("method", r.Method),
		logger.StringField("path", r.URL.Path),
		logger.IntField("status", code),
		logger.StringField("kind", usecase.KindOf(err).String()),
		logger.ErrorField("error", err),
	}
	if code >= http.StatusInternalServerError {
		log.Error("Request failed", fields...)
	} else {
		log.Warn("Request rejected", fields...)
	}

	respondWithError(w, code, detail)
}

func errorStatus(err error) (int, string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, "Internal Server Error"
	}

	switch ucErr.Kind {
	case usecase.KindValidation:
		return http.StatusBadRequest, ucErr.Message
	case usecase.KindNotFound:
		return http.StatusNotFound, ucErr.Message
	case usecase.KindUpstreamRejected:
		if ucErr.StatusCode >= 400 && ucErr.StatusCode < 600 {
			return ucErr.StatusCode, ucErr.Message
		}
		return http.StatusBadGateway, ucErr.Message
	case usecase.KindUpstreamAuth, usecase.KindTransport:
		return http.StatusInternalServerError, ucErr.Error()
	default:
		return http.StatusInternalServerError, ucErr.Message
	}
}
