package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Dias221467/connections-chat/internal/policy"
	"github.com/Dias221467/connections-chat/pkg/apperrors"
	"github.com/Dias221467/connections-chat/pkg/logger"
	"github.com/Dias221467/connections-chat/pkg/middleware"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type errorBody struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Error("Failed to encode response")
	}
}

// writeError renders err as {"code", "message"} with the status of its code.
// Internal causes are logged and never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()

	entry := logger.Log.WithError(err).WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"code":   code,
	})

	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
		message = "internal server error"
	} else {
		entry.Warn("Request rejected")
	}

	writeJSON(w, status, errorBody{Code: code, Message: message})
}

// principal resolves the authenticated caller, writing 401 when absent.
func principal(w http.ResponseWriter, r *http.Request) (policy.Principal, bool) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		writeError(w, r, apperrors.Unauthorized("missing principal"))
		return policy.Principal{}, false
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		writeError(w, r, apperrors.Unauthorized("token subject is not a valid id"))
		return policy.Principal{}, false
	}
	return policy.Principal{ID: id, Role: claims.Role}, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, apperrors.InvalidArg("invalid request payload"))
		return false
	}
	return true
}
