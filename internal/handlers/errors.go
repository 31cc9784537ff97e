package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"

	"task-tracker-api/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// storageUnavailable is all a client learns about a failing store.
const storageUnavailable = "storage temporarily unavailable, please retry"

// respondError maps an engine error to its HTTP status and body.
func respondError(c *gin.Context, log logrus.FieldLogger, err error) {
	var verr *apperr.ValidationError
	var rerr *apperr.RepositoryError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrIllegalTransition), errors.Is(err, apperr.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &rerr):
		log.WithError(err).WithField("request_id", c.GetString("request_id")).Error("task store failure")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": storageUnavailable})
	default:
		log.WithError(err).WithField("request_id", c.GetString("request_id")).Error("unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// bindFailed answers a body that did not decode. A value of the wrong JSON
// type is reported against its field like any other validation failure.
func bindFailed(c *gin.Context, log logrus.FieldLogger, err error, message string) {
	var terr *json.UnmarshalTypeError
	if errors.As(err, &terr) && terr.Field != "" {
		respondError(c, log, apperr.Invalid(terr.Field, "must be %s", jsonKind(terr.Type)))
		return
	}
	badRequest(c, message)
}

func jsonKind(t reflect.Type) string {
	if t == nil {
		return "a valid value"
	}
	switch t.Kind() {
	case reflect.Float32, reflect.Float64,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Slice, reflect.Array:
		return "a list"
	}
	return "a " + t.String()
}
