package handlers

import (
	"errors"
	"net/http"

	"netbons/internal/services"

	"github.com/gin-gonic/gin"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Order matters: the credential variants are checked before the umbrella.
var errorMappings = []errorMapping{
	{services.ErrEmailNotFound, http.StatusUnauthorized, "email_not_found"},
	{services.ErrWrongPassword, http.StatusUnauthorized, "wrong_password"},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{services.ErrDuplicateEmail, http.StatusConflict, "duplicate_email"},
	{services.ErrWeakPassword, http.StatusUnprocessableEntity, "weak_password"},
	{services.ErrMissingEmail, http.StatusUnprocessableEntity, "missing_email"},
	{services.ErrNotAuthenticated, http.StatusUnauthorized, "not_authenticated"},
	{services.ErrProfileRequired, http.StatusForbidden, "profile_required"},
	{services.ErrUnknownProfile, http.StatusNotFound, "unknown_profile"},
	{services.ErrMovieNotFound, http.StatusNotFound, "not_found"},
	{services.ErrUnplayable, http.StatusNotFound, "unplayable"},
	{services.ErrInvalidLink, http.StatusUnprocessableEntity, "invalid_link"},
	{services.ErrInvalidMetadata, http.StatusUnprocessableEntity, "invalid_metadata"},
	{services.ErrUploadFailed, http.StatusInternalServerError, "upload_failed"},
}

// writeError maps service errors onto status codes. Upload failures carry
// only the generic message; the cause is logged by the service.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		msg := err.Error()
		if m.target == services.ErrUploadFailed {
			msg = services.ErrUploadFailed.Error()
		}
		c.JSON(m.status, errorBody{Error: m.code, Message: msg})
		return
	}
	c.JSON(http.StatusInternalServerError, errorBody{Error: "internal", Message: "internal error"})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
}
