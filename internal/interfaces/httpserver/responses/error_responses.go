package responses

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mediavault/internal/utils/platformerrors"
)

// ErrorResponse is the body of every failed request. Code is the stable
// error type, Reference the call-site UUID of the PlatformError.
type ErrorResponse struct {
	Code          string `json:"code"`
	Error         string `json:"error"`
	Message       string `json:"message,omitempty"`
	Reference     string `json:"reference,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
	ErrorInstance error  `json:"-"`
}

// HandleError logs err and renders it. The wrapped cause is never serialized.
func HandleError(reqCtx *gin.Context, log zerolog.Logger, err error, message string) {
	if domainErr := platformerrors.GetPlatformError(err); domainErr != nil {
		platformerrors.LogError(log, domainErr)
		_ = reqCtx.Error(err)

		errorMessage := domainErr.Message
		if errorMessage == "" {
			errorMessage = message
		}
		requestID := domainErr.GetRequestID()
		if requestID == "" {
			requestID = reqCtx.GetString("request_id")
		}

		reqCtx.AbortWithStatusJSON(platformerrors.ErrorTypeToHTTPStatus(domainErr.GetErrorType()), ErrorResponse{
			Code:          string(domainErr.GetErrorType()),
			Error:         errorMessage,
			Message:       errorMessage,
			Reference:     domainErr.GetUUID(),
			RequestID:     requestID,
			ErrorInstance: domainErr,
		})
		return
	}

	log.Error().Err(err).Str("request_id", reqCtx.GetString("request_id")).Msg(message)
	_ = reqCtx.Error(err)
	reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Code:          string(platformerrors.ErrorTypeInternal),
		Error:         message,
		Message:       message,
		RequestID:     reqCtx.GetString("request_id"),
		ErrorInstance: err,
	})
}

// HandleNewError creates a new typed error at the handler layer and renders it
func HandleNewError(reqCtx *gin.Context, log zerolog.Logger, errorType platformerrors.ErrorType, message string, uuid string) {
	err := platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerHandler, errorType, message, nil, uuid)
	HandleError(reqCtx, log, err, message)
}
