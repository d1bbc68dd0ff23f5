package server

import (
	"errors"
	"net/http"

	"github.com/MarcoPoloResearchLab/creatordesk/internal/calendar"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/creators"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/serviceerr"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/spreadsheet"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/users"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorClass struct {
	sentinel error
	status   int
	label    string
	message  string
}

// errorClasses is checked in order; the first sentinel found in the chain wins.
var errorClasses = []errorClass{
	{users.ErrMissingCredentials, http.StatusBadRequest, "invalid_request", "Dados incompletos."},
	{users.ErrUsernameTaken, http.StatusBadRequest, "username_taken", "Usuário já existe."},
	{users.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "Usuário ou senha inválidos"},
	{creators.ErrMissingOwner, http.StatusBadRequest, "invalid_request", "Usuário não informado."},
	{creators.ErrForbidden, http.StatusForbidden, "forbidden", "You do not have permission to modify this record."},
	{creators.ErrNotFound, http.StatusNotFound, "not_found", "Creator not found"},
	{calendar.ErrMissingDetails, http.StatusBadRequest, "invalid_request", "DATA e LOCALIZAÇÃO são obrigatórios."},
	{calendar.ErrNotFound, http.StatusNotFound, "not_found", "Registro não encontrado."},
	{spreadsheet.ErrSheetNotFound, http.StatusNotFound, "not_found", "Sheet não encontrada."},
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// respondError maps a service error onto a status code. Unclassified errors are
// reported as 500 with fallbackMessage.
func (h *httpHandler) respondError(c *gin.Context, err error, fallbackMessage string) {
	for _, class := range errorClasses {
		if errors.Is(err, class.sentinel) {
			c.JSON(class.status, errorResponse{Error: class.label, Code: serviceerr.CodeOf(err), Message: class.message})
			return
		}
	}
	h.logger.Error("request failed",
		zap.String("path", c.FullPath()),
		zap.String("code", serviceerr.CodeOf(err)),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal_error", Code: serviceerr.CodeOf(err), Message: fallbackMessage})
}

func respondInvalidRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_request", Code: code, Message: message})
}
