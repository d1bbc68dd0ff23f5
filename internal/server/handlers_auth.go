package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/creatordesk/internal/auth"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/users"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerRequestPayload struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

type loginRequestPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponsePayload struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
	TokenType string `json:"token_type"`
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request registerRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c, "users.register.invalid_body", "Dados incompletos.")
		return
	}

	_, err := h.users.Register(c.Request.Context(), users.Registration{
		FirstName: request.FirstName,
		LastName:  request.LastName,
		Username:  request.Username,
		Password:  request.Password,
	})
	if err != nil {
		h.respondError(c, err, "Erro ao registrar.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Usuário registrado com sucesso!"})
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c, "users.authenticate.invalid_body", "Usuário ou senha inválidos")
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), request.Username, request.Password)
	if err != nil {
		h.respondError(c, err, "Erro ao autenticar.")
		return
	}

	token, expiresIn, err := h.tokens.IssueToken(c.Request.Context(), auth.Identity{Username: user.Username})
	if err != nil {
		h.logger.Error("failed to issue backend token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "token_issue_failed", Message: "Erro ao autenticar."})
		return
	}

	c.JSON(http.StatusOK, loginResponsePayload{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Username:  user.Username,
		Token:     token,
		ExpiresIn: expiresIn,
		TokenType: "Bearer",
	})
}
