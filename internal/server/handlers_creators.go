package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/creatordesk/internal/creators"
	"github.com/gin-gonic/gin"
)

const messageNotMirrored = "Não foi possível sincronizar com o Google Sheets agora."

type creatorRequestPayload struct {
	FirstName string `json:"nome"`
	LastName  string `json:"sobrenome"`
	Guardian  string `json:"responsavel"`
	Instagram string `json:"instagram"`
	TikTok    string `json:"tiktok"`
	Phone     string `json:"telefone"`
	WhatsApp  string `json:"whatsapp"`
	Notes     string `json:"obs"`
	Username  string `json:"username"`
}

func (p creatorRequestPayload) fields() creators.Fields {
	return creators.Fields{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Guardian:  p.Guardian,
		Instagram: p.Instagram,
		TikTok:    p.TikTok,
		Phone:     p.Phone,
		WhatsApp:  p.WhatsApp,
		Notes:     p.Notes,
		Username:  p.Username,
	}
}

type createCreatorResponse struct {
	creators.Creator
	SheetSync   bool   `json:"sheetSync"`
	SheetStatus string `json:"sheetStatus"`
	Message     string `json:"message,omitempty"`
}

type creatorMutationResponse struct {
	Message     string `json:"message"`
	SheetSync   bool   `json:"sheetSync"`
	SheetStatus string `json:"sheetStatus"`
}

func (h *httpHandler) handleListCreators(c *gin.Context) {
	owner := strings.TrimSpace(c.Query("username"))
	if owner == "" {
		owner = requesterOf(c)
	}
	records, err := h.creators.List(c.Request.Context(), owner)
	if err != nil {
		h.respondError(c, err, "Erro ao listar creators.")
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *httpHandler) handleCreateCreator(c *gin.Context) {
	var request creatorRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c, "creators.create.invalid_body", "Dados inválidos.")
		return
	}

	outcome, err := h.creators.Create(c.Request.Context(), requesterOf(c), request.fields())
	if err != nil {
		h.respondError(c, err, "Erro ao adicionar creator")
		return
	}

	response := createCreatorResponse{
		Creator:     outcome.Creator,
		SheetSync:   outcome.Mirror.Synced(),
		SheetStatus: string(outcome.Mirror.Status),
	}
	if !response.SheetSync {
		response.Message = messageNotMirrored
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleUpdateCreator(c *gin.Context) {
	id, ok := parseCreatorID(c, "creators.update.invalid_id")
	if !ok {
		return
	}
	var request creatorRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c, "creators.update.invalid_body", "Dados inválidos.")
		return
	}

	outcome, err := h.creators.Update(c.Request.Context(), requesterOf(c), id, request.fields())
	if err != nil {
		h.respondError(c, err, "Erro ao editar Creator")
		return
	}
	c.JSON(http.StatusOK, creatorMutationResponse{
		Message:     "Creator updated successfully",
		SheetSync:   outcome.Mirror.Synced(),
		SheetStatus: string(outcome.Mirror.Status),
	})
}

func (h *httpHandler) handleDeleteCreator(c *gin.Context) {
	id, ok := parseCreatorID(c, "creators.delete.invalid_id")
	if !ok {
		return
	}

	outcome, err := h.creators.Delete(c.Request.Context(), requesterOf(c), id)
	if err != nil {
		h.respondError(c, err, "Erro ao excluir o Creator.")
		return
	}
	c.JSON(http.StatusOK, creatorMutationResponse{
		Message:     "Creator deleted successfully",
		SheetSync:   outcome.Mirror.Synced(),
		SheetStatus: string(outcome.Mirror.Status),
	})
}

func (h *httpHandler) handleDeleteAllCreators(c *gin.Context) {
	deleted, err := h.creators.DeleteAll(c.Request.Context(), requesterOf(c))
	if err != nil {
		h.respondError(c, err, "Erro ao excluir creators.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Todos os creators excluídos.", "deleted": deleted})
}

func parseCreatorID(c *gin.Context, code string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondInvalidRequest(c, code, "Identificador inválido.")
		return 0, false
	}
	return id, true
}
