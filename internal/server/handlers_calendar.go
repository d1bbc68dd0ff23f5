package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/creatordesk/internal/calendar"
	"github.com/gin-gonic/gin"
)

type calendarRequestPayload struct {
	Date     string `json:"data"`
	Location string `json:"localizacao"`
	Notes    string `json:"notas"`
}

func (p calendarRequestPayload) details() calendar.Details {
	return calendar.Details{Date: p.Date, Location: p.Location, Notes: p.Notes}
}

func (h *httpHandler) handleListCalendar(c *gin.Context) {
	entries, err := h.calendar.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Erro ao ler o calendário")
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *httpHandler) handleCreateCalendarEntry(c *gin.Context) {
	var request calendarRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c, "calendar.create.invalid_body", "DATA e LOCALIZAÇÃO são obrigatórios.")
		return
	}
	entry, err := h.calendar.Create(c.Request.Context(), request.details())
	if err != nil {
		h.respondError(c, err, "Erro ao adicionar local no calendário")
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *httpHandler) handleUpdateCalendarEntry(c *gin.Context) {
	var request calendarRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c, "calendar.update.invalid_body", "Dados inválidos.")
		return
	}
	entry, err := h.calendar.Update(c.Request.Context(), c.Param("id"), request.details())
	if err != nil {
		h.respondError(c, err, "Erro ao atualizar local do calendário")
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *httpHandler) handleDeleteCalendarEntry(c *gin.Context) {
	if err := h.calendar.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, "Erro ao remover local do calendário")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Registro removido com sucesso."})
}
