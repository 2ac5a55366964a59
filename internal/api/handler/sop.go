package handler

import (
	"net/http"

	"github.com/edvin/civicwatch/internal/api/response"
	"github.com/edvin/civicwatch/internal/sop"
)

type SOP struct {
	catalog *sop.Catalog
}

func NewSOP(catalog *sop.Catalog) *SOP {
	return &SOP{catalog: catalog}
}

// List godoc
//
//	@Summary		List standard operating procedures
//	@Tags			SOP
//	@Security		BearerAuth
//	@Success		200	{array}	sop.Procedure
//	@Router			/sop [get]
func (h *SOP) List(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		response.WriteJSON(w, http.StatusOK, []sop.Procedure{})
		return
	}
	response.WriteJSON(w, http.StatusOK, h.catalog.All())
}
