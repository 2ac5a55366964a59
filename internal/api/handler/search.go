package handler

import (
	"net/http"

	"github.com/edvin/civicwatch/internal/api/request"
	"github.com/edvin/civicwatch/internal/api/response"
	"github.com/edvin/civicwatch/internal/core"
)

type Search struct {
	svc *core.SearchService
}

func NewSearch(svc *core.SearchService) *Search {
	return &Search{svc: svc}
}

// Search godoc
//
//	@Summary		Search reports and incidents
//	@Description	Case-insensitive match on descriptions, titles, addresses and report IDs. Limit applies per record type.
//	@Tags			Search
//	@Security		BearerAuth
//	@Param			q		query	string	true	"Search text"
//	@Param			limit	query	int		false	"Hits per type (default 5, max 200)"
//	@Success		200	{array}		core.SearchResult
//	@Failure		400	{object}	response.ErrorResponse
//	@Router			/search [get]
func (h *Search) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		response.WriteError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, err := request.StrictLimit(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, results)
}
