package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/mindengage-norms/internal/auth/middleware"
	"github.com/mind-engage/mindengage-norms/internal/inventory"
	"github.com/mind-engage/mindengage-norms/internal/logging"
)

func ListStockHandler(s *inventory.Store, log logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := s.ListItems(r.Context())
		if err != nil {
			log.Errorf("list stock: %v", err)
			respondError(w, http.StatusInternalServerError, "list failed")
			return
		}
		if items == nil {
			items = []inventory.Item{}
		}
		respondJSON(w, http.StatusOK, items)
	}
}

func StockMovementsHandler(s *inventory.Store, log logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "bad item id")
			return
		}
		list, err := s.Movements(r.Context(), itemID, parseIntDefault(r.URL.Query().Get("limit"), 50))
		if err != nil {
			log.Errorf("stock movements %d: %v", itemID, err)
			respondError(w, http.StatusInternalServerError, "list failed")
			return
		}
		if list == nil {
			list = []inventory.Movement{}
		}
		respondJSON(w, http.StatusOK, list)
	}
}

type restockRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
	Note     string `json:"note" validate:"max=500"`
}

// RestockHandler serves POST /stock/restock, the only inbound stock path.
func RestockHandler(s *inventory.Store, log logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req restockRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		userID, _ := authmw.UserIDFromContext(r.Context())
		it, err := s.Restock(r.Context(), strings.TrimSpace(req.Name), req.Quantity, userID, req.Note)
		if err != nil {
			log.Errorf("restock %q: %v", req.Name, err)
			respondError(w, http.StatusInternalServerError, "restock failed")
			return
		}
		respondJSON(w, http.StatusOK, it)
	}
}
