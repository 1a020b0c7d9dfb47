package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/quickserve/kiosk/internal/domain/menu"
)

// ListMenu returns the full catalog grouped implicitly by category order.
func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.menu.List(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("list menu", zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, codeInternal, "failed to load menu")
		return
	}

	writeSuccess(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart("items")
		e.ArrStart()
		for _, it := range items {
			h.encodeMenuItem(e, it)
		}
		e.ArrEnd()
	})
}

func (h *Handler) encodeMenuItem(e *jx.Encoder, it menu.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.ID)
	e.FieldStart("name")
	e.Str(it.Name)
	e.FieldStart("category")
	e.Str(it.Category)
	e.FieldStart("price")
	e.Float64(it.Price.InexactFloat64())
	e.FieldStart("taxRate")
	e.Float64(it.TaxRate.InexactFloat64())
	e.FieldStart("taxMode")
	e.Str(string(it.TaxMode))
	if it.Image != "" {
		e.FieldStart("image")
		e.Str(h.imageURL(it.Image))
	}
	e.ObjEnd()
}

func (h *Handler) imageURL(name string) string {
	if h.cfg.ImageBaseURL == "" || strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		return name
	}
	return strings.TrimRight(h.cfg.ImageBaseURL, "/") + "/" + name
}
