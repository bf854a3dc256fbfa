package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/Mango070919/MeatDepotApp-sub001/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware API экрана кассира.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/keys", h.HandleKey)
			r.Post("/lines", h.SelectProduct)
			r.Patch("/lines/{lineID}", h.UpdateLine)
			r.Delete("/lines/{lineID}", h.RemoveLine)
			r.Post("/focus", h.SetFocus)
			r.Post("/payment", h.SelectPayment)
			r.Post("/complete", h.CompleteSale)
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/history", h.GetHistory)
			r.Post("/{txID}/reprint", h.Reprint)
		})

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", h.GetDevices)
			r.Post("/scale/connect", h.ConnectScale)
			r.Post("/printer/connect", h.ConnectPrinter)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}

func chiURLParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}
