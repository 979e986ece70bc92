package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func NewRouter(h *Handler, l *zap.Logger, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(l))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	withSession := SessionMiddleware(h.sessions)

	r.With(withSession).Get("/cart/return", h.Return)

	r.Route("/api", func(r chi.Router) {
		// Anonymous reads, no session is created for them
		r.Get("/products", h.SearchProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Get("/categories", h.ListCategories)
		r.Post("/register", h.Register)

		r.Group(func(r chi.Router) {
			r.Use(withSession)

			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Post("/items", h.AddItem)
				r.Post("/items/{product_id}/quantity", h.UpdateQuantity)
				r.Delete("/items/{product_id}", h.RemoveItem)
				r.Post("/selection/{product_id}", h.ToggleSelect)
				r.Put("/selection", h.SelectAll)
				r.Delete("/notice", h.DismissNotice)
			})
			r.Post("/checkout", h.Checkout)

			r.Get("/badge", h.Badge)
			r.Get("/chat", h.ChatHistory)
			r.Post("/chat", h.Chat)

			r.Get("/orders", h.ListOrders)

			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)
			r.Post("/profile/avatar", h.UploadAvatar)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
