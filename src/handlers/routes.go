// backend/src/handlers/routes.go
package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/username/vertex/backend/src/models"
	"github.com/username/vertex/backend/src/services"
)

// RegisterAPIRoutes mounts the authenticated /api surface on r.
func RegisterAPIRoutes(r chi.Router, tokens TokenValidator, ingester services.Ingester, reconciler services.Reconciler) {
	txHandler := NewTransactionHandler(ingester)
	reconHandler := NewReconciliationHandler(reconciler)

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(tokens))

		r.Post("/extractor/fields", HandleExtractFields)

		r.Route("/trx", func(r chi.Router) {
			r.Post("/", txHandler.HandleCreateTransaction)
			r.Post("/batch", txHandler.HandleCreateTransactions)
			r.Get("/", txHandler.HandleListTransactions)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireHierarchy(models.HierarchyAdmin))
			r.Post("/reconcile", reconHandler.HandleRunReconciliation)
			r.Get("/reconcile/last", reconHandler.HandleGetLastReport)
		})
	})
}
