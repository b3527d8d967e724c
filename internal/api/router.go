package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/resale/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	partnersHandler := &PartnersHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db}
	ordersHandler := &OrdersHandler{DB: db}
	returnsHandler := &ReturnsHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireCustomer := RequireRole(model.RoleCustomer)
	requireSeller := RequireRole(model.RolePartner, model.RoleAdmin)

	// Public.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)
	mux.HandleFunc("GET /api/items/{id}/image", itemsHandler.GetImage)
	mux.HandleFunc("GET /api/partners", partnersHandler.List)

	// Authenticated account routes.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	// Items: write (partner for own items, admin).
	mux.Handle("POST /api/items", authMW(requireSeller(http.HandlerFunc(itemsHandler.Create))))
	mux.Handle("PUT /api/items/{id}", authMW(requireSeller(http.HandlerFunc(itemsHandler.Update))))
	mux.Handle("DELETE /api/items/{id}", authMW(requireSeller(http.HandlerFunc(itemsHandler.Delete))))
	mux.Handle("PUT /api/items/{id}/image", authMW(requireSeller(http.HandlerFunc(itemsHandler.UploadImage))))

	// Orders: placed by customers, listed per caller, moved by role.
	mux.Handle("POST /api/orders", authMW(requireCustomer(http.HandlerFunc(ordersHandler.Create))))
	mux.Handle("GET /api/orders", authMW(http.HandlerFunc(ordersHandler.List)))
	mux.Handle("GET /api/orders/{id}", authMW(http.HandlerFunc(ordersHandler.Get)))
	mux.Handle("PUT /api/orders/{id}", authMW(requireAdmin(http.HandlerFunc(ordersHandler.Update))))
	mux.Handle("PUT /api/orders/{id}/cancel", authMW(ordersHandler.Transition(model.ActionCancel)))
	mux.Handle("PUT /api/orders/{id}/ship", authMW(ordersHandler.Transition(model.ActionShip)))
	mux.Handle("PUT /api/orders/{id}/deliver", authMW(ordersHandler.Transition(model.ActionDeliver)))
	mux.Handle("PUT /api/orders/{id}/returned", authMW(ordersHandler.Transition(model.ActionMarkReturned)))

	// Returns: requested by customers, reviewed by partner or admin.
	mux.Handle("POST /api/returns", authMW(requireCustomer(http.HandlerFunc(returnsHandler.Create))))
	mux.Handle("GET /api/returns", authMW(http.HandlerFunc(returnsHandler.List)))
	mux.Handle("GET /api/returns/pending", authMW(http.HandlerFunc(returnsHandler.Pending)))
	mux.Handle("PUT /api/returns/{id}/approve", authMW(requireSeller(http.HandlerFunc(returnsHandler.Approve))))
	mux.Handle("PUT /api/returns/{id}/reject", authMW(requireSeller(http.HandlerFunc(returnsHandler.Reject))))

	// Users (admin only).
	mux.Handle("GET /api/admin/user", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/admin/user", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/admin/user/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/admin/user/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("DELETE /api/admin/user/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	return mux
}
