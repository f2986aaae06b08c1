package http

import (
	"gym-backend/internal/handlers"
	"gym-backend/internal/middleware"
	"gym-backend/internal/ws"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	planHandler *handlers.PlanHandler,
	membershipHandler *handlers.MembershipHandler,
	paymentHandler *handlers.PaymentHandler,
	memberRecordHandler *handlers.MemberRecordHandler,
	razorpayHandler *handlers.RazorpayHandler,
	totpHandler *handlers.TOTPHandler,
	healthHandler *handlers.HealthHandler,
	hub *ws.Hub,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	// Public routes
	r.HandleFunc("/health", healthHandler.Check).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Razorpay webhook authenticates via signature, not JWT
	r.HandleFunc("/webhooks/razorpay", razorpayHandler.Webhook).Methods("POST")

	// Live sync events for the dashboard
	r.HandleFunc("/ws/monitor", hub.HandleMonitor)

	// Users (admin)
	usersAPI := r.PathPrefix("/api/users").Subrouter()
	usersAPI.Use(authMiddleware.RequireAdmin)
	usersAPI.HandleFunc("", userHandler.List).Methods("GET")
	usersAPI.HandleFunc("", userHandler.Create).Methods("POST")
	usersAPI.HandleFunc("/{id}", userHandler.Get).Methods("GET")
	usersAPI.HandleFunc("/{id}", userHandler.Update).Methods("PUT")
	usersAPI.HandleFunc("/{id}", userHandler.Delete).Methods("DELETE")
	usersAPI.HandleFunc("/{id}/avatar", userHandler.UploadAvatar).Methods("POST")
	usersAPI.HandleFunc("/{id}/avatar", userHandler.Avatar).Methods("GET")

	// Plans (admin)
	plansAPI := r.PathPrefix("/api/plans").Subrouter()
	plansAPI.Use(authMiddleware.RequireAdmin)
	plansAPI.HandleFunc("", planHandler.List).Methods("GET")
	plansAPI.HandleFunc("", planHandler.Create).Methods("POST")
	plansAPI.HandleFunc("/{id}", planHandler.Get).Methods("GET")
	plansAPI.HandleFunc("/{id}", planHandler.Update).Methods("PUT")
	plansAPI.HandleFunc("/{id}", planHandler.Delete).Methods("DELETE")

	// Memberships (admin)
	membershipsAPI := r.PathPrefix("/api/memberships").Subrouter()
	membershipsAPI.Use(authMiddleware.RequireAdmin)
	membershipsAPI.HandleFunc("", membershipHandler.Assign).Methods("POST")
	membershipsAPI.HandleFunc("/user/{userId}", membershipHandler.ListByUser).Methods("GET")
	membershipsAPI.HandleFunc("/{id}", membershipHandler.Cancel).Methods("DELETE")

	// Canonical payments (admin)
	paymentsAPI := r.PathPrefix("/api/payments").Subrouter()
	paymentsAPI.Use(authMiddleware.RequireAdmin)
	paymentsAPI.HandleFunc("", paymentHandler.List).Methods("GET")
	paymentsAPI.HandleFunc("", paymentHandler.Record).Methods("POST")
	paymentsAPI.HandleFunc("/user/{userId}", paymentHandler.ListByUser).Methods("GET")
	paymentsAPI.HandleFunc("/{id}", paymentHandler.Delete).Methods("DELETE")

	// Online checkout (authenticated member or admin)
	ordersAPI := r.PathPrefix("/api/orders").Subrouter()
	ordersAPI.Use(authMiddleware.Authenticate)
	ordersAPI.HandleFunc("", razorpayHandler.CreateOrder).Methods("POST")

	// Member records ledger (admin)
	recordsAPI := r.PathPrefix("/api/member-records").Subrouter()
	recordsAPI.Use(authMiddleware.RequireAdmin)
	recordsAPI.HandleFunc("", memberRecordHandler.List).Methods("GET")
	recordsAPI.HandleFunc("", memberRecordHandler.Create).Methods("POST")
	recordsAPI.HandleFunc("/{id}", memberRecordHandler.Update).Methods("PUT")
	recordsAPI.HandleFunc("/{id}", memberRecordHandler.Delete).Methods("DELETE")
	recordsAPI.HandleFunc("/{id}/payment", memberRecordHandler.AddInstallment).Methods("POST")
	recordsAPI.HandleFunc("/{id}/payment", memberRecordHandler.DeleteInstallment).Methods("DELETE")
	recordsAPI.HandleFunc("/{id}/payment/{paymentId}/receipt", memberRecordHandler.Receipt).Methods("GET")
	recordsAPI.HandleFunc("/{id}/clear-payments", memberRecordHandler.ClearPayments).Methods("POST")

	// Bulk destructive actions are restricted to the super-admin set
	bulkAPI := r.PathPrefix("/api/member-records").Subrouter()
	bulkAPI.Use(authMiddleware.RequireSuperAdmin)
	bulkAPI.HandleFunc("", memberRecordHandler.BulkAction).Methods("DELETE")

	// Two-factor enrollment (admin)
	totpAPI := r.PathPrefix("/api/totp").Subrouter()
	totpAPI.Use(authMiddleware.RequireAdmin)
	totpAPI.HandleFunc("/setup", totpHandler.Setup).Methods("POST")
	totpAPI.HandleFunc("/verify", totpHandler.Verify).Methods("POST")

	return r
}
