package routes

import (
	"homeworkhelper/internal/config"
	"homeworkhelper/internal/handlers"
	"homeworkhelper/internal/middleware"

	"github.com/gorilla/mux"
)

func InitRoutes(
	router *mux.Router,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	questionHandler *handlers.QuestionHandler,
	paymentHandler *handlers.PaymentHandler,
	callbackHandler *handlers.CallbackHandler,
) {
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging)
	router.Use(middleware.Recoverer)

	api := router.PathPrefix("/api").Subrouter()

	// --- Public routes ---
	api.HandleFunc("/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/login", authHandler.Login).Methods("POST")
	api.HandleFunc("/refresh", authHandler.Refresh).Methods("POST")
	api.HandleFunc("/logout", authHandler.Logout).Methods("POST")

	api.HandleFunc("/payments/callback", callbackHandler.HandleCallback).Methods("POST")

	// --- JWT protected ---
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.JWTAuth(cfg.JWTSecret))

	protected.HandleFunc("/profile", authHandler.Profile).Methods("GET")

	protected.HandleFunc("/questions", questionHandler.Ask).Methods("POST")
	protected.HandleFunc("/questions", questionHandler.History).Methods("GET")

	protected.HandleFunc("/subscriptions", paymentHandler.Subscribe).Methods("POST")
	protected.HandleFunc("/payments", paymentHandler.History).Methods("GET")
	protected.HandleFunc("/payments/{id:[0-9]+}", paymentHandler.GetPayment).Methods("GET")
}
