package app

import (
	"context"
	"time"

	"homeworkhelper/internal/config"
	"homeworkhelper/internal/db"
	"homeworkhelper/internal/handlers"
	"homeworkhelper/internal/repository"
	"homeworkhelper/internal/routes"
	"homeworkhelper/internal/services"

	"github.com/gorilla/mux"
)

func InitApp(cfg *config.Config) (*mux.Router, error) {
	conn, err := db.NewPostgresConnection(cfg)
	if err != nil {
		return nil, err
	}

	// Repositories
	userRepo := repository.NewUserRepository(conn)
	subscriptionRepo := repository.NewSubscriptionRepository(conn)
	paymentRepo := repository.NewPaymentRepository(conn)
	questionRepo := repository.NewQuestionRepository(conn)

	// Services
	authService := services.NewAuthService(userRepo)
	entitlementService := services.NewEntitlementService(subscriptionRepo)
	mpesaGateway := services.NewMpesaGateway(
		cfg.MpesaConsumerKey,
		cfg.MpesaConsumerSecret,
		cfg.MpesaShortcode,
		cfg.MpesaPasskey,
		cfg.MpesaCallbackURL,
		cfg.MpesaBaseURL,
	)
	paymentService := services.NewPaymentService(paymentRepo, subscriptionRepo, mpesaGateway)
	assistantService := services.NewAssistantService(
		cfg.AssistantAPIKey,
		cfg.AssistantBaseURL,
		cfg.AssistantModel,
	)
	questionService := services.NewQuestionService(
		questionRepo,
		entitlementService,
		paymentService,
		assistantService,
		cfg.QuestionPrice,
	)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, entitlementService, cfg)
	questionHandler := handlers.NewQuestionHandler(questionService, authService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, authService, cfg.MonthlyPlanPrice)
	callbackHandler := handlers.NewCallbackHandler(paymentService)

	_ = subscriptionRepo.ExpireSubscriptions(context.Background())

	// Periodically deactivate run-out subscriptions
	StartSubscriptionExpirer(subscriptionRepo)

	// Routes
	router := mux.NewRouter()
	routes.InitRoutes(router, cfg, authHandler, questionHandler, paymentHandler, callbackHandler)

	return router, nil
}

func StartSubscriptionExpirer(repo *repository.SubscriptionRepository) {
	t := time.NewTicker(1 * time.Hour)
	go func() {
		for range t.C {
			_ = repo.ExpireSubscriptions(context.Background())
		}
	}()
}
