package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"parking_facility/internal/api"
	"parking_facility/internal/api/handler"
	"parking_facility/internal/api/middleware"
	"parking_facility/internal/config"
	"parking_facility/internal/gate"
	"parking_facility/internal/repository/postgresql"
	"parking_facility/internal/service"

	awsgo_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func main() {
	cfg := config.Load()

	db, err := postgresql.NewDB(cfg)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connection established.")

	store := postgresql.NewStore(db)
	repos := store.Repositories()

	webSocketManager := handler.NewWebSocketManager()
	go webSocketManager.Start()

	ledger := service.NewCapacityLedger(webSocketManager)
	tariff := service.NewTariffCalculator()
	reconciler := service.NewPaymentReconciler()

	authService := service.NewAuthService(repos.Users, cfg.JWTSecret, cfg.JWTExpirationHours)
	reservationService := service.NewReservationService(store, repos, ledger, tariff)
	sessionService := service.NewSessionService(store, repos, ledger, tariff, reconciler)
	lotService := service.NewLotService(repos)
	vehicleService := service.NewVehicleService(repos)
	discountService := service.NewDiscountService(repos)
	paymentService := service.NewPaymentService(repos)

	authMiddleware := middleware.NewAuthMiddleware(authService)

	var wg sync.WaitGroup
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())

	if cfg.SQSGateQueueURL == "" {
		log.Println("WARNING: SQS_GATE_QUEUE_URL not configured, gate consumer will not run.")
	} else {
		awsSDKCfg, err := awsgo_config.LoadDefaultConfig(context.TODO(), awsgo_config.WithRegion(cfg.AWSRegion))
		if err != nil {
			log.Fatalf("Cannot load AWS SDK config: %v", err)
		}
		sqsClient := sqs.NewFromConfig(awsSDKCfg)
		sqsConsumer := gate.NewSQSConsumer(sqsClient, cfg, sessionService)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sqsConsumer.Start(consumerCtx)
			log.Println("Gate consumer stopped.")
		}()
	}

	router := api.SetupRouter(api.Services{
		Auth:        authService,
		Lots:        lotService,
		Vehicles:    vehicleService,
		Reservation: reservationService,
		Session:     sessionService,
		Payment:     paymentService,
		Discount:    discountService,
	}, authMiddleware, webSocketManager)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server listening on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	cancelConsumer()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shut down: %v", err)
	}

	if cfg.SQSGateQueueURL != "" {
		done := make(chan struct{})
		go func() {
			defer close(done)
			wg.Wait()
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			log.Println("Gate consumer did not stop within the grace period.")
		}
	}

	log.Println("Server stopped.")
}
