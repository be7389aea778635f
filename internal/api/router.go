package api

import (
	"parking_facility/internal/api/handler"
	"parking_facility/internal/api/middleware"
	"parking_facility/internal/service"

	"github.com/gin-gonic/gin"
)

type Services struct {
	Auth        *service.AuthService
	Lots        *service.LotService
	Vehicles    *service.VehicleService
	Reservation *service.ReservationService
	Session     *service.SessionService
	Payment     *service.PaymentService
	Discount    *service.DiscountService
}

func SetupRouter(svcs Services, authMw *middleware.AuthMiddleware, wsManager *handler.WebSocketManager) *gin.Engine {
	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Availability feed needs no auth.
	wsHandler := handler.NewWebSocketHandler(wsManager)
	r.GET("/ws", wsHandler.HandleWebSocket)

	authHandler := handler.NewAuthHandler(svcs.Auth)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		lotH := handler.NewParkingLotHandler(svcs.Lots)
		lotRoutes := v1.Group("/parking-lots")
		{
			lotRoutes.POST("", authMw.AuthorizeRole(middleware.RoleAdmin), lotH.CreateParkingLot)
			lotRoutes.GET("", lotH.GetAllParkingLots)
			lotRoutes.GET("/:id", lotH.GetParkingLotByID)
			lotRoutes.GET("/:id/availability", lotH.GetLotAvailability)
			lotRoutes.PUT("/:id", authMw.AuthorizeRole(middleware.RoleAdmin), lotH.UpdateParkingLot)
			lotRoutes.DELETE("/:id", authMw.AuthorizeRole(middleware.RoleAdmin), lotH.DeleteParkingLot)
		}

		vehicleH := handler.NewVehicleHandler(svcs.Vehicles)
		vehicleRoutes := v1.Group("/vehicles")
		{
			vehicleRoutes.POST("", vehicleH.CreateVehicle)
			vehicleRoutes.GET("", vehicleH.GetMyVehicles)
			vehicleRoutes.GET("/:id", vehicleH.GetVehicleByID)
			vehicleRoutes.PUT("/:id", vehicleH.UpdateVehicle)
			vehicleRoutes.DELETE("/:id", vehicleH.DeleteVehicle)
		}

		reservationH := handler.NewReservationHandler(svcs.Reservation, svcs.Session)
		reservationRoutes := v1.Group("/reservations")
		{
			reservationRoutes.POST("", reservationH.CreateReservation)
			reservationRoutes.GET("", reservationH.FindReservations)
			reservationRoutes.GET("/:id", reservationH.GetReservationByID)
			reservationRoutes.POST("/:id/cancel", reservationH.CancelReservation)
			reservationRoutes.POST("/:id/start-session", reservationH.StartSession)
			reservationRoutes.POST("/:id/stop-session", reservationH.StopSession)
		}

		sessionH := handler.NewParkingSessionHandler(svcs.Session)
		sessionRoutes := v1.Group("/parking-sessions")
		{
			sessionRoutes.POST("/check-in", sessionH.VehicleCheckIn)
			sessionRoutes.POST("/:id/check-out", sessionH.VehicleCheckOut)
			sessionRoutes.GET("", authMw.AuthorizeRole(middleware.RoleAdmin, middleware.RoleOperator), sessionH.FindParkingSessions)
			sessionRoutes.GET("/:id", sessionH.GetParkingSessionByID)
			sessionRoutes.GET("/:id/preview", sessionH.PreviewCost)
		}

		paymentH := handler.NewPaymentHandler(svcs.Payment)
		paymentRoutes := v1.Group("/payments")
		{
			paymentRoutes.GET("", paymentH.GetMyPayments)
			paymentRoutes.GET("/:id", paymentH.GetPaymentByID)
			paymentRoutes.POST("/:id/pay", paymentH.Pay)
			paymentRoutes.POST("/:id/refund", paymentH.RequestRefund)
		}

		discountH := handler.NewDiscountHandler(svcs.Discount)
		discountRoutes := v1.Group("/discounts")
		discountRoutes.Use(authMw.AuthorizeRole(middleware.RoleAdmin))
		{
			discountRoutes.POST("", discountH.CreateDiscount)
			discountRoutes.GET("", discountH.GetAllDiscounts)
			discountRoutes.GET("/:code", discountH.GetDiscountByCode)
			discountRoutes.PUT("/:code", discountH.UpdateDiscount)
			discountRoutes.DELETE("/:code", discountH.DeleteDiscount)
		}
	}
	return r
}
