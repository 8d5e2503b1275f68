package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-pos-ws/internal/cart"
	"go-pos-ws/internal/handler"
	"go-pos-ws/internal/middleware"
	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"
	"go-pos-ws/internal/service"
	"go-pos-ws/internal/ws"
	"go-pos-ws/pkg/database"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// 2. Setup Database
	db := database.ConnectDB()
	// Auto Migrate (Hati-hati di production, sebaiknya pakai tools migrasi terpisah)
	db.AutoMigrate(&model.Product{}, &model.Transaction{}, &model.User{}, &model.QueueCounter{})

	// 3. Seed default users
	seedUsers(db)

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub()
	go wsHub.Run()

	// 5. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo(db)
	txRepo := repository.NewTransactionRepo(db)
	counterRepo := repository.NewCounterRepo()
	userRepo := repository.NewUserRepo(db)

	// Counter mengikuti nomor tertinggi yang sudah terbit (data lama)
	for _, prefix := range []string{model.PrefixCashier, model.PrefixSelfOrder} {
		if err := counterRepo.Sync(db, prefix); err != nil {
			log.Printf("Warning: Failed to sync queue counter %q: %v", prefix, err)
		}
	}

	cartStore := cart.NewStore()

	orderService := service.NewOrderService(productRepo, txRepo, counterRepo, db, wsHub)
	catalogService := service.NewCatalogService(productRepo, db, wsHub)
	dashService := service.NewDashboardService(txRepo, productRepo)
	authService := service.NewAuthService(userRepo)

	orderHandler := handler.NewOrderHandler(orderService)
	cartHandler := handler.NewCartHandler(cartStore, productRepo, orderService)
	productHandler := handler.NewProductHandler(catalogService)
	dashHandler := handler.NewDashboardHandler(dashService)
	authHandler := handler.NewAuthHandler(authService)

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Toko Nusantara POS v1.0",
	})

	// Middleware
	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	// 7. Routes
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	api.Post("/auth/login", authHandler.Login)
	api.Post("/auth/validate-token", authHandler.ValidateToken)

	// Menu + self-order (kiosk / QR link, tanpa login)
	api.Get("/products", productHandler.GetProducts)
	api.Post("/orders/self", orderHandler.SubmitSelfOrder)

	// Session carts untuk kiosk
	carts := api.Group("/carts/:session")
	carts.Get("/", cartHandler.GetCart)
	carts.Post("/items", cartHandler.AddItem)
	carts.Patch("/items/:product", cartHandler.AdjustItem)
	carts.Delete("/items/:product", cartHandler.RemoveItem)
	carts.Post("/checkout", cartHandler.Checkout)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(userRepo))

	// Checkout kasir + antrian
	protected.Post("/orders", orderHandler.SubmitOrder)
	protected.Get("/orders/queue", orderHandler.GetQueue)
	protected.Get("/orders", orderHandler.GetHistory)
	protected.Get("/orders/:id", orderHandler.GetTransaction)
	protected.Patch("/orders/:id/complete", orderHandler.MarkCompleted)

	// Dashboard
	protected.Get("/dashboard/stats", dashHandler.GetStats)
	protected.Get("/dashboard/sales", dashHandler.GetSalesSummary)

	// Catalog management (admin only)
	protected.Post("/products", middleware.RequireRole(model.RoleAdmin), productHandler.CreateProduct)
	protected.Put("/products/:id", middleware.RequireRole(model.RoleAdmin), productHandler.UpdateProduct)

	// WebSocket Route (live queue/dashboard updates)
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 8. Graceful Shutdown
	go func() {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3000"
		}
		if err := app.Listen(":" + port); err != nil {
			log.Panic(err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

// seedUsers creates the default admin and cashier accounts if they don't exist
func seedUsers(db *gorm.DB) {
	userRepo := repository.NewUserRepo(db)

	seed := []struct {
		email    string
		name     string
		role     model.UserRole
		password string
	}{
		{"admin@tokonusantara.id", "Pemilik Toko", model.RoleAdmin, "admin123"},
		{"kasir@tokonusantara.id", "Kasir Utama", model.RoleCashier, "kasir123"},
	}

	for _, s := range seed {
		if _, err := userRepo.FindByEmail(s.email); err == nil {
			continue
		}

		user := &model.User{
			Email:    s.email,
			FullName: s.name,
			Role:     s.role,
			IsActive: true,
		}
		user.CreatedBy = "system"
		user.UpdatedBy = "system"

		if err := user.SetPassword(s.password); err != nil {
			log.Printf("Warning: Failed to hash password for %s: %v", s.email, err)
			continue
		}

		if err := userRepo.Create(user); err != nil {
			log.Printf("Warning: Failed to create user %s: %v", s.email, err)
		} else {
			log.Printf("✅ User created: %s (%s)", s.email, s.role)
		}
	}
}
