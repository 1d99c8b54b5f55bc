package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"margintrade/internal/api/handlers"
	"margintrade/internal/api/middleware"
	"margintrade/internal/websocket"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	OrderService        handlers.OrderServiceInterface
	PositionService     handlers.PositionServiceInterface
	AccountService      handlers.AccountServiceInterface
	NotificationService handlers.NotificationServiceInterface
	LiquidationService  handlers.LiquidationServiceInterface
	WSHub               *websocket.Hub

	// AdminToken защищает административные endpoints
	// (ликвидация, обрезка журнала). Пустой токен их отключает.
	AdminToken string
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Назначение:
// Центральное место для определения всех API endpoints.
// Регистрирует handlers для каждого маршрута и применяет middleware
// к группам маршрутов.
//
// Структура маршрутов:
//
// /api/
//
//	├── /orders
//	│   └── POST / - открыть позицию рыночным ордером
//	├── /positions
//	│   ├── GET / - позиции счёта (?account_id=, ?status=closed)
//	│   ├── GET /{id} - одна позиция
//	│   └── POST /{id}/close - закрыть по рынку
//	├── /accounts
//	│   └── GET /{id} - снимок счёта (баланс, equity, маржа)
//	├── /notifications
//	│   ├── GET / - журнал событий
//	│   └── DELETE / - обрезка журнала (admin)
//	└── /liquidate
//	    └── POST /{accountId} - проверка/запуск ликвидации (admin, ?dry_run=true)
//
// /ws/stream - WebSocket для real-time событий
// /metrics   - Prometheus метрики
// /health    - health check
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. RequireUser (для пользовательских маршрутов)
// 5. AdminAuth (только для административных маршрутов)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)

	// Пользовательские маршруты: требуют X-User-ID
	user := router.PathPrefix("/api").Subrouter()
	user.Use(middleware.RequireUser)

	if deps != nil && deps.OrderService != nil {
		orderHandler := handlers.NewOrderHandler(deps.OrderService)
		user.HandleFunc("/orders", orderHandler.PlaceOrder).Methods("POST")
	}

	if deps != nil && deps.PositionService != nil {
		positionHandler := handlers.NewPositionHandler(deps.PositionService)
		user.HandleFunc("/positions", positionHandler.GetPositions).Methods("GET")
		user.HandleFunc("/positions/{id}", positionHandler.GetPosition).Methods("GET")
		user.HandleFunc("/positions/{id}/close", positionHandler.ClosePosition).Methods("POST")
	}

	if deps != nil && deps.AccountService != nil {
		accountHandler := handlers.NewAccountHandler(deps.AccountService)
		user.HandleFunc("/accounts/{id}", accountHandler.GetAccount).Methods("GET")
	}

	if deps != nil && deps.NotificationService != nil {
		notificationHandler := handlers.NewNotificationHandler(deps.NotificationService)
		user.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")

		// Обрезка журнала - административная операция
		admin := router.PathPrefix("/api").Subrouter()
		admin.Use(middleware.AdminAuth(deps.AdminToken))
		admin.HandleFunc("/notifications", notificationHandler.CleanupNotifications).Methods("DELETE")
	}

	if deps != nil && deps.LiquidationService != nil {
		liquidationHandler := handlers.NewLiquidationHandler(deps.LiquidationService)
		admin := router.PathPrefix("/api").Subrouter()
		admin.Use(middleware.AdminAuth(deps.AdminToken))
		admin.HandleFunc("/liquidate/{accountId}", liquidationHandler.Liquidate).Methods("POST")
	}

	// WebSocket route
	if deps != nil && deps.WSHub != nil {
		hub := deps.WSHub
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
