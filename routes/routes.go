package routes

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"chatbox/controllers"
	"chatbox/controllers/admins"
	"chatbox/middleware"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

func optionsHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func InitRouter() *mux.Router {
	r := mux.NewRouter()

	// Health check endpoint for Docker health checks (root level)
	r.Handle("/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"service":   "chatbox-api",
		})
	})).Methods(http.MethodGet)

	// CORS middleware - origins from CORS_ALLOWED_ORIGINS (comma-separated) or defaults
	origins := []string{
		"http://localhost:3000", "http://localhost:8080",
		"http://127.0.0.1:3000", "http://127.0.0.1:8080",
	}
	if originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS"); originsEnv != "" {
		for _, p := range strings.Split(originsEnv, ",") {
			if o := strings.TrimSpace(p); o != "" {
				origins = append(origins, o)
			}
		}
	}
	r.Use(func(next http.Handler) http.Handler {
		return handlers.CORS(
			handlers.AllowedOrigins(origins),
			handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With", "X-Request-ID"}),
			handlers.AllowCredentials(),
		)(next)
	})

	api := r.PathPrefix("/api").Subrouter()

	// Catch-all OPTIONS handler for CORS preflight
	api.PathPrefix("/").HandlerFunc(optionsHandler).Methods(http.MethodOptions)

	// Rate limiter for the public chat surface: 120 requests per IP per minute
	chatLimiter := middleware.NewIPRateLimiter(120, time.Minute)
	// Rate limiter for admin login: 5 attempts per IP per minute
	adminLoginLimiter := middleware.NewIPRateLimiter(5, time.Minute)

	// Chat flow: reads are public (the widget fetches the active flow),
	// mutations are the admin flow-builder's
	api.Handle("/flows", http.HandlerFunc(controllers.ListFlowsHandler)).Methods(http.MethodGet)
	api.Handle("/flows/active", http.HandlerFunc(controllers.GetActiveFlowHandler)).Methods(http.MethodGet)
	api.Handle("/flows/{id:[0-9]+}", http.HandlerFunc(controllers.GetFlowHandler)).Methods(http.MethodGet)
	api.Handle("/flows", middleware.AdminAuthMiddleware(http.HandlerFunc(controllers.CreateFlowHandler))).Methods(http.MethodPost)
	api.Handle("/flows/{id:[0-9]+}", middleware.AdminAuthMiddleware(http.HandlerFunc(controllers.UpdateFlowHandler))).Methods(http.MethodPut)
	api.Handle("/flows/{id:[0-9]+}/status", middleware.AdminAuthMiddleware(http.HandlerFunc(controllers.UpdateFlowStatusHandler))).Methods(http.MethodPatch)
	api.Handle("/flows/{id:[0-9]+}", middleware.AdminAuthMiddleware(http.HandlerFunc(controllers.DeleteFlowHandler))).Methods(http.MethodDelete)

	// Flow engine helpers used by the chat widget
	api.Handle("/execute-step", chatLimiter.Middleware(http.HandlerFunc(controllers.ExecuteStepHandler))).Methods(http.MethodPost)
	api.Handle("/validate-phone", chatLimiter.Middleware(http.HandlerFunc(controllers.ValidatePhoneHandler))).Methods(http.MethodPost)
	api.Handle("/validate-email", chatLimiter.Middleware(http.HandlerFunc(controllers.ValidateEmailHandler))).Methods(http.MethodPost)

	// Session ledger
	api.Handle("/session/start", chatLimiter.Middleware(http.HandlerFunc(controllers.StartSessionHandler))).Methods(http.MethodPost)
	api.Handle("/message/save", chatLimiter.Middleware(http.HandlerFunc(controllers.SaveMessageHandler))).Methods(http.MethodPost)
	api.Handle("/session/resolve", chatLimiter.Middleware(http.HandlerFunc(controllers.ResolveSessionHandler))).Methods(http.MethodPost)

	// Escalation
	api.Handle("/ticket/create", chatLimiter.Middleware(http.HandlerFunc(controllers.CreateTicketHandler))).Methods(http.MethodPost)
	api.Handle("/ticket/{id:[0-9]+}", middleware.AdminAuthMiddleware(http.HandlerFunc(controllers.UpdateTicketHandler))).Methods(http.MethodPut)
	api.Handle("/department/{department:billing|technical|accounts|compliance}",
		chatLimiter.Middleware(http.HandlerFunc(controllers.RouteDepartmentHandler))).Methods(http.MethodPost)

	// Admin surface
	api.Handle("/admin/login", adminLoginLimiter.Middleware(http.HandlerFunc(admins.Login))).Methods(http.MethodPost)

	adminRouter := api.PathPrefix("/admin").Subrouter()
	adminRouter.Use(middleware.AdminAuthMiddleware)
	adminRouter.Handle("/logout", http.HandlerFunc(admins.Logout)).Methods(http.MethodPost)
	adminRouter.Handle("/dashboard", http.HandlerFunc(admins.GetDashboardStats)).Methods(http.MethodGet)
	adminRouter.Handle("/departments/requests", http.HandlerFunc(controllers.ListDepartmentRequestsHandler)).Methods(http.MethodGet)
	adminRouter.Handle("/departments/resolve/{id:[0-9]+}", http.HandlerFunc(controllers.ResolveDepartmentRequestHandler)).Methods(http.MethodPut)

	return r
}
