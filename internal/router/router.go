package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/djibrilmaiga/eduka-backend/internal/handler"
)

func SetupRoutes(
	paymentHandler *handler.PaymentHandler,
	callbackHandler *handler.CallbackHandler,
	transferHandler *handler.TransferHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Signature"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/api/v1/payments/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/payments", func(r chi.Router) {
			r.Post("/initiate", paymentHandler.HandleInitiate)
			r.Post("/cash/record", paymentHandler.HandleRecordCash)
			r.Get("/{ref}", paymentHandler.HandleGetPayment)

			// Gateway callbacks, one route per provider vocabulary
			r.Post("/card/webhook", callbackHandler.HandleCardWebhook)
			r.Post("/paypal/capture", callbackHandler.HandlePayPalCapture)
			r.Post("/wave/callback", callbackHandler.HandleWaveCallback)
			r.Post("/mobile-money/confirm", callbackHandler.HandleMobileMoneyConfirm)
		})

		r.Route("/transfers", func(r chi.Router) {
			r.Post("/", transferHandler.HandleRequest)
			r.Get("/pending", transferHandler.HandleListPending)
			r.Put("/{id}/decision", transferHandler.HandleDecide)
		})

		r.Get("/children/{id}/balance", paymentHandler.HandleGetBalance)
	})

	return r
}

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()))
		})
	}
}
