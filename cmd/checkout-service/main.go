package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/jcmexdev/bookshop-checkout/internal/cart"
	"github.com/jcmexdev/bookshop-checkout/internal/checkout"
	"github.com/jcmexdev/bookshop-checkout/internal/httpx"
	"github.com/jcmexdev/bookshop-checkout/internal/pkg/telemetry"
	"github.com/jcmexdev/bookshop-checkout/internal/store/sqlite"
)

const serviceName = "checkout-service"

func main() {
	ctx := context.Background()

	httpAddr := getEnv("HTTP_ADDR", ":8080")
	sqlitePath := getEnv("SQLITE_PATH", "./data/checkout.db")
	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")

	telemetry.InitLogger(serviceName)

	shutdown, err := telemetry.SetupTracer(ctx, serviceName)
	if err != nil {
		log.Fatalf("tracer setup failed: %v", err)
	}
	defer shutdown(context.Background())

	store, err := sqlite.Open(sqlitePath)
	if err != nil {
		log.Fatalf("sqlite open failed: %v", err)
	}
	defer store.Close()

	carts := cart.NewRedisStore(redisAddr, serviceName)
	engine := checkout.NewEngine(store, store)
	handler := httpx.NewHandler(carts, store, engine, store)
	router := httpx.NewRouter(handler)

	log.Printf("%s running on %s", serviceName, httpAddr)
	if err := http.ListenAndServe(httpAddr, router); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
