package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/simonerocutto/role-based-joust/internal/api"
	"github.com/simonerocutto/role-based-joust/internal/config"
	"github.com/simonerocutto/role-based-joust/internal/game"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load("../.env"); err != nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("no .env file found, using environment variables only")
		}
	}

	log.Println("================================")
	log.Println(" role-based-joust engine")
	log.Println("================================")

	appConfig := config.Load()
	port := strconv.Itoa(appConfig.Server.Port)

	settingsPath := getEnvWithDefault("SETTINGS_PATH", "settings.json")
	settings := config.NewStore(settingsPath)
	if _, err := settings.Load(); err != nil {
		log.Printf("settings store: %v (using defaults)", err)
	}

	seed := int64(getEnvInt("RNG_SEED", 1))
	engine := game.NewEngine(appConfig, false, seed)

	eventLogPath := getEnvWithDefault("EVENT_LOG_PATH", "events.jsonl")
	if err := engine.EventLog().Start(eventLogPath); err != nil {
		log.Printf("event log disabled: %v", err)
	} else {
		log.Printf("event log: %s", eventLogPath)
	}

	debugCfg := api.DefaultObservabilityConfig()
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("debug server disabled: %v", err)
		}
	}

	server := api.NewServer(engine, settings)

	engine.Start()
	log.Println("engine started")

	go func() {
		addr := ":" + port
		log.Printf("API server on http://localhost%s", addr)
		if err := server.Start(addr); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	log.Println("server ready, press Ctrl+C to stop")
	<-quit

	log.Println("shutting down...")
	server.Stop()
	engine.EventLog().Stop()
	engine.Shutdown()
	log.Println("goodbye")
}

func getEnvWithDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
