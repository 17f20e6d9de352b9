package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DBPath        string
	SecureCookies bool
	SeedPath      string
	AdminEmail    string
	AdminPassword string
	AllowedOrigin string // extra origin besides localhost (e.g. the hosted frontend)
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file, using environment as-is")
	}
	return Config{
		Port:          getenv("PORT", "8080"),
		DBPath:        getenv("DB_PATH", "edu.db"),
		SecureCookies: os.Getenv("SECURE_COOKIES") == "true",
		SeedPath:      getenv("SEED_PATH", "data/content.json"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
