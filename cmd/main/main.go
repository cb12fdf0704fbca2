package main

import (
	"log"

	"github.com/joho/godotenv"

	"twitchchat/internal/pkg/app"
)

func main() {
	_ = godotenv.Load()

	if err := app.New(); err != nil {
		log.Fatal(err)
	}

	select {}
}
