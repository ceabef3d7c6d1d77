package main // Notification worker entry point

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/iliyamo/campus-event-attendance/internal/queue"
)

func main() {
	_ = godotenv.Load()

	log.Println("notification worker starting")
	if err := queue.StartNotificationConsumer(); err != nil {
		log.Fatalf("consumer: %v", err)
	}
}
