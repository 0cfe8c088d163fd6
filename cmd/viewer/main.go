// Command viewer inspects a relay's message log offline. It opens the
// Badger store read-only, so it can run next to a live server.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"chat-relay/repositories"
)

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" required:"true"`
	Room           string `envconfig:"VIEWER_ROOM" default:"general"`
	PageSize       int    `envconfig:"VIEWER_PAGE_SIZE" default:"50"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"WARN"`
}

func main() {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	logger := logs.GetLoggerFromString(cfg.LogLevel)

	// BypassLockGuard allows opening while the server holds the lock.
	opts := badger.DefaultOptions(cfg.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repository := repositories.NewMessageRepository(db, logger, &cfg.PageSize)
	messages, cursor, err := repository.GetMessages(cfg.Room, nil)
	if err != nil {
		log.Fatalf("Failed to read messages: %v", err)
	}

	color.Bold.Printf("Room %q — newest %d message(s)\n", cfg.Room, len(messages))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"At", "Author", "Content"})
	for _, message := range messages {
		table.Append([]string{
			message.At.Format("2006-01-02 15:04:05"),
			message.Author,
			message.Content,
		})
	}
	table.Render()

	if cursor != nil && *cursor != "" && len(messages) == cfg.PageSize {
		color.Gray.Println(fmt.Sprintf("next cursor: %s", *cursor))
	}
}
