package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"time"

	"strangerlink/backend/internal/config"
	"strangerlink/backend/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const usage = `Usage: admin <command> [args]

Commands:
  complaints <user_id> [since_hours]  list archived complaints against a user
  sessions [limit]                    list the most recent archived sessions
  history <session_id>                print the archived messages of a session
  banned <user_id>                    check the Redis ban mirror
  events                              stream live events from the Redis tap until interrupted`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	storageSvc, err := connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "complaints":
		if len(args) < 1 {
			fmt.Println("Usage: admin complaints <user_id> [since_hours]")
			os.Exit(1)
		}
		since := time.Time{}
		if len(args) > 1 {
			hours, err := strconv.Atoi(args[1])
			if err != nil || hours <= 0 {
				fmt.Println("Invalid since_hours. Please provide a positive integer.")
				os.Exit(1)
			}
			since = time.Now().Add(-time.Duration(hours) * time.Hour)
		}
		if err := listComplaints(storageSvc, args[0], since); err != nil {
			log.Fatalf("Error listing complaints: %v", err)
		}
	case "sessions":
		limit := 20
		if len(args) > 0 {
			limit, err = strconv.Atoi(args[0])
			if err != nil || limit <= 0 {
				fmt.Println("Invalid limit. Please provide a positive integer.")
				os.Exit(1)
			}
		}
		if err := listSessions(storageSvc, limit); err != nil {
			log.Fatalf("Error listing sessions: %v", err)
		}
	case "history":
		if len(args) != 1 {
			fmt.Println("Usage: admin history <session_id>")
			os.Exit(1)
		}
		if err := printHistory(storageSvc, args[0]); err != nil {
			log.Fatalf("Error reading history: %v", err)
		}
	case "banned":
		if len(args) != 1 {
			fmt.Println("Usage: admin banned <user_id>")
			os.Exit(1)
		}
		banned, err := storageSvc.IsUserBanned(args[0])
		if err != nil {
			log.Fatalf("Error checking ban: %v", err)
		}
		fmt.Printf("User %s banned: %t\n", args[0], banned)
	case "events":
		if storageSvc.Redis == nil {
			log.Fatal("REDIS_ADDR is required for events")
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		tailEvents(ctx, storageSvc)
	default:
		fmt.Println("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}

func connect(cfg config.Config) (*storage.Service, error) {
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			return nil, err
		}
	}
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return nil, err
		}
	}
	return storage.NewStorageService(db, rdb), nil
}

func listComplaints(s storage.Storage, userID string, since time.Time) error {
	complaints, err := s.GetComplaintsForUser(userID, since)
	if err != nil {
		return err
	}
	if len(complaints) == 0 {
		fmt.Printf("No complaints against %s.\n", userID)
		return nil
	}
	for _, c := range complaints {
		fmt.Printf("%s  %-10s %-8s reporter=%s room=%s reporters=%d banned=%t\n",
			c.CreatedAt.Format(time.RFC3339), c.Reason, c.Severity, c.ReporterID, c.RoomID, c.ReporterCount, c.Banned)
	}
	return nil
}

func listSessions(s storage.Storage, limit int) error {
	rooms, err := s.GetRecentRooms(limit)
	if err != nil {
		return err
	}
	for _, r := range rooms {
		ended := "active"
		if r.EndedAt != nil {
			ended = r.EndedAt.Format(time.RFC3339) + " (" + r.EndReason + ")"
		}
		fmt.Printf("%s  %-5s %s <-> %s  messages=%d  started=%s  ended=%s\n",
			r.RoomID, r.Category, r.User1ID, r.User2ID, r.MessageCount, r.StartedAt.Format(time.RFC3339), ended)
	}
	return nil
}

func printHistory(s storage.Storage, roomID string) error {
	room, err := s.GetRoomByID(roomID)
	if err != nil {
		return err
	}
	history, err := s.GetChatHistory(roomID)
	if err != nil {
		return err
	}
	fmt.Printf("Session %s (%s), shared interests: %v\n", room.RoomID, room.Category, []string(room.SharedInterests))
	for _, h := range history {
		fmt.Printf("%4d  %s  %s: %s\n", h.Seq, h.CreatedAt.Format(time.RFC3339), h.SenderID, h.Content)
	}
	return nil
}

func tailEvents(ctx context.Context, s *storage.Service) {
	sub := s.SubscribeEvents(ctx)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			userID, ev, err := storage.DecodeEvent(msg.Payload)
			if err != nil {
				log.Printf("skipping malformed event: %v", err)
				continue
			}
			fmt.Printf("%s  %-22s user=%s session=%s %s\n",
				time.Now().Format(time.RFC3339), ev.Type, userID, ev.SessionID, ev.Reason)
		}
	}
}
