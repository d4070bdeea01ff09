package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"seatkeeper/internal/seats"
	"seatkeeper/internal/shared/config"
	"seatkeeper/internal/shared/database"
	"seatkeeper/internal/store"
	"seatkeeper/pkg/logger"

	"github.com/joho/godotenv"
)

// sectionPlan describes one block of identical rows
type sectionPlan struct {
	Grade       string
	Section     string
	Rows        int
	SeatsPerRow int
	Price       int64
}

var defaultLayout = []sectionPlan{
	{Grade: "VIP", Section: "A", Rows: 3, SeatsPerRow: 20, Price: 150000},
	{Grade: "R", Section: "B", Rows: 5, SeatsPerRow: 30, Price: 110000},
	{Grade: "S", Section: "C", Rows: 8, SeatsPerRow: 30, Price: 80000},
}

func main() {
	productID := flag.Int64("product", 1, "product id to register seats for")
	flag.Parse()

	_ = godotenv.Load()
	fmt.Println("🌱 Starting seat map seeder...")

	cfg := config.Load()
	cfg.Ledger.Enabled = false
	cfg.RateLimit.Enabled = false

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if db.Redis == nil {
		log.Fatalf("Seeder needs SEAT_STORE=redis, got %q", cfg.Seats.Store)
	}

	catalog := seats.NewCatalog(seats.NewRepository(store.NewRedisStore(db.Redis)), seats.Options{Logger: logger.GetDefault()})

	layout := buildSeatMap(defaultLayout)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := catalog.RegisterSeats(ctx, *productID, layout); err != nil {
		log.Fatalf("Failed to register seats: %v", err)
	}
	fmt.Printf("✅ Registered %d seats for product %d\n", len(layout), *productID)
}

// buildSeatMap expands the plan into individual seats, rows numbered from 1
func buildSeatMap(plan []sectionPlan) []seats.SeatInfo {
	var out []seats.SeatInfo
	for _, p := range plan {
		for row := 1; row <= p.Rows; row++ {
			for n := 1; n <= p.SeatsPerRow; n++ {
				out = append(out, seats.SeatInfo{
					Grade:      p.Grade,
					Section:    p.Section,
					Row:        fmt.Sprintf("%d", row),
					SeatNumber: n,
					Price:      p.Price,
				})
			}
		}
	}
	return out
}
