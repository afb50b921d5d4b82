// Command dbinspect dumps the SpeedyPaws database for debugging.
package main

import (
	"encoding/json/v2"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/WaelFa/SpeedyPaws/internal/domain"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/SpeedyPaws/data/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("settings:global"))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				fmt.Println("No settings record yet.")
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var settings domain.Settings
			if err := json.Unmarshal(val, &settings); err != nil {
				return err
			}

			fmt.Printf("Profile:        %s\n", settings.CurrentProfile)
			fmt.Printf("Default speed:  %.2f\n", settings.DefaultSpeed)
			fmt.Printf("Smart speed:    %v\n", settings.SmartSpeedEnabled)
			fmt.Printf("Show overlay:   %v\n", settings.ShowOverlay)
			fmt.Printf("Remember video: %v  channel: %v\n", settings.RememberVideo, settings.RememberChannel)
			fmt.Printf("Updated at:     %s\n", settings.UpdatedAt)
			fmt.Println()

			fmt.Printf("Profile presets (%d):\n", len(settings.Profiles))
			for name, speed := range settings.Profiles {
				fmt.Printf("  %-8s %.2f\n", name, speed)
			}
			fmt.Println()

			fmt.Printf("Video speeds (%d):\n", len(settings.VideoSpeeds))
			shown := 0
			for id, speed := range settings.VideoSpeeds {
				if shown >= 10 {
					fmt.Printf("  ... and %d more\n", len(settings.VideoSpeeds)-shown)
					break
				}
				fmt.Printf("  %-24s %.2f\n", id, speed)
				shown++
			}
			fmt.Println()

			fmt.Printf("Channel speeds (%d):\n", len(settings.ChannelSpeeds))
			shown = 0
			for id, speed := range settings.ChannelSpeeds {
				if shown >= 10 {
					fmt.Printf("  ... and %d more\n", len(settings.ChannelSpeeds)-shown)
					break
				}
				fmt.Printf("  %-24s %.2f\n", id, speed)
				shown++
			}

			return nil
		})
	})
	if err != nil {
		log.Fatalf("Inspection failed: %v", err)
	}
}
