// Command fetch_items syncs the local tarkov_items catalog with the tarkov.dev
// item listing. Safe to re-run; only missing items are inserted. Intended for
// a cron schedule (the API adds items on game patches, every few weeks).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"scavlog/models"
	"scavlog/pkg/market"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// categoryMapping folds the API's fine-grained category names into the
// coarser buckets the UI filters on. Unmapped categories become "Unknown".
var categoryMapping = map[string]string{
	"Headphones":             "Headsets",
	"Headwear":               "Helmets",
	"Map":                    "Barter Items",
	"Face Cover":             "Helmets",
	"Vis. observ. device":    "Face Cover",
	"Armor":                  "Armors",
	"Armored equipment":      "Armors",
	"Armor Plate":            "Armors",
	"Chest rig":              "Rigs",
	"Backpack":               "Backpacks",
	"Assault rifle":          "Guns",
	"Handgun":                "Guns",
	"Shotgun":                "Guns",
	"Sniper rifle":           "Guns",
	"Magazine":               "Mods",
	"SMG":                    "Guns",
	"Assault carbine":        "Guns",
	"Marksman rifle":         "Guns",
	"Machinegun":             "Guns",
	"Revolver":               "Guns",
	"Grenade launcher":       "Guns",
	"Flashhider":             "Mods",
	"Assault scope":          "Mods",
	"Reflex sight":           "Mods",
	"Foregrip":               "Mods",
	"Receiver":               "Mods",
	"Charging handle":        "Mods",
	"Handguard":              "Mods",
	"Mount":                  "Mods",
	"Stock":                  "Mods",
	"Ironsight":              "Mods",
	"Auxiliary Mod":          "Mods",
	"Scope":                  "Mods",
	"Bipod":                  "Mods",
	"Gas block":              "Mods",
	"Night Vision":           "Mods",
	"Compact reflex sight":   "Mods",
	"Special scope":          "Mods",
	"Thermal Vision":         "Mods",
	"UBGL":                   "Mods",
	"Comb. muzzle device":    "Mods",
	"Comb. tact. device":     "Mods",
	"Knife":                  "Guns",
	"Barrel":                 "Mods",
	"Pistol grip":            "Mods",
	"Silencer":               "Suppressors",
	"Throwable weapon":       "Grenades",
	"Ammo container":         "Ammo",
	"Port. container":        "Containers",
	"Locking container":      "Containers",
	"Common container":       "Containers",
	"Random Loot Container":  "Containers",
	"Money":                  "Barter Items",
	"Battery":                "Barter Items",
	"Electronics":            "Barter Items",
	"Lubricant":              "Barter Items",
	"Jewelry":                "Barter Items",
	"Other":                  "Barter Items",
	"Building material":      "Barter Items",
	"Stimulant":              "Medical",
	"Tool":                   "Barter Items",
	"Fuel":                   "Barter Items",
	"Flashlight":             "Mods",
	"Household goods":        "Barter Items",
	"Flyer":                  "Barter Items",
	"Multitools":             "Barter Items",
	"Compass":                "Barter Items",
	"Info":                   "Barter Items",
	"Repair Kits":            "Barter Items",
	"Special item":           "Barter Items",
	"Arm Band":               "Barter Items",
	"Spring Driven Cylinder": "Mods",
	"Cylinder Magazine":      "Mods",
	"Portable Range Finder":  "Barter Items",
	"Radio Transmitter":      "Barter Items",
	"Cultist Amulet":         "Barter Items",
	"Mark of the Unheard":    "Barter Items",
	"Planting Kits":          "Barter Items",
	"Mechanical Key":         "Keys",
	"Keycard":                "Keys",
}

func main() {
	dryRun := flag.Bool("dry-run", false, "log what would be inserted, change nothing")
	flag.Parse()

	dsn := os.Getenv("DB_DSN")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("DB_DSN not set in environment")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	var knownIDs []string
	if err := db.Model(&models.TarkovItem{}).Pluck("tarkov_id", &knownIDs).Error; err != nil {
		log.Fatalf("failed to load existing catalog: %v", err)
	}
	known := make(map[string]struct{}, len(knownIDs))
	for _, id := range knownIDs {
		known[id] = struct{}{}
	}

	mkt := market.NewClient(os.Getenv("MARKET_ENDPOINT"))
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	items, err := mkt.ListItems(ctx)
	if err != nil {
		log.Fatalf("failed to fetch item listing: %v", err)
	}
	log.Printf("FETCH listing returned %d items, %d already known", len(items), len(known))

	added := 0
	for _, it := range items {
		if _, ok := known[it.ID]; ok {
			continue
		}
		category, ok := categoryMapping[it.Category]
		if !ok {
			category = "Unknown"
		}
		if *dryRun {
			log.Printf("DRY-RUN would add %q (%s) category=%s", it.Name, it.ID, category)
			continue
		}
		rec := models.TarkovItem{Name: it.Name, TarkovID: it.ID, Category: category}
		if err := db.Create(&rec).Error; err != nil {
			log.Printf("WARN failed to insert %q (%s): %v", it.Name, it.ID, err)
			continue
		}
		added++
	}
	fmt.Printf("job complete: %d new items added\n", added)
}
