package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"scavlog/models"
	"scavlog/pkg/catalog"
	"scavlog/pkg/market"
	"scavlog/pkg/ocr"
	"scavlog/pkg/scavcase"
)

// Global DB handle for helper funcs
var db *gorm.DB

// global flags (parsed in main)
var verbose bool

// shared pipeline state for the worker pool
type ingestState struct {
	cat      *catalog.Cache
	svc      *scavcase.Service
	rec      ocr.Recognizer
	caseType string
	userID   uint
	dryRun   bool
}

func mustInitDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatalf("DB_DSN must be set in environment to run this tool")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return gdb
}

// Main: scans a directory of scav case screenshots, runs the OCR pipeline on
// each and records a case per screenshot. Optional watch mode for a drop
// folder. Successfully ingested files move to a processed/ subdirectory so
// re-runs are idempotent.
func main() {
	dirFlag := flag.String("dir", "screens", "directory to scan for scav case screenshots")
	userID := flag.Uint("user-id", 0, "user ID to assign cases to (if omitted attempts admin user)")
	caseType := flag.String("case-type", "", "scav case type for all screenshots in this batch (required)")
	dryRun := flag.Bool("dry-run", false, "run OCR and log extracted items, write nothing")
	watch := flag.Bool("watch", false, "watch directory for new files")
	workers := flag.Int("workers", 0, "worker pool size (default NumCPU)")
	flag.BoolVar(&verbose, "verbose", false, "verbose per-file logging")
	flag.Parse()

	if strings.TrimSpace(*caseType) == "" {
		log.Fatalf("--case-type is required (e.g. moonshine, intelligence, ₽15000)")
	}

	db = mustInitDBFromEnv()
	mkt := market.NewClient(os.Getenv("MARKET_ENDPOINT"))
	st := &ingestState{
		cat:      catalog.New(db, 15*time.Minute),
		svc:      &scavcase.Service{DB: db, Prices: mkt},
		rec:      ocr.Tesseract{},
		caseType: *caseType,
		userID:   resolveUserID(*userID),
		dryRun:   *dryRun,
	}
	if !*dryRun {
		if err := os.MkdirAll(filepath.Join(*dirFlag, "processed"), 0755); err != nil {
			log.Fatalf("failed to create processed dir: %v", err)
		}
	}

	files := listImageFiles(*dirFlag)
	log.Printf("Scanning %d files (workers=%d)", len(files), effectiveWorkers(*workers))
	runWorkerPool(*dirFlag, st, files, effectiveWorkers(*workers))

	if *watch {
		if err := watchDirectory(*dirFlag, st, effectiveWorkers(*workers)); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

// resolveUserID finds the owning user either by explicit id or by admin username.
func resolveUserID(id uint) uint {
	if id != 0 {
		var u models.User
		if err := db.First(&u, id).Error; err != nil {
			log.Fatalf("failed to find user id %d: %v", id, err)
		}
		return u.ID
	}
	var admin models.User
	if err := db.Where("username = ?", "admin").First(&admin).Error; err != nil {
		log.Fatalf("no --user-id provided and admin user not found: %v", err)
	}
	return admin.ID
}

func listImageFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func watchDirectory(dir string, st *ingestState, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", dir)

	fileCh := make(chan string, 256)
	go func() {
		// simple debounce map of pending files
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					close(fileCh)
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create {
					name := filepath.Base(ev.Name)
					if !isSupportedExt(name) {
						continue
					}
					pending[name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // stable
						fileCh <- name
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					close(fileCh)
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	// Use worker pool for watch events too
	go runWorkerPool(dir, st, nil, workers, fileCh)
	// block forever (Ctrl+C to exit)
	select {}
}

func isSupportedExt(name string) bool {
	// ignore pipeline-generated temp files to avoid recursive processing
	if strings.Contains(name, ".ocr.") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp":
		return true
	}
	return false
}

// worker pool orchestrator
func runWorkerPool(dir string, st *ingestState, initial []string, workers int, extraCh ...<-chan string) {
	fileCh := make(chan string, 1024)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range fileCh {
				processSingleFile(dir, name, st)
			}
		}()
	}
	// feed initial
	go func() {
		for _, f := range initial {
			fileCh <- f
		}
		// also relay from extra channels if provided
		for _, ch := range extraCh {
			go func(c <-chan string) {
				for n := range c {
					fileCh <- n
				}
			}(ch)
		}
		// if no extraCh (scan only) close when done
		if len(extraCh) == 0 {
			close(fileCh)
		}
	}()
	if len(extraCh) == 0 {
		wg.Wait()
	}
}

// processSingleFile runs the full OCR + persist pipeline on one screenshot.
func processSingleFile(dir, name string, st *ingestState) {
	filePath := filepath.Join(dir, name)

	snapshot, err := st.cat.Snapshot()
	if err != nil {
		log.Printf("ERROR %s: catalog load failed: %v", name, err)
		return
	}
	items, err := ocr.ProcessScreenshot(st.rec, snapshot, filePath)
	if err != nil {
		log.Printf("SKIP %s: %v", name, err)
		return
	}
	logV("OCR %s extracted %d items", name, len(items))
	if st.dryRun {
		for _, it := range items {
			log.Printf("DRY-RUN %s: %s x%d (%s)", name, it.Name, it.Quantity, it.TarkovID)
		}
		return
	}

	entries := make([]scavcase.Entry, 0, len(items))
	for _, it := range items {
		entries = append(entries, scavcase.Entry{TarkovID: it.TarkovID, Name: it.Name, Quantity: it.Quantity})
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sc, err := st.svc.Create(ctx, st.caseType, entries, st.userID)
	if err != nil {
		log.Printf("ERROR %s: create case failed: %v", name, err)
		return
	}
	log.Printf("CASE %s -> id=%d items=%d return=%d", name, sc.ID, sc.NumberOfItems, sc.Return)

	if err := os.Rename(filePath, filepath.Join(dir, "processed", name)); err != nil {
		log.Printf("WARN %s: could not move to processed/: %v", name, err)
	}
}
