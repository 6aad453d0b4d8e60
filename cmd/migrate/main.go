// Command migrate indexes capture files already present in the capture
// directory into the SQLite database. Files that are already indexed are skipped.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sensorlink/internal/config"
	"sensorlink/internal/inference"
	"sensorlink/internal/model"
	"sensorlink/internal/repository/sqlite"
	"sensorlink/internal/service/storage"
)

func main() {
	cfg := config.Load()
	captureDir := flag.String("captures", cfg.CaptureDirectory, "Directory containing captures")
	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	flag.Parse()

	fmt.Printf("Indexing captures from %s into database %s\n", *captureDir, *dbPath)

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	captures := sqlite.NewCaptureRepository(db)
	detections := sqlite.NewDetectionRepository(db)

	files, err := os.ReadDir(*captureDir)
	if err != nil {
		log.Fatalf("Failed to read capture directory: %v", err)
	}

	indexed, existing, skipped := 0, 0, 0
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		capture, labels, err := storage.ParseCaptureFilename(file.Name())
		if err != nil {
			log.Printf("Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}

		if ok, err := captures.Exists(file.Name()); err != nil {
			log.Fatalf("Failed to check %s: %v", file.Name(), err)
		} else if ok {
			existing++
			continue
		}

		info, err := file.Info()
		if err != nil {
			log.Printf("Failed to get info for %s: %v", file.Name(), err)
			skipped++
			continue
		}
		capture.Sensor = sensorOrDefault(capture.Sensor, cfg.SensorName)
		capture.FilePath = filepath.Join(*captureDir, file.Name())
		capture.FileSize = info.Size()

		id, err := captures.Insert(capture)
		if err != nil {
			log.Fatalf("Failed to insert %s: %v", file.Name(), err)
		}

		if len(labels) > 0 {
			// Only labels survive in the file name, boxes are not recoverable.
			dets := make([]model.Detection, 0, len(labels))
			for _, label := range labels {
				dets = append(dets, model.Detection{CaptureID: id, ClassID: inference.ClassID(label), Label: label})
			}
			if err := detections.InsertBatch(dets); err != nil {
				log.Printf("Failed to insert labels for %s: %v", file.Name(), err)
			}
		}
		indexed++
	}

	fmt.Printf("Indexed %d captures, %d already present\n", indexed, existing)
	if skipped > 0 {
		fmt.Printf("Skipped %d files (invalid format or errors)\n", skipped)
	}

	stats, err := captures.GetStats()
	if err != nil {
		log.Fatalf("Failed to read statistics: %v", err)
	}
	fmt.Printf("\nDatabase Statistics:\n")
	fmt.Printf("   Total captures: %d\n", stats.TotalCaptures)
	fmt.Printf("   Total size: %d bytes\n", stats.TotalSizeBytes)
	for kind, count := range stats.PerKind {
		fmt.Printf("      - %s: %d\n", kind, count)
	}
}

func sensorOrDefault(sensor, def string) string {
	if sensor == "" {
		return def
	}
	return sensor
}
