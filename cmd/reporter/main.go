// Command reporter is a small field-client CLI around the durable submission
// queue. It is what a device-side integration would call: compose a report
// offline, check how many are waiting, and drain the queue once connectivity
// is back.
//
// Usage:
//
//	reporter enqueue -category service-status -description "no water on main street" \
//	    -service water -status cutoff -coords -lat 33.455 -lng 36.245
//	reporter pending
//	reporter drain -server http://localhost:8080/api/v1
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/client"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	dbPath := os.Getenv("QUEUE_DB_PATH")
	if dbPath == "" {
		dbPath = "reporter-queue.db"
	}

	db, err := client.OpenQueueDB(dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", dbPath).Msg("open queue database")
	}
	queue := &client.Queue{DB: db}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "enqueue":
		cmdEnqueue(ctx, queue, os.Args[2:])
	case "pending":
		cmdPending(ctx, queue)
	case "drain":
		cmdDrain(ctx, queue, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: reporter <enqueue|pending|drain> [flags]")
}

func cmdEnqueue(ctx context.Context, queue *client.Queue, args []string) {
	fs := flag.NewFlagSet("enqueue", flag.ExitOnError)
	category := fs.String("category", "", "report category (outage|danger|waste|maintenance|service-status)")
	service := fs.String("service", "", "service type for service-status reports (electricity|water)")
	status := fs.String("status", "", "observed status (available|unstable|cutoff)")
	lat := fs.Float64("lat", 0, "latitude")
	lng := fs.Float64("lng", 0, "longitude")
	hasCoords := fs.Bool("coords", false, "set when -lat/-lng carry a real location")
	description := fs.String("description", "", "free-text description")
	imageURL := fs.String("image", "", "optional image URL")
	infraPoint := fs.String("infra", "", "optional infrastructure point id")
	_ = fs.Parse(args)

	d := client.Draft{
		Category:    *category,
		Description: *description,
	}
	if *service != "" {
		d.ServiceType = service
	}
	if *status != "" {
		d.Status = status
	}
	if *hasCoords {
		d.Latitude = lat
		d.Longitude = lng
	}
	if *imageURL != "" {
		d.ImageURL = imageURL
	}
	if *infraPoint != "" {
		d.InfraPointID = infraPoint
	}

	id, err := queue.Enqueue(ctx, d)
	if err != nil {
		log.Fatal().Err(err).Msg("enqueue failed")
	}
	fmt.Println(id)
}

func cmdPending(ctx context.Context, queue *client.Queue) {
	n, err := queue.PendingCount(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("pending count failed")
	}
	fmt.Println(n)
}

func cmdDrain(ctx context.Context, queue *client.Queue, args []string) {
	fs := flag.NewFlagSet("drain", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8080/api/v1", "server API base URL")
	timeout := fs.Duration("item-timeout", 10*time.Second, "per-report upload deadline")
	_ = fs.Parse(args)

	coord := &client.Coordinator{
		Queue:       queue,
		Uploader:    &client.HTTPUploader{BaseURL: *server},
		ItemTimeout: *timeout,
		OnRejected: func(item client.QueuedItem, cause error) {
			log.Warn().Str("client_id", item.ClientID).Err(cause).Msg("report rejected")
		},
	}

	stats, err := coord.Drain(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("drain failed")
	}
	fmt.Printf("synced=%d rejected=%d failed=%d\n", stats.Synced, stats.Rejected, stats.Failed)
}
