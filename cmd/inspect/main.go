// Command inspect dumps a page of the durable event log for offline
// debugging, either to stdout as JSON or over a local debug HTTP
// listener for interactive browsing.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"

	"hubevents/pkg/httpx"
	"hubevents/pkg/hubevents"
	"hubevents/pkg/kv"
	"hubevents/pkg/logger"
)

func main() {
	var (
		dbPath = flag.String("db", "", "Pebble DB path to inspect (required)")
		from   = flag.Uint64("from", 0, "starting event id, inclusive")
		n      = flag.Int("n", 50, "page size")
		serve  = flag.String("serve", "", "if set, serve a debug HTTP listener at this address instead of printing once")
	)
	flag.Parse()
	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "--db is required")
		os.Exit(2)
	}

	logger.Init()

	sync := false
	db, err := kv.Open(kv.Options{Path: *dbPath, Sync: &sync})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open %s: %v\n", *dbPath, err)
		os.Exit(1)
	}
	defer db.Close()

	log := hubevents.NewEventLog(db)

	if *serve == "" {
		dumpPage(log, *from, *n)
		return
	}

	handler := httpx.NetHTTPAdapter(func(w httpx.ResponseWriter, r *httpx.Request) {
		events, next, err := log.GetEventsPage(*from, *n)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(err.Error()))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"events":             events,
			"next_page_event_id": next,
		})
	})
	fmt.Fprintf(os.Stderr, "serving event log page dumps on %s\n", *serve)
	if err := http.ListenAndServe(*serve, handler); err != nil {
		fmt.Fprintf(os.Stderr, "server exited: %v\n", err)
		os.Exit(1)
	}
}

func dumpPage(log *hubevents.EventLog, from uint64, n int) {
	events, next, err := log.GetEventsPage(from, n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "page read failed: %v\n", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]interface{}{
		"events":             events,
		"next_page_event_id": next,
	})
}
