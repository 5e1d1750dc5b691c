package banner

import (
	"fmt"

	"hubevents/pkg/config"
)

const banner = `
██╗  ██╗██╗   ██╗██████╗ ███████╗██╗   ██╗███████╗███╗   ██╗████████╗███████╗
██║  ██║██║   ██║██╔══██╗██╔════╝██║   ██║██╔════╝████╗  ██║╚══██╔══╝██╔════╝
███████║██║   ██║██████╔╝█████╗  ██║   ██║█████╗  ██╔██╗ ██║   ██║   ███████╗
██╔══██║██║   ██║██╔══██╗██╔══╝  ╚██╗ ██╔╝██╔══╝  ██║╚██╗██║   ██║   ╚════██║
██║  ██║╚██████╔╝██████╔╝███████╗ ╚████╔╝ ███████╗██║ ╚████║   ██║   ███████║
╚═╝  ╚═╝ ╚═════╝ ╚═════╝ ╚══════╝  ╚═══╝  ╚══════╝╚═╝  ╚═══╝   ╚═╝   ╚══════╝
`

// Print prints a startup banner summarizing the effective configuration
// of a running store event handler.
func Print(cfg *config.Config, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Admin listen: %s\n", cfg.Addr())
	fmt.Printf("DB path:      %s\n", cfg.Storage.DBPath)
	if version != "" {
		fmt.Printf("Version:      %s\n", version)
	}
	fmt.Printf("Commit slot:  max_pending=%d timeout=%s\n", cfg.Coord.LockMaxPending, cfg.Coord.LockTimeout.Duration())

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("GET  /v1/events/lookup?id= - point lookup by event id")
	fmt.Println("GET  /v1/events?from=&n=   - paginated event scan")
	fmt.Println("GET  /v1/usage?account=&set= - cached usage for an account/set")
	fmt.Println("GET  /v1/prunable          - prunability check for a candidate message")
	fmt.Println("POST /v1/prune             - trigger an out-of-band prune pass")
	fmt.Println("GET  /metrics              - Prometheus metrics")
	fmt.Println("GET  /healthz, /readyz     - liveness/readiness")

	fmt.Println("\n== Retention ==================================================")
	if cfg.Retention.Enabled {
		fmt.Printf("enabled, cron=%q, time_limit=%s\n", cfg.Retention.Cron, cfg.Retention.TimeLimit.Duration())
	} else {
		fmt.Println("disabled")
	}
	fmt.Println()
}
