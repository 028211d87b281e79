// Command kiosk-migrate provisions or upgrades the kiosk's local embedded
// schema without starting the rest of the kiosk — the standalone
// equivalent of the source's init_local_db.py create_database() step
// (spec.md §9 supplemented feature).
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/maniegokryz-prog/EndDev/pkg/localstore"
)

var (
	Path = pflag.StringP("path", "p", "kiosk_local.db", "path to the local embedded store")
	Help = pflag.BoolP("help", "h", false, "show this help text")
)

func main() {
	pflag.Parse()
	if *Help {
		fmt.Printf("usage: %s [options]\n%s", os.Args[0], pflag.CommandLine.FlagUsages())
		return
	}

	store, err := localstore.Open(*Path)
	if err != nil {
		slog.Error("migrate: open/create local store failed", slog.String("path", *Path), slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	slog.Info("migrate: local store ready", slog.String("path", *Path), slog.Int("schema_version", localstore.SchemaVersion))
}
