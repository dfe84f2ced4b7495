// Database migration CLI tool
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/prism-insight/cryptoswing/internal/store"
)

func main() {
	dbPath := flag.String("db-path", "stock_tracking_db.sqlite", "Path to the SQLite database")
	flag.Parse()

	st, err := store.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	// Open applies the schema; a second explicit pass verifies idempotency.
	if err := st.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database ready: %s\n", *dbPath)
}
