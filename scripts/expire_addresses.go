package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

// Marks stale WAITING deposit addresses as EXPIRED directly in the
// database. The reconciler does this on its own cycle; this script is
// for recovering after extended downtime, when the backlog would make
// the first poll cycle crawl through hundreds of dead addresses.
func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	// Connect to database
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	// Test connection
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	fmt.Println("✅ Connected to database")

	// Step 1: Count the backlog
	var waiting int
	err = db.QueryRow(`
		SELECT COUNT(*) FROM deposit_addresses
		WHERE status = 'WAITING' AND expires_at < NOW()
	`).Scan(&waiting)
	if err != nil {
		log.Fatal("Failed to count stale addresses:", err)
	}
	fmt.Printf("⏱️  Found %d stale WAITING addresses\n", waiting)

	if waiting == 0 {
		fmt.Println("Nothing to do")
		return
	}

	// Step 2: Expire them. Only WAITING rows are touched, so a deposit
	// the reconciler confirms between the count and this statement is
	// left alone.
	result, err := db.Exec(`
		UPDATE deposit_addresses
		SET status = 'EXPIRED', updated_at = NOW()
		WHERE status = 'WAITING' AND expires_at < NOW()
	`)
	if err != nil {
		log.Fatal("Failed to expire addresses:", err)
	}
	rows, _ := result.RowsAffected()
	fmt.Printf("🗑️  Expired %d addresses\n", rows)

	// Step 3: Report addresses that expired holding a balance record,
	// so an operator can decide whether refunds are owed
	var observed int
	err = db.QueryRow(`
		SELECT COUNT(*) FROM deposit_addresses
		WHERE status = 'EXPIRED' AND observed_amount IS NOT NULL
	`).Scan(&observed)
	if err != nil {
		log.Printf("⚠️  Warning counting funded expired addresses: %v", err)
	} else if observed > 0 {
		fmt.Printf("⚠️  %d expired addresses have an observed amount - review for refunds\n", observed)
	}

	fmt.Println("✅ Done")
}
