// portalctl is a command-line client for the barangay portal API.
//
// Usage:
//
//	portalctl login --email kap@barangay.gov.ph
//	portalctl submit ambulance --patient "Lola Nena" --contact 09171234567 ...
//	portalctl requests list ambulance --status pending
//	portalctl requests review ambulance <id> --status needs_approval
//	portalctl proposals list --status rejected
//	portalctl export court -f court.xlsx
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
