// Command lounge-token issues a staff bearer token for the HTTP API.
//
//	lounge-token <staff-id>
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"ms-lounge/internal/auth"
	"ms-lounge/internal/config"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: lounge-token <staff-id>")
		os.Exit(2)
	}
	staffID, err := strconv.ParseInt(os.Args[1], 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid staff id %q\n", os.Args[1])
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot issue token: %v\n", err)
		os.Exit(1)
	}
	token, expires, err := issuer.IssueStaffToken(staffID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
	if cfg.Business.IsAdmin(staffID) {
		fmt.Fprintf(os.Stderr, "admin token, expires %s\n", expires.Format(time.RFC3339))
	} else {
		fmt.Fprintf(os.Stderr, "staff token, expires %s\n", expires.Format(time.RFC3339))
	}
}
