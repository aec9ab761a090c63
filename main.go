package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/cotarr/collab-auth-sub000/internal/bootstrap"
	"github.com/cotarr/collab-auth-sub000/internal/config"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "server":
		cfg := config.Load()
		if err := bootstrap.Run(cfg); err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Usage: %s COMMAND\n\n", os.Args[0])
	fmt.Println("OAuth 2.0 authorization server")
	fmt.Println("\nCommands:")
	fmt.Println("  server    Start the authorization server")
	fmt.Println("\nOptions:")
	fmt.Println("  -h, --help    Show this help message")
}
