package main

import (
	"fmt"
	"os"
	"path/filepath"

	"fjacquet/alipay-ledger/cmd/ingest"
	"fjacquet/alipay-ledger/cmd/root"

	"github.com/joho/godotenv"
)

func init() {
	// Load environment variables silently first (no logging yet)
	loadEnvSilently()

	root.Cmd.AddCommand(ingest.Cmd)
}

// loadEnvSilently loads environment variables without logging anything
func loadEnvSilently() {
	// Try to find .env file in current directory
	envFile := ".env"
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		// Try to find .env in parent directory (project root)
		envFile = filepath.Join("..", ".env")
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			return
		}
	}

	// Load .env file silently without logging
	_ = godotenv.Load(envFile)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
