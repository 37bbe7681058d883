package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/zenGate-Global/palmyra-gacha/apps/cli/root"
)

func main() {
	_ = godotenv.Load()

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
