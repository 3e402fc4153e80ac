package main

import (
	"log"

	"golang-stock-ai/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatalf("golang-stock-ai: %v", err)
	}
}
