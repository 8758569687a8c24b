package main

import (
	"os"

	"storyweave/internal/weavectl"
)

func main() {
	if err := weavectl.Execute(); err != nil {
		os.Exit(1)
	}
}
