// Package main provides the entry point for the trainboot CLI.
package main

import "os"

func main() {
	os.Exit(Execute())
}
