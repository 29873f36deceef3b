// Package main is the entry point for the arcquery binary.
package main

import "os"

func main() {
	os.Exit(Execute())
}
