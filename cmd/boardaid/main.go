// Package main provides the entry point for the boardaid CLI.
//
// boardaid polls imageboards, holds threads that match the block lists
// back for review and downloads the images of every other thread.
//
// Usage:
//
//	boardaid run https://boards.4chan.org/wg/
//	boardaid report --markdown
//
// See --help for all available options.
package main

func main() {
	Execute()
}
