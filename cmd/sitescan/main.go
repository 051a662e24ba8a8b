// Package main provides the entry point for the sitescan CLI.
//
// sitescan crawls a website from one or more seed addresses, records the
// addresses and tag records it finds, counts keywords and re-scans the site
// until its content stops changing.
//
// Usage:
//
//	sitescan scan <seed>
//	sitescan scan --list <file>
//	sitescan history <seed>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
