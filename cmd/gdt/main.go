// Package main is the entry point for the Gatling Dashboard TUI. Without a
// subcommand it runs the dashboard; the subcommands import, print and check
// runs from scripts and CI.
package main

func main() {
	Execute()
}
