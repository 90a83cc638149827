// Command dualsub is the CLI for the dualsub download service. The serve
// subcommand runs the daemon; the remaining subcommands talk to a running
// daemon over its HTTP API.
package main
