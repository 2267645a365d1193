// Package cli provides the interactive lootshop account client.
//
// App wires the client AuthService to a line-oriented REPL. A background
// watcher pings the server and flips the prompt between online and offline;
// session state lives in the local SQLite store, so a login survives
// restarts until the session expires.
//
// Commands: register, verify, resend, login, logout, whoami, profile,
// update, admin, reset, help, exit.
package cli
