// Package client talks to the lootshop server and bootstraps the CLI's local
// state database.
//
// # Overview
//
//  1. Client is the API contract of the auth endpoint; HTTPClient implements
//     it with JSON over HTTP POST to /api/auth.
//  2. Error envelopes are turned back into the sentinel errors of package
//     common, including the retry-after and verification-required payloads,
//     so callers use errors.Is / errors.As exactly as on the server.
//  3. Transport failures surface as ErrUnavailable.
//  4. InitDatabase opens the SQLite state file and applies the embedded goose
//     migrations.
package client
