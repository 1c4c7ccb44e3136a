// Package server implements the HTTP surface of the photo wall: the
// listing and upload handlers, the multipart decoding in front of the
// upload pipeline, CORS, request logging, metrics and health endpoints.
//
// Handlers keep no state between requests. Every invocation loads its own
// configuration and builds its own storage and database clients.
//
// A request carrying Content-Transfer-Encoding: base64 has its body decoded
// before multipart parsing. Hosting adapters own that header; see package
// function.
package server
