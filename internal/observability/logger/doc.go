// Package logger provides a singleton zap logger with context-based scoping.
//
// A single global instance is initialized with Init() from main. Request
// middleware derives a scoped logger (request_id, method, path, tenant hint)
// and stores it in the request context; anywhere below, logger.From(ctx)
// returns that scoped logger or falls back to the singleton.
//
// "dev" builds a colored console encoder, "prod" builds JSON.
package logger
