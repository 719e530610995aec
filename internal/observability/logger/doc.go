// Package logger provides a process-wide zap logger with context scoping.
//
// Init is called once from main. Handlers and services pull a request-scoped
// logger from the context with From(ctx); when no logger was injected the
// singleton is returned, so From is always safe to call.
//
//	logger.Init(logger.Config{Env: "prod", Level: "info", ServiceName: "socialconnect"})
//	defer logger.Sync()
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Platform("twitter"))
//	log.Info("token refreshed", logger.UserID(userID))
//
// Tokens, authorization codes and client secrets must never be passed as fields.
package logger
