package commands

// ClientContextKey is used for storing the client in context for commands.
// All command handlers and the main entry point must use this same key.
var ClientContextKey = &struct{}{}
