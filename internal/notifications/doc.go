// Package notifications delivers job outcomes via ntfy.
//
// The default implementation publishes to the topic configured in config.toml
// and degrades to a no-op when no topic is set. Each event class (builds,
// ingests, errors) can be muted independently through the notifications
// section of the config.
package notifications
