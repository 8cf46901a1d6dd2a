// Package logging wires log/slog with the console and JSON handlers used
// across jigpipe, plus standardized attribute keys so every component logs
// game, slide, and media identifiers the same way.
package logging
