// Package logging builds the slog loggers used throughout dualsub.
//
// It offers console and JSON handlers selected by configuration, shared
// attribute helpers, standardized field keys, and component loggers so every
// subsystem tags its output consistently. Console output is colorized only
// when attached to a terminal.
package logging
