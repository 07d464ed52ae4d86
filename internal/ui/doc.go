// Package ui renders command lifecycle events as concise console lines.
//
// Structured runs keep the field-rich events emitted by execshell; console
// runs swap in ConsoleCommandEventLogger so pipeline logs stay readable.
package ui
