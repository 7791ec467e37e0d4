// Package application wires the config store, resolver, command runner,
// secret vault and launcher together. It turns one CLI invocation into a set
// of resolved environments and hands each one off to the configured command,
// keeping the main package focused on flag parsing.
package application
