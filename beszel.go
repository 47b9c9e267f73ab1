// Package beszel provides core application constants and version information
// which are used throughout the application.
package beszel

const (
	// Version is the current version of the application.
	Version = "0.16.1"
	// AppName is the name of the application.
	AppName = "beszel"
)
