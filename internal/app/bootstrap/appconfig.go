// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for HackHub.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig handles
// framework-level settings (ports, TLS, logging, CORS); AppConfig is where
// everything specific to the portal lives.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions
	SessionDomain string // Cookie domain (blank means current host)

	// Submission upload storage
	StorageType      string // Storage backend: "local" (S3 reserved for later)
	StorageLocalPath string // Local storage path for uploaded submission files
	StorageLocalURL  string // URL prefix for serving local files

	// Email/SMTP configuration for password-reset mail
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string // From email address (e.g., noreply@hackhub.events)
	MailFromName string // From display name

	// Base URL for password-reset links and OAuth callbacks
	BaseURL string // e.g., "https://hackhub.events" or "http://localhost:3000"

	// Password reset token lifetime
	ResetTokenExpiry time.Duration

	// How long login records are kept before background pruning
	LoginHistoryRetention time.Duration

	// Google OAuth configuration
	GoogleClientID     string
	GoogleClientSecret string
}
