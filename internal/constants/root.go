package constants

import "time"

// SessionState represents the current state of the TUI application
type SessionState int

const (
	AppName            = "weekplan"
	DefaultKeyringUser = "database-connection"
	DefaultConfigDir   = "~/.config/weekplan"
	DefaultConfigPath  = "~/.config/weekplan/weekplan.db"
	DefaultConfigFile  = "config.yaml"
	Version            = "v0.3.0"

	// ConnectionEnvVar holds a PostgreSQL connection string when no --store is given
	ConnectionEnvVar = "WEEKPLAN_DB_CONNECTION"
	// EnvPrefix is the prefix for configuration overrides read from the environment
	EnvPrefix = "WEEKPLAN_"

	// DefaultScheduleName is the document key used when none is configured
	DefaultScheduleName = "default"
	// DefaultSlotName names the single slot created for an empty store
	DefaultSlotName = "09:00 - 10:00"

	// Cell color defaults (hex)
	DefaultBackground = "#1e1e1e"
	DefaultForeground = "#ffffff"

	// DocumentVersion is the current version of the persisted schedule document
	DocumentVersion = 1

	// SessionsDirName holds one lockfile per running editor
	SessionsDirName = "sessions"

	// Log file rotation
	LogDirName    = "logs"
	LogMaxSizeMB  = 5
	LogMaxBackups = 3
	LogMaxAgeDays = 28

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "weekplan-"

	// MQTT constants
	DefaultTopicPrefix = "weekplan"
	MQTTConnectTimeout = 5 * time.Second
	MQTTPublishTimeout = 2 * time.Second
	MQTTDrainTimeout   = 3 * time.Second
	MQTTQueueSize      = 64
)

// Session States
const (
	StateGrid SessionState = iota
	StateEditCell
	StateAddSlot
	StateRenameSlot
	StateConfirmDelete
	StateConfirmQuit
)
