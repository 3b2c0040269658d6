package config

// Subcommand names
const (
	CommandImport = "import"
	CommandSync   = "sync"
	CommandServer = "server"
)
