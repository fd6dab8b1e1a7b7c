// Package config holds the process configuration read from the environment
// and the fleet description read from config.yaml.
package config

import (
	"time"

	"github.com/bloops-games/botmanager/internal/database"
	"github.com/bloops-games/botmanager/internal/logging"
)

type Config struct {
	Debug bool `envconfig:"BOTMANAGER_DEBUG" default:"false"`

	// Fleet description
	ConfigFile string `envconfig:"BOTMANAGER_CONFIG_FILE" default:"config.yaml"`

	// Bot executables and the per slot working directories
	ResourceDir      string   `envconfig:"BOTMANAGER_RESOURCE_DIR" default:"resources"`
	LocalResourceDir string   `envconfig:"BOTMANAGER_LOCAL_RESOURCE_DIR" default:"resources-local"`
	MountedResources bool     `envconfig:"BOTMANAGER_MOUNTED_RESOURCES" default:"false"`
	ResourceBinaries []string `envconfig:"BOTMANAGER_RESOURCE_BINARIES" default:"bots.exe,bots.dll"`
	RunningDir       string   `envconfig:"BOTMANAGER_RUNNING_DIR" default:"running"`
	BotCommand       string   `envconfig:"BOTMANAGER_BOT_COMMAND" default:"wine"`
	BotArgs          []string `envconfig:"BOTMANAGER_BOT_ARGS" default:"bots.exe"`

	// Port of the health check and status API
	Port string `envconfig:"BOTMANAGER_PORT" default:"1234"`

	// embedded so the nested variables keep their names without a prefix
	logging.FileConfig
	database.Config
	Cache
	Query
	Fleet
	Telegram
}

type Cache struct {
	// Items kept by the in-memory store and the database read cache
	Size int `envconfig:"BOTMANAGER_CACHE_SIZE" default:"1024"`

	// Shared store, takes precedence over badger
	RedisURL string `envconfig:"REDIS_URL"`

	// On-disk store used when redis is not configured
	BadgerPath string `envconfig:"BOTMANAGER_BADGER_PATH"`

	KeyPrefix string `envconfig:"REDIS_KEY_PREFIX"`
}

type Query struct {
	RequestTimeout  time.Duration `envconfig:"API_REQUEST_TIMEOUT" default:"2s"`
	StatusCacheTTL  time.Duration `envconfig:"STATUS_CACHE_TTL" default:"18s"`
	BflistURL       string        `envconfig:"BOTMANAGER_BFLIST_URL" default:"https://api.bflist.io/bf2/v1"`
	GamespyAttempts int           `envconfig:"BOTMANAGER_GAMESPY_ATTEMPTS" default:"2"`
}

type Fleet struct {
	// A started bot that never showed up on the server is cycled after this
	JoinTimeout time.Duration `envconfig:"BOT_JOIN_TIMEOUT" default:"300s"`

	// A bot missing from the server for longer than this is cycled
	OnServerTimeout time.Duration `envconfig:"BOT_ON_SERVER_TIMEOUT" default:"180s"`

	// Older status checks are not trusted for cycling decisions
	StatusUpdateTimeout time.Duration `envconfig:"BOT_STATUS_UPDATE_TIMEOUT" default:"30s"`

	// Delay before bot slots are handed back to players
	SlotTimeout time.Duration `envconfig:"BOT_SLOT_TIMEOUT" default:"60s"`

	// Delay before free slots are handed to bots
	ReservedSlotTimeout time.Duration `envconfig:"RESERVED_SLOT_TIMEOUT" default:"240s"`

	OverpopulateFactor     int           `envconfig:"OVERPOPULATE_FACTOR" default:"2"`
	AutobalanceMaxDuration time.Duration `envconfig:"AUTOBALANCE_MAX_DURATION" default:"240s"`

	LaunchSpacing    time.Duration `envconfig:"BOTMANAGER_LAUNCH_SPACING" default:"2s"`
	StopWaitAttempts int           `envconfig:"BOTMANAGER_STOP_WAIT_ATTEMPTS" default:"15"`
	PollInterval     time.Duration `envconfig:"BOTMANAGER_POLL_INTERVAL" default:"1s"`

	StatusInterval  time.Duration `envconfig:"BOTMANAGER_STATUS_INTERVAL" default:"20s"`
	StatusJitterMin time.Duration `envconfig:"BOTMANAGER_STATUS_JITTER_MIN" default:"0s"`
	StatusJitterMax time.Duration `envconfig:"BOTMANAGER_STATUS_JITTER_MAX" default:"5s"`

	BotMaintenanceSchedule  string `envconfig:"BOTMANAGER_BOT_MAINTENANCE_SCHEDULE" default:"0 */2 * * * *"`
	SlotMaintenanceSchedule string `envconfig:"BOTMANAGER_SLOT_MAINTENANCE_SCHEDULE" default:"10,30,50 * * * * *"`
}

type Telegram struct {
	Token string `envconfig:"BOTMANAGER_TELEGRAM_TOKEN"`

	// Usernames allowed to run commands
	Admins []string `envconfig:"BOTMANAGER_TELEGRAM_ADMINS"`

	PollTimeout time.Duration `envconfig:"BOTMANAGER_TELEGRAM_POLL_TIMEOUT" default:"60s"`
}
