package config

import (
	"errors"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "tansu.db"
	appDirName            = "tansu"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendNeo4j  = "neo4j"
	BackendMemory = "memory"
)

type Keymap struct {
	Quit        string `toml:"quit"`
	Add         string `toml:"add"`
	Up          string `toml:"up"`
	Down        string `toml:"down"`
	Done        string `toml:"done"`
	Inbox       string `toml:"inbox"`
	Today       string `toml:"today"`
	ProjectView string `toml:"project_view"`
	NewProject  string `toml:"new_project"`
	Complete    string `toml:"complete_project"`
	Schedule    string `toml:"schedule"`
	Move        string `toml:"move"`
	Nest        string `toml:"nest"`
	Unnest      string `toml:"unnest"`
	Confirm     string `toml:"confirm"`
	Cancel      string `toml:"cancel"`
	Rename      string `toml:"rename"`
	MarkToday   string `toml:"mark_today"`
	MarkAnytime string `toml:"mark_anytime"`
	MarkSomeday string `toml:"mark_someday"`
	MarkInbox   string `toml:"mark_inbox"`
}

type Neo4jConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type Config struct {
	Backend        string      `toml:"backend"`
	DBPath         string      `toml:"db_path"`
	Neo4j          Neo4jConfig `toml:"neo4j"`
	DefaultProject string      `toml:"default_project"`
	LogPath        string      `toml:"log_path"`
	Keys           Keymap      `toml:"keys"`
}

// ResolveConfigPath places the config under the user config dir, falling back
// to the working directory.
func ResolveConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(base, appDirName, DefaultConfigFileName)
}

// LoadOrCreate reads the config at path, writing the defaults there first if
// the file does not exist yet.
func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	switch cfg.Backend {
	case BackendSQLite, BackendNeo4j, BackendMemory:
	default:
		cfg.Backend = BackendSQLite
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath()
	}
	if cfg.DefaultProject == "" {
		cfg.DefaultProject = "Personal"
	}
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultDBPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return DefaultDBName
	}
	return filepath.Join(base, appDirName, DefaultDBName)
}

func defaultConfig() Config {
	return Config{
		Backend:        BackendSQLite,
		DBPath:         defaultDBPath(),
		DefaultProject: "Personal",
		Neo4j: Neo4jConfig{
			URI:  "neo4j://localhost:7687",
			User: "neo4j",
		},
		Keys: Keymap{
			Quit:        "q",
			Add:         "a",
			Up:          "k",
			Down:        "j",
			Done:        " ",
			Inbox:       "1",
			Today:       "2",
			ProjectView: "3",
			NewProject:  "N",
			Complete:    "C",
			Schedule:    "s",
			Move:        "m",
			Nest:        ">",
			Unnest:      "<",
			Confirm:     "enter",
			Cancel:      "esc",
			Rename:      "r",
			MarkToday:   "t",
			MarkAnytime: "y",
			MarkSomeday: "o",
			MarkInbox:   "i",
		},
	}
}
