package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// DataDir is the directory holding the reference sources
	// (ElemDB.txt, SpeciesDB1.txt, ...). Defaults to <baseDir>/data.
	DataDir string `json:"data_dir,omitempty"`

	// ElementFile is the shared element source used when a database set has
	// no numbered element source of its own.
	ElementFile string `json:"element_file,omitempty"`

	// SpeciesPrefix is the base name of the numbered species sources.
	SpeciesPrefix string `json:"species_prefix,omitempty"`

	// SourceExt is the extension shared by all reference sources.
	SourceExt string `json:"source_ext,omitempty"`

	// DissociationMarker names the species whose zero coefficient enables the
	// solubility-product estimate.
	DissociationMarker string `json:"dissociation_marker,omitempty"`

	// KspDatabases restricts pKsp reporting to databases with these short names.
	// Empty means pKsp is reported for every database.
	KspDatabases []string `json:"ksp_databases,omitempty"`

	// SnapshotFile is the name of the diagnostic species table written when a
	// database is selected. Set to "-" to disable.
	SnapshotFile string `json:"snapshot_file,omitempty"`

	// AllowedPaths lists extra absolute directories that snapshot exports may
	// be written to, besides <baseDir>/exports.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// DBMaxOpenConns limits the maximum number of open history database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool type names ("database", "calc") to disable entirely.
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
// DataDir is left empty; callers resolve it against the base directory.
func DefaultConfig() *Config {
	return &Config{
		ElementFile:        "ElemDB.txt",
		SpeciesPrefix:      "SpeciesDB",
		SourceExt:          ".txt",
		DissociationMarker: "H+",
		SnapshotFile:       "currdata.txt",
		LogLevel:           "info",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.thermap.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	cfg.ResolveDataDir(baseDir)
	return cfg, nil
}

// LoadWithRepo loads configuration from both global (~/.thermap) and repo (.thermap) directories.
// Repo config is found by walking upward from startDir to find the nearest .thermap/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}
	// A relative data_dir in a repo config is relative to the repo root.
	if repo.DataDir != "" && !filepath.IsAbs(repo.DataDir) && repoConfigPath != "" {
		repo.DataDir = filepath.Join(filepath.Dir(filepath.Dir(repoConfigPath)), repo.DataDir)
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	cfg.ResolveDataDir(globalDir)
	return cfg, nil
}

// ResolveDataDir defaults DataDir to baseDir/data.
func (c *Config) ResolveDataDir(baseDir string) {
	if c.DataDir == "" {
		c.DataDir = filepath.Join(baseDir, "data")
	}
}

// SnapshotEnabled reports whether the diagnostic species table should be written.
func (c *Config) SnapshotEnabled() bool {
	return c.SnapshotFile != "" && c.SnapshotFile != "-"
}

// KspAllowed reports whether pKsp may be reported for the named database.
func (c *Config) KspAllowed(dbName string) bool {
	if len(c.KspDatabases) == 0 {
		return true
	}
	for _, name := range c.KspDatabases {
		if strings.EqualFold(name, dbName) {
			return true
		}
	}
	return false
}

// FindRepoConfig walks upward from startDir to find the nearest .thermap/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".thermap", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		DataDir:            pickString(base.DataDir, overlay.DataDir),
		ElementFile:        pickString(base.ElementFile, overlay.ElementFile),
		SpeciesPrefix:      pickString(base.SpeciesPrefix, overlay.SpeciesPrefix),
		SourceExt:          pickString(base.SourceExt, overlay.SourceExt),
		DissociationMarker: pickString(base.DissociationMarker, overlay.DissociationMarker),
		SnapshotFile:       pickString(base.SnapshotFile, overlay.SnapshotFile),
		LogLevel:           pickString(base.LogLevel, overlay.LogLevel),
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	result.KspDatabases = mergeStringSlice(base.KspDatabases, overlay.KspDatabases)
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

// pickString returns overlay if non-blank, else base.
func pickString(base, overlay string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
