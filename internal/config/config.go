package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Backup      BackupConfig      `yaml:"backup" json:"backup"`
	Share       ShareConfig       `yaml:"share" json:"share"`
	Destination DestinationConfig `yaml:"destination" json:"destination"`
	Catalog     CatalogConfig     `yaml:"catalog" json:"catalog"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
	Notify      NotifyConfig      `yaml:"notify" json:"notify"`
}

// BackupConfig contains archive creation and restore settings
type BackupConfig struct {
	// Root anchors the relative paths stored inside archives.
	Root        string   `yaml:"root" json:"root"`
	Directories []string `yaml:"directories" json:"directories"`
	Exclude     []string `yaml:"exclude" json:"exclude"`
	ArchiveDir  string   `yaml:"archive_dir" json:"archive_dir"`
	RestoreDir  string   `yaml:"restore_dir" json:"restore_dir"`
	TempDir     string   `yaml:"temp_dir" json:"temp_dir"`
	Compression int      `yaml:"compression" json:"compression"`
	Output      string   `yaml:"output" json:"output"`
}

// ShareConfig contains HTTP share/download settings
type ShareConfig struct {
	Port int `yaml:"port" json:"port"`
}

// DestinationConfig contains optional offsite copy settings
type DestinationConfig struct {
	Type string `yaml:"type" json:"type"` // "", "local", "sftp", "s3"
	Path string `yaml:"path" json:"path"`

	SFTPHost        string `yaml:"sftp_host" json:"sftp_host"`
	SFTPPort        int    `yaml:"sftp_port" json:"sftp_port"`
	SFTPUsername    string `yaml:"sftp_username" json:"sftp_username"`
	SFTPPassword    string `yaml:"sftp_password" json:"sftp_password"`
	SFTPKeyPath     string `yaml:"sftp_key_path" json:"sftp_key_path"`
	KnownHostsPath  string `yaml:"known_hosts_path" json:"known_hosts_path"`
	TrustOnFirstUse bool   `yaml:"trust_on_first_use" json:"trust_on_first_use"`

	S3Bucket    string `yaml:"s3_bucket" json:"s3_bucket"`
	S3Region    string `yaml:"s3_region" json:"s3_region"`
	S3AccessKey string `yaml:"s3_access_key" json:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key" json:"s3_secret_key"`
	S3Endpoint  string `yaml:"s3_endpoint" json:"s3_endpoint"`
}

// CatalogConfig contains backup catalog settings
type CatalogConfig struct {
	Path string `yaml:"path" json:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
}

// NotifyConfig contains desktop notification settings
type NotifyConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}

	cfg := &Config{
		Backup: BackupConfig{
			Root:        home,
			Directories: []string{"Documents", "Pictures", "Projects", ".config"},
			Exclude:     []string{"*.tmp", "node_modules", ".cache"},
			ArchiveDir:  filepath.Join(home, "backups"),
			RestoreDir:  home,
			TempDir:     filepath.Join(os.TempDir(), "backup-manager"),
			Compression: 6,
		},
		Share: ShareConfig{
			Port: 8000,
		},
		Destination: DestinationConfig{
			SFTPPort:        22,
			TrustOnFirstUse: true,
		},
		Catalog: CatalogConfig{
			Path: "",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			File:       "",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
		},
		Notify: NotifyConfig{
			Enabled: true,
		},
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = resolveConfigPath(home)
	}

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Override with environment variables
	if archiveDir := os.Getenv("BACKUP_DIR"); archiveDir != "" {
		cfg.Backup.ArchiveDir = archiveDir
	}

	if root := os.Getenv("BACKUP_ROOT"); root != "" {
		cfg.Backup.Root = root
	}

	if tempDir := os.Getenv("BACKUP_TMP"); tempDir != "" {
		cfg.Backup.TempDir = tempDir
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	cfg.normalizePaths(home)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Backup.Compression < 0 || c.Backup.Compression > 9 {
		return fmt.Errorf("compression must be between 0 and 9, got %d", c.Backup.Compression)
	}

	if c.Share.Port < 1 || c.Share.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Share.Port)
	}

	switch c.Destination.Type {
	case "", "local", "sftp", "s3":
	default:
		return fmt.Errorf("unsupported destination type: %s", c.Destination.Type)
	}

	if c.Destination.Type != "" && strings.TrimSpace(c.Destination.Path) == "" {
		return fmt.Errorf("destination type %s requires a path", c.Destination.Type)
	}

	return nil
}

// Save writes the configuration back to disk
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func resolveConfigPath(home string) string {
	candidates := []string{
		filepath.Join(home, ".config", "backup-manager", "config.yaml"),
		"./configs/config.yaml",
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return candidates[0]
}

func (c *Config) normalizePaths(home string) {
	resolvePath := func(value string) string {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return ""
		}
		if trimmed == "~" {
			return home
		}
		if strings.HasPrefix(trimmed, "~/") {
			trimmed = filepath.Join(home, trimmed[2:])
		}
		if filepath.IsAbs(trimmed) {
			return filepath.Clean(trimmed)
		}
		if abs, err := filepath.Abs(trimmed); err == nil {
			return abs
		}
		return filepath.Clean(trimmed)
	}

	if strings.TrimSpace(c.Backup.Root) == "" {
		c.Backup.Root = home
	}
	c.Backup.Root = resolvePath(c.Backup.Root)

	if strings.TrimSpace(c.Backup.ArchiveDir) == "" {
		c.Backup.ArchiveDir = filepath.Join(home, "backups")
	}
	c.Backup.ArchiveDir = resolvePath(c.Backup.ArchiveDir)

	if strings.TrimSpace(c.Backup.RestoreDir) == "" {
		c.Backup.RestoreDir = home
	}
	c.Backup.RestoreDir = resolvePath(c.Backup.RestoreDir)

	if strings.TrimSpace(c.Backup.TempDir) == "" {
		c.Backup.TempDir = filepath.Join(os.TempDir(), "backup-manager")
	}
	c.Backup.TempDir = resolvePath(c.Backup.TempDir)

	if strings.TrimSpace(c.Catalog.Path) == "" {
		c.Catalog.Path = filepath.Join(c.Backup.ArchiveDir, "catalog.db")
	}
	c.Catalog.Path = resolvePath(c.Catalog.Path)

	if c.Logging.File != "" {
		c.Logging.File = resolvePath(c.Logging.File)
	}
}
