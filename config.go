package main

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jinzhu/configor"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	defaultUploadingPrefix     = "__uploading "
	defaultBackupDirectoryName = "___backup"
	envPrefix                  = "MIRRORSYNC"
)

type AppConfig struct {
	Provider             ProviderConfig
	Container            string `default:"default"`
	MaxRequest           int    `default:"2"`
	MaxUpload            int    `default:"2"`
	MaxUploadSize        int64  `default:"1048576"`
	UploadingPrefix      string
	BackupDirectoryName  string
	PurgeUploadingFiles  bool
	Progress             bool
	Versioning           bool
	DryRun               bool
	DirectoryConcurrency int `default:"4"`
	ListPageSize         int `default:"10000"`
	ListingCacheSize     int
	LockFile             string
	LogLevel             string `default:"info"`
	Sync                 []SyncConfig
	Notify               NotifyConfig
}

type ProviderConfig struct {
	Type            string `default:"swift"`
	AuthURL         string
	User            string
	Key             string
	StorageURL      string
	Token           string
	TokenPath       string
	SaveTokens      bool
	Region          string
	Profile         string
	Endpoint        string
	AccessKey       string
	SecretKey       string
	CredentialsFile string
}

type SyncConfig struct {
	Source      string `required:"true"`
	Destination string
	// Interval in minutes; zero means the scenario runs once.
	Interval int
	Exclude  []string
}

type NotifyConfig struct {
	Region  string
	Profile string
	Topic   string
}

// LoadConfig reads an optional .env file, then configFilePath (may be empty)
// and MIRRORSYNC_ prefixed environment variables.
func LoadConfig(configFilePath string) (AppConfig, error) {
	if envErr := godotenv.Load(); envErr != nil {
		log.Debug(".env file not loaded, using process environment only")
	}

	var appConfig AppConfig
	files := make([]string, 0, 1)
	if configFilePath != "" {
		files = append(files, configFilePath)
	}
	loader := configor.New(&configor.Config{ENVPrefix: envPrefix, Silent: true})
	if loadErr := loader.Load(&appConfig, files...); loadErr != nil {
		return appConfig, fmt.Errorf("loading config: %w", loadErr)
	}

	appConfig.applyDefaults()
	return appConfig, nil
}

// applyDefaults fills values configor cannot express as tag defaults.
func (c *AppConfig) applyDefaults() {
	if c.UploadingPrefix == "" {
		c.UploadingPrefix = defaultUploadingPrefix
	}
	if c.BackupDirectoryName == "" {
		c.BackupDirectoryName = defaultBackupDirectoryName
	}
}

func (c AppConfig) Validate() error {
	if len(c.Sync) == 0 {
		return errors.New("no sync scenario configured")
	}
	if c.MaxRequest < 1 || c.MaxUpload < 1 || c.DirectoryConcurrency < 1 {
		return fmt.Errorf("concurrency settings must be positive (maxRequest=%d maxUpload=%d directoryConcurrency=%d)",
			c.MaxRequest, c.MaxUpload, c.DirectoryConcurrency)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("maxUploadSize must be positive, got %d", c.MaxUploadSize)
	}
	if c.Provider.Type == "s3" && c.MaxUploadSize < s3MinimumPartSize {
		return fmt.Errorf("maxUploadSize must be at least %d bytes for s3", s3MinimumPartSize)
	}
	for _, sc := range c.Sync {
		if sc.Source == "" {
			return errors.New("sync scenario without source")
		}
		if sc.Interval < 0 {
			return fmt.Errorf("negative interval for %s", sc.Source)
		}
		for _, pattern := range sc.Exclude {
			if _, compileErr := regexp.Compile(pattern); compileErr != nil {
				return fmt.Errorf("invalid exclude pattern %q for %s: %w", pattern, sc.Source, compileErr)
			}
		}
	}
	return nil
}

// AuthFromConfig prefers a configured storage url and token over the Swift
// v1 handshake.
func (c AppConfig) AuthFromConfig() AuthProvider {
	if c.Provider.StorageURL != "" && c.Provider.Token != "" {
		return StaticAuth{Credentials: Credentials{StorageURL: c.Provider.StorageURL, Token: c.Provider.Token}}
	}
	return NewSwiftAuth(c.Provider)
}

func (c AppConfig) TransportFromConfig() (Transport, error) {
	var transport Transport

	switch c.Provider.Type {
	case "swift":
		transport = NewSwiftTransport(c.AuthFromConfig())
	case "s3":
		s3Transport, err := NewS3Transport(c.Provider)
		if err != nil {
			return transport, err
		}
		transport = s3Transport
	case "gcs":
		gcsTransport, err := NewGCSTransport(c.Provider)
		if err != nil {
			return transport, err
		}
		transport = gcsTransport
	default:
		return transport, fmt.Errorf("Unknown storage provider: %s", c.Provider.Type)
	}

	return transport, nil
}

func (c AppConfig) StoreOptions() StoreOptions {
	return StoreOptions{
		Container:       c.Container,
		MaxRequest:      c.MaxRequest,
		MaxUpload:       c.MaxUpload,
		MaxUploadSize:   c.MaxUploadSize,
		UploadingPrefix: c.UploadingPrefix,
		ListPageSize:    c.ListPageSize,
		DryRun:          c.DryRun,
		Progress:        c.Progress,
	}
}

func (c AppConfig) SyncOptions(sc SyncConfig) SyncOptions {
	return SyncOptions{
		Versioning:          c.Versioning,
		BackupDirectoryName: c.BackupDirectoryName,
		UploadingPrefix:     c.UploadingPrefix,
		PurgeUploadingFiles: c.PurgeUploadingFiles,
		Concurrency:         c.DirectoryConcurrency,
		Exclude:             sc.Exclude,
	}
}

func (c AppConfig) ConfigStringArray() []string {
	configStrArr := make([]string, 0)
	configStrArr = append(configStrArr, fmt.Sprintf("  - Provider: %s", c.Provider.Type))
	configStrArr = append(configStrArr, fmt.Sprintf("  - Container: %s", c.Container))
	configStrArr = append(configStrArr, fmt.Sprintf("  - Concurrent Requests: %d", c.MaxRequest))
	configStrArr = append(configStrArr, fmt.Sprintf("  - Concurrent Uploads: %d", c.MaxUpload))
	configStrArr = append(configStrArr, fmt.Sprintf("  - Segment Size: %d", c.MaxUploadSize))
	configStrArr = append(configStrArr, fmt.Sprintf("  - Versioning: %t", c.Versioning))

	if c.DryRun {
		configStrArr = append(configStrArr, "  - Dry Run")
	}
	if c.Notify.Topic != "" {
		configStrArr = append(configStrArr, fmt.Sprintf("  - SNSTopic: %s", c.Notify.Topic))
	}

	configStrArr = append(configStrArr, "Folders To Sync:")
	for _, syncConfig := range c.Sync {
		line := fmt.Sprintf("  - %s -> /%s", syncConfig.Source, strings.Trim(syncConfig.Destination, "/"))
		if syncConfig.Interval > 0 {
			line += fmt.Sprintf(" every %dm", syncConfig.Interval)
		}
		configStrArr = append(configStrArr, line)
	}

	return configStrArr
}
