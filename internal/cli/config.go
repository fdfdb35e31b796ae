package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mitchellmoss/appraisal-generator/internal/blob"
	"github.com/mitchellmoss/appraisal-generator/internal/client"
	"github.com/mitchellmoss/appraisal-generator/internal/render"
	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "APPRAISAL"
)

// Config keys.
const (
	cfgKeyDataDir       = "data_dir"
	cfgKeyStoreURL      = "store.url"
	cfgKeyStoreAPIKey   = "store.api_key"
	cfgKeyStoreTimeout  = "store.timeout"
	cfgKeyServerAddr    = "server.addr"
	cfgKeyServerAPIKey  = "server.api_key"
	cfgKeyServerBackend = "server.backend"
	cfgKeyPostgresDSN   = "server.postgres_dsn"
	cfgKeyExportDriver  = "export.driver"
	cfgKeyExportDir     = "export.dir"
	cfgKeyS3Bucket      = "export.s3.bucket"
	cfgKeyS3Region      = "export.s3.region"
	cfgKeyS3Endpoint    = "export.s3.endpoint"
	cfgKeyS3PathStyle   = "export.s3.path_style"
	cfgKeyPrintCommand  = "print.command"
	cfgKeyLogLevel      = "log.level"
	cfgKeyLogFormat     = "log.format"
)

// Defaults.
const (
	defaultStoreURL   = "http://localhost:3000"
	defaultServerAddr = ":3000"
	defaultLogLevel   = "info"
	defaultLogFormat  = "text"
)

// envKeys are overridable as APPRAISAL_<KEY> with dots as underscores.
// data_dir is absent: APPRAISAL_DATA_DIR ranks below config.yaml and is
// resolved by the paths package.
var envKeys = []string{
	cfgKeyStoreURL, cfgKeyStoreAPIKey, cfgKeyStoreTimeout,
	cfgKeyServerAddr, cfgKeyServerAPIKey, cfgKeyServerBackend, cfgKeyPostgresDSN,
	cfgKeyExportDriver, cfgKeyExportDir,
	cfgKeyS3Bucket, cfgKeyS3Region, cfgKeyS3Endpoint, cfgKeyS3PathStyle,
	cfgKeyPrintCommand, cfgKeyLogLevel, cfgKeyLogFormat,
}

// configFile is the shape of the config.yaml written on first run.
type configFile struct {
	DataDir string `yaml:"data_dir,omitempty"`
	Store   struct {
		URL     string `yaml:"url"`
		APIKey  string `yaml:"api_key"`
		Timeout string `yaml:"timeout"`
	} `yaml:"store"`
	Server struct {
		Addr        string `yaml:"addr"`
		APIKey      string `yaml:"api_key"`
		Backend     string `yaml:"backend"`
		PostgresDSN string `yaml:"postgres_dsn,omitempty"`
	} `yaml:"server"`
	Export struct {
		Driver string `yaml:"driver"`
		Dir    string `yaml:"dir,omitempty"`
		S3     struct {
			Bucket    string `yaml:"bucket,omitempty"`
			Region    string `yaml:"region,omitempty"`
			Endpoint  string `yaml:"endpoint,omitempty"`
			PathStyle bool   `yaml:"path_style,omitempty"`
		} `yaml:"s3"`
	} `yaml:"export"`
	Print struct {
		Command string `yaml:"command"`
	} `yaml:"print"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func defaultConfigFile() configFile {
	var c configFile
	c.Store.URL = defaultStoreURL
	c.Store.Timeout = client.DefaultTimeout.String()
	c.Server.Addr = defaultServerAddr
	c.Server.Backend = types.BackendSQLite
	c.Export.Driver = string(blob.DriverFilesystem)
	c.Print.Command = render.DefaultPrintCommand
	c.Log.Level = defaultLogLevel
	c.Log.Format = defaultLogFormat
	return c
}

// settings is the resolved configuration.
type settings struct {
	DataDir       string
	StoreURL      string
	StoreAPIKey   string
	StoreTimeout  time.Duration
	ServerAddr    string
	ServerAPIKey  string
	ServerBackend string
	PostgresDSN   string
	ExportDriver  string
	ExportDir     string
	S3            blob.S3Config
	PrintCommand  string
	LogLevel      string
	LogFormat     string
}

// loadConfig reads config.yaml from configDir, creating the directory and
// a default file on first run, and layers APPRAISAL_* environment
// overrides on top.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	if err := writeConfigIfMissing(filepath.Join(configDir, configFileExt)); err != nil {
		return nil, fmt.Errorf("write default config: %w", err)
	}

	v := viper.New()
	d := defaultConfigFile()
	v.SetDefault(cfgKeyStoreURL, d.Store.URL)
	v.SetDefault(cfgKeyStoreTimeout, d.Store.Timeout)
	v.SetDefault(cfgKeyServerAddr, d.Server.Addr)
	v.SetDefault(cfgKeyServerBackend, d.Server.Backend)
	v.SetDefault(cfgKeyExportDriver, d.Export.Driver)
	v.SetDefault(cfgKeyPrintCommand, d.Print.Command)
	v.SetDefault(cfgKeyLogLevel, d.Log.Level)
	v.SetDefault(cfgKeyLogFormat, d.Log.Format)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// writeConfigIfMissing creates config.yaml with default values. An
// existing file is left alone.
func writeConfigIfMissing(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	data, err := yaml.Marshal(defaultConfigFile())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# appraiser configuration. Every key can be overridden with APPRAISAL_<KEY>,\n" +
		"# dots replaced by underscores (store.api_key -> APPRAISAL_STORE_API_KEY).\n")
	return os.WriteFile(path, append(header, data...), 0o600)
}

func readSettings(v *viper.Viper) settings {
	timeout := v.GetDuration(cfgKeyStoreTimeout)
	if timeout <= 0 {
		timeout = client.DefaultTimeout
	}
	return settings{
		DataDir:       v.GetString(cfgKeyDataDir),
		StoreURL:      v.GetString(cfgKeyStoreURL),
		StoreAPIKey:   v.GetString(cfgKeyStoreAPIKey),
		StoreTimeout:  timeout,
		ServerAddr:    v.GetString(cfgKeyServerAddr),
		ServerAPIKey:  v.GetString(cfgKeyServerAPIKey),
		ServerBackend: v.GetString(cfgKeyServerBackend),
		PostgresDSN:   v.GetString(cfgKeyPostgresDSN),
		ExportDriver:  v.GetString(cfgKeyExportDriver),
		ExportDir:     v.GetString(cfgKeyExportDir),
		S3: blob.S3Config{
			Bucket:    v.GetString(cfgKeyS3Bucket),
			Region:    v.GetString(cfgKeyS3Region),
			Endpoint:  v.GetString(cfgKeyS3Endpoint),
			PathStyle: v.GetBool(cfgKeyS3PathStyle),
		},
		PrintCommand: v.GetString(cfgKeyPrintCommand),
		LogLevel:     v.GetString(cfgKeyLogLevel),
		LogFormat:    v.GetString(cfgKeyLogFormat),
	}
}

// newLogger builds the process logger. format is "text" or "json".
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("%w: log.level %q", types.ErrValidation, level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("%w: log.format %q (want text or json)", types.ErrValidation, format)
	}
}
