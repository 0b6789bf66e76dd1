package configuration

import (
	"fmt"
	"os"
	"strings"

	"accountsec/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

// EnvFiles are loaded into the process environment before the environment is read. Missing files are
// skipped and variables already set win.
var EnvFiles = []string{".env"}

func parseArrayFields(k *koanf.Koanf) {
	for _, field := range ArrayConfigFields {
		// Values coming from YAML are already slices.
		if _, isSlice := k.Get(field).([]any); isSlice {
			continue
		}
		if stringVal := k.String(field); stringVal != "" {
			stringVal = strings.Trim(stringVal, "[]")
			var items []string
			if strings.Contains(stringVal, ",") {
				items = strings.Split(stringVal, ",")
			} else {
				items = strings.Fields(stringVal)
			}
			for i, item := range items {
				items[i] = strings.TrimSpace(item)
			}
			if err := k.Set(field, items); err != nil {
				zap.L().Error("Error parsing array field", zap.String("field", field), zap.Error(err))
			}
		}
	}
}

func loadEnvFiles() {
	for _, path := range EnvFiles {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			zap.L().Warn("Failed to load env file", zap.String("path", path), zap.Error(err))
		}
	}
}

// readEnvVars maps GATEWAY__BASE_URL to gateway.base_url.
func readEnvVars(k *koanf.Koanf) error {
	loadEnvFiles()

	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.Join(strings.Split(strings.ToLower(s), "__"), ".")
	}), nil)
	if err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}

	parseArrayFields(k)
	return nil
}

func configFilePath() string {
	if path := os.Getenv("CONFIG_FILE_PATH"); path != "" {
		return path
	}
	for _, path := range ConfigFileSearchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func readFileConfig(k *koanf.Koanf) error {
	filePath := configFilePath()
	if filePath == "" {
		zap.L().Debug("No configuration file found")
		return nil
	}

	if err := k.Load(file.Provider(filePath), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", filePath, err)
	}
	zap.L().Info("Read configuration from file", zap.String("path", filePath))
	return nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.product":               AppName,
		"app.log_level":             "info",
		"app.notification_seconds":  int(NotificationTTL.Seconds()),
		"app.sync_interval_seconds": 0,

		"gateway.base_url":        "http://localhost:3000/",
		"gateway.timeout_seconds": 10,
		"gateway.retry_count":     0,

		"credentials.type":            StoreFilesystem,
		"credentials.key":             CredentialTokenKey,
		"credentials.filesystem.path": ".accountsec/credentials.json",

		"export.type":                 ExportFilesystem,
		"export.filesystem.directory": ".",
	}

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return fmt.Errorf("failed to load default configuration: %w", err)
	}
	return nil
}

func setIfMissing(k *koanf.Koanf, key string, value any) {
	if !k.Exists(key) {
		_ = k.Set(key, value)
	}
}

func loadConditionalDefaults(k *koanf.Koanf) {
	if k.String("export.type") == ExportS3 {
		setIfMissing(k, "export.s3.region", "us-east-1")
		setIfMissing(k, "export.s3.force_path_style", true)
		setIfMissing(k, "export.s3.use_tls", true)
	}
	if k.String("credentials.type") == StoreRedis {
		setIfMissing(k, "credentials.redis.namespace", AppName)
	}
	if k.String("credentials.type") == StoreSQLite {
		setIfMissing(k, "credentials.sql.dsn", ".accountsec/credentials.db")
	}
}

// Load builds the configuration from defaults, the config file, env files and the environment, in
// increasing precedence, and validates it.
func Load() (models.Configuration, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return models.Configuration{}, err
	}
	if err := readFileConfig(k); err != nil {
		return models.Configuration{}, err
	}
	if err := readEnvVars(k); err != nil {
		return models.Configuration{}, err
	}
	loadConditionalDefaults(k)

	var config models.Configuration
	if err := k.UnmarshalWithConf("", &config, koanf.UnmarshalConf{Tag: "mapstructure"}); err != nil {
		return models.Configuration{}, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := validator.New().Struct(config); err != nil {
		return models.Configuration{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// Read is Load for process start-up: any error is fatal.
func Read() models.Configuration {
	config, err := Load()
	if err != nil {
		zap.L().Fatal("Failed to read configuration", zap.Error(err))
	}
	return config
}
