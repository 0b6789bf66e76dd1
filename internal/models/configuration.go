package models

import "time"

type Configuration struct {
	App         AppConfiguration         `mapstructure:"app"         validate:"required"`
	Gateway     GatewayConfiguration     `mapstructure:"gateway"     validate:"required"`
	Credentials CredentialsConfiguration `mapstructure:"credentials" validate:"required"`
	Export      ExportConfiguration      `mapstructure:"export"      validate:"required"`
	Activity    ActivityConfiguration    `mapstructure:"activity"`
	Tracing     TracingConfiguration     `mapstructure:"tracing"`
}

type AppConfiguration struct {
	Product             string `mapstructure:"product"               validate:"required"`
	LogLevel            string `mapstructure:"log_level"             validate:"oneof=debug info warn error fatal panic"`
	NotificationSeconds int    `mapstructure:"notification_seconds"  validate:"gte=1,lte=60"`
	SyncIntervalSeconds int    `mapstructure:"sync_interval_seconds" validate:"gte=0,lte=3600"`
}

// NotificationTTL returns the auto-dismiss window of a notification channel.
func (a AppConfiguration) NotificationTTL() time.Duration {
	return time.Duration(a.NotificationSeconds) * time.Second
}

type GatewayConfiguration struct {
	BaseURL        string `mapstructure:"base_url"        validate:"required,http_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gte=1,lte=300"`
	RetryCount     int    `mapstructure:"retry_count"     validate:"gte=0,lte=10"`
	UserAgent      string `mapstructure:"user_agent"`
}

type CredentialsConfiguration struct {
	Type       string                              `mapstructure:"type"       validate:"required,oneof=memory filesystem redis sqlite postgres"`
	Key        string                              `mapstructure:"key"        validate:"required"`
	Filesystem *FilesystemCredentialsConfiguration `mapstructure:"filesystem" validate:"required_if=Type filesystem"`
	Redis      *RedisCredentialsConfiguration      `mapstructure:"redis"      validate:"required_if=Type redis"`
	SQL        *SQLCredentialsConfiguration        `mapstructure:"sql"        validate:"required_if=Type sqlite,required_if=Type postgres"`
}

type FilesystemCredentialsConfiguration struct {
	Path string `mapstructure:"path" validate:"required"`
}

type RedisCredentialsConfiguration struct {
	Hosts         []string `mapstructure:"hosts"           validate:"required,min=1"`
	Password      string   `mapstructure:"password"`
	TLSEnabled    bool     `mapstructure:"tls_enabled"`
	TLSServerName string   `mapstructure:"tls_server_name"`
	Namespace     string   `mapstructure:"namespace"`
}

type SQLCredentialsConfiguration struct {
	DSN string `mapstructure:"dsn" validate:"required"`
}

type ExportConfiguration struct {
	Type       string                         `mapstructure:"type"       validate:"required,oneof=filesystem s3"`
	Filesystem *FilesystemExportConfiguration `mapstructure:"filesystem" validate:"required_if=Type filesystem"`
	S3         *S3ExportConfiguration         `mapstructure:"s3"         validate:"required_if=Type s3"`
}

type FilesystemExportConfiguration struct {
	Directory string `mapstructure:"directory" validate:"required"`
}

// S3ExportConfiguration for S3-compatible providers (MinIO, Garage, AWS).
type S3ExportConfiguration struct {
	BucketName string `mapstructure:"bucket_name" validate:"required"`
	Endpoint   string `mapstructure:"endpoint"    validate:"required"`
	AccessKey  string `mapstructure:"access_key"  validate:"required"`
	SecretKey  string `mapstructure:"secret_key"  validate:"required"`
	Region     string `mapstructure:"region"`
	Prefix     string `mapstructure:"prefix"`
	// ForcePathStyle uses endpoint/bucket/key URLs instead of bucket.endpoint/key.
	ForcePathStyle bool `mapstructure:"force_path_style"`
	UseTLS         bool `mapstructure:"use_tls"`
}

type ActivityConfiguration struct {
	// Directory of the bleve index. Empty keeps the index in memory.
	Directory string `mapstructure:"directory"`
}

type TracingConfiguration struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Enabled true"`
	Insecure bool   `mapstructure:"insecure"`
}
