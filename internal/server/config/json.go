package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/docseal/internal/flagx"
	"github.com/dmitrijs2005/docseal/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// strings such as "10s" as well as integer nanoseconds. Absent or zero
// fields leave the current value untouched.
type JsonConfig struct {
	EndpointAddr           string         `json:"endpoint_addr"`
	DatabaseDSN            string         `json:"database_dsn"`
	SecretKey              string         `json:"secret_key"`
	TokenValidity          timex.Duration `json:"token_validity"`
	OTPTTL                 timex.Duration `json:"otp_ttl"`
	EmailDomain            string         `json:"email_domain"`
	MinPasswordLength      int            `json:"min_password_length"`
	PendingCleanupInterval timex.Duration `json:"pending_cleanup_interval"`
	KDCURL                 string         `json:"kdc_url"`
	KDCAPIKey              string         `json:"kdc_api_key"`
	KDCTimeout             timex.Duration `json:"kdc_timeout"`
	PublicParamsFile       string         `json:"public_params_file"`
	EnvelopeStorage        string         `json:"envelope_storage"`
	MaxEnvelopeBytes       int64          `json:"max_envelope_bytes"`
	S3RootUser             string         `json:"s3_root_user"`
	S3RootPassword         string         `json:"s3_root_password"`
	S3Bucket               string         `json:"s3_bucket"`
	S3Region               string         `json:"s3_region"`
	S3BaseEndpoint         string         `json:"s3_base_endpoint"`
	SMTPAddr               string         `json:"smtp_addr"`
	SMTPUser               string         `json:"smtp_user"`
	SMTPPassword           string         `json:"smtp_password"`
	MailFrom               string         `json:"mail_from"`
	LogLevel               string         `json:"log_level"`
}

// parseJson overlays the JSON file given with -c/-config onto config.
// It panics if the file cannot be read or parsed.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddr, c.EndpointAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.TokenValidity.Duration != 0 {
		config.TokenValidity = c.TokenValidity.Duration
	}
	if c.OTPTTL.Duration != 0 {
		config.OTPTTL = c.OTPTTL.Duration
	}
	setString(&config.EmailDomain, c.EmailDomain)
	if c.MinPasswordLength != 0 {
		config.MinPasswordLength = c.MinPasswordLength
	}
	if c.PendingCleanupInterval.Duration != 0 {
		config.PendingCleanupInterval = c.PendingCleanupInterval.Duration
	}
	setString(&config.KDCURL, c.KDCURL)
	setString(&config.KDCAPIKey, c.KDCAPIKey)
	if c.KDCTimeout.Duration != 0 {
		config.KDCTimeout = c.KDCTimeout.Duration
	}
	setString(&config.PublicParamsFile, c.PublicParamsFile)
	setString(&config.EnvelopeStorage, c.EnvelopeStorage)
	if c.MaxEnvelopeBytes != 0 {
		config.MaxEnvelopeBytes = c.MaxEnvelopeBytes
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.SMTPAddr, c.SMTPAddr)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.MailFrom, c.MailFrom)
	setString(&config.LogLevel, c.LogLevel)
}
