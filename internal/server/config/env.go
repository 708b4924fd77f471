package config

import "github.com/dmitrijs2005/docseal/internal/flagx"

// parseEnv overlays DOCSEAL_* variables, e.g. DOCSEAL_DATABASE_DSN.
func parseEnv(config *Config, env *flagx.Env) error {
	env.String(&config.EndpointAddr, "ENDPOINT_ADDR")
	env.String(&config.DatabaseDSN, "DATABASE_DSN")
	env.String(&config.SecretKey, "SECRET_KEY")
	env.Duration(&config.TokenValidity, "TOKEN_VALIDITY")
	env.Duration(&config.OTPTTL, "OTP_TTL")
	env.String(&config.EmailDomain, "EMAIL_DOMAIN")
	env.Int(&config.MinPasswordLength, "MIN_PASSWORD_LENGTH")
	env.Duration(&config.PendingCleanupInterval, "PENDING_CLEANUP_INTERVAL")
	env.String(&config.KDCURL, "KDC_URL")
	env.String(&config.KDCAPIKey, "KDC_API_KEY")
	env.Duration(&config.KDCTimeout, "KDC_TIMEOUT")
	env.String(&config.PublicParamsFile, "PUBLIC_PARAMS_FILE")
	env.String(&config.EnvelopeStorage, "ENVELOPE_STORAGE")
	env.Int64(&config.MaxEnvelopeBytes, "MAX_ENVELOPE_BYTES")
	env.String(&config.S3RootUser, "S3_ROOT_USER")
	env.String(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	env.String(&config.S3Bucket, "S3_BUCKET")
	env.String(&config.S3Region, "S3_REGION")
	env.String(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	env.String(&config.SMTPAddr, "SMTP_ADDR")
	env.String(&config.SMTPUser, "SMTP_USER")
	env.String(&config.SMTPPassword, "SMTP_PASSWORD")
	env.String(&config.MailFrom, "MAIL_FROM")
	env.String(&config.LogLevel, "LOG_LEVEL")
	return env.Err()
}
