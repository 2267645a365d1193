package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/lootshop/internal/flagx"
	"github.com/dmitrijs2005/lootshop/internal/timex"
)

// JsonConfig is the on-disk shape of the optional config file selected with
// -c/-config. Only fields present in the file override the current values.
type JsonConfig struct {
	HTTPAddr           string         `json:"http_addr"`
	DatabaseDSN        string         `json:"database_dsn"`
	RedisURI           string         `json:"redis_uri"`
	LogLevel           string         `json:"log_level"`
	SecretKey          string         `json:"secret_key"`
	TokenIssuer        string         `json:"token_issuer"`
	TokenAudience      string         `json:"token_audience"`
	SessionTTL         timex.Duration `json:"session_ttl"`
	CookieName         string         `json:"cookie_name"`
	SecureCookie       *bool          `json:"secure_cookie"`
	OTPTTL             timex.Duration `json:"otp_ttl"`
	BcryptCost         int            `json:"bcrypt_cost"`
	IdentityBaseURL    string         `json:"identity_base_url"`
	IdentityServiceKey string         `json:"identity_service_key"`
	MailBaseURL        string         `json:"mail_base_url"`
	MailAPIKey         string         `json:"mail_api_key"`
	MailFrom           string         `json:"mail_from"`
	TemplateBucket     string         `json:"template_bucket"`
	TemplatePrefix     string         `json:"template_prefix"`
	S3Region           string         `json:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint"`
	S3AccessKey        string         `json:"s3_access_key"`
	S3SecretKey        string         `json:"s3_secret_key"`
	CORSOrigins        []string       `json:"cors_origins"`
	RateLimitWindow    timex.Duration `json:"rate_limit_window"`
	RateLimitMax       *int           `json:"rate_limit_max"`
	SuperAdmins        []string       `json:"super_admins"`
	Managers           []string       `json:"managers"`
	BasicAdmins        []string       `json:"basic_admins"`
}

func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var c JsonConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.HTTPAddr, c.HTTPAddr)
	setString(&cfg.DatabaseDSN, c.DatabaseDSN)
	setString(&cfg.RedisURI, c.RedisURI)
	setString(&cfg.LogLevel, c.LogLevel)
	setString(&cfg.SecretKey, c.SecretKey)
	setString(&cfg.TokenIssuer, c.TokenIssuer)
	setString(&cfg.TokenAudience, c.TokenAudience)
	setString(&cfg.CookieName, c.CookieName)
	setString(&cfg.IdentityBaseURL, c.IdentityBaseURL)
	setString(&cfg.IdentityServiceKey, c.IdentityServiceKey)
	setString(&cfg.MailBaseURL, c.MailBaseURL)
	setString(&cfg.MailAPIKey, c.MailAPIKey)
	setString(&cfg.MailFrom, c.MailFrom)
	setString(&cfg.TemplateBucket, c.TemplateBucket)
	setString(&cfg.TemplatePrefix, c.TemplatePrefix)
	setString(&cfg.S3Region, c.S3Region)
	setString(&cfg.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&cfg.S3AccessKey, c.S3AccessKey)
	setString(&cfg.S3SecretKey, c.S3SecretKey)

	if c.SessionTTL.Duration != 0 {
		cfg.SessionTTL = c.SessionTTL.Duration
	}
	if c.OTPTTL.Duration != 0 {
		cfg.OTPTTL = c.OTPTTL.Duration
	}
	if c.RateLimitWindow.Duration != 0 {
		cfg.RateLimitWindow = c.RateLimitWindow.Duration
	}
	if c.SecureCookie != nil {
		cfg.SecureCookie = *c.SecureCookie
	}
	if c.BcryptCost != 0 {
		cfg.BcryptCost = c.BcryptCost
	}
	if c.RateLimitMax != nil {
		cfg.RateLimitMax = *c.RateLimitMax
	}
	if c.CORSOrigins != nil {
		cfg.CORSOrigins = c.CORSOrigins
	}
	if c.SuperAdmins != nil {
		cfg.SuperAdmins = c.SuperAdmins
	}
	if c.Managers != nil {
		cfg.Managers = c.Managers
	}
	if c.BasicAdmins != nil {
		cfg.BasicAdmins = c.BasicAdmins
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
