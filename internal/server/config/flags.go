package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/lootshop/internal/flagx"
)

// parseFlags overrides Config fields from command-line flags.
//
//	-a string     HTTP bind address (":8080")
//	-d string     PostgreSQL DSN
//	-r string     Redis URI for rate limiting
//	-s string     session token secret
//	-l string     log level
//	-o duration   OTP validity
//	-t duration   session validity
//	-i string     identity provider base URL
//	-m string     mail API base URL
//	-b string     S3 template bucket
//	-g string     S3 region
//	-e string     S3 base endpoint
//	-super, -managers, -basic string   comma separated admin tier emails
//
// Unknown arguments (including -c) are filtered out first with flagx.FilterArgs.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{
		"-a", "-d", "-r", "-s", "-l", "-o", "-t", "-i", "-m", "-b", "-g", "-e",
		"-super", "-managers", "-basic",
	})

	fs := flag.NewFlagSet("lootshop", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.HTTPAddr, "a", cfg.HTTPAddr, "HTTP bind address")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.RedisURI, "r", cfg.RedisURI, "redis URI")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.DurationVar(&cfg.OTPTTL, "o", cfg.OTPTTL, "OTP validity")
	fs.DurationVar(&cfg.SessionTTL, "t", cfg.SessionTTL, "session validity")
	fs.StringVar(&cfg.IdentityBaseURL, "i", cfg.IdentityBaseURL, "identity provider base URL")
	fs.StringVar(&cfg.MailBaseURL, "m", cfg.MailBaseURL, "mail API base URL")
	fs.StringVar(&cfg.TemplateBucket, "b", cfg.TemplateBucket, "S3 template bucket")
	fs.StringVar(&cfg.S3Region, "g", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")

	var super, managers, basic string
	fs.StringVar(&super, "super", "", "super admin emails")
	fs.StringVar(&managers, "managers", "", "manager emails")
	fs.StringVar(&basic, "basic", "", "basic admin emails")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "super":
			cfg.SuperAdmins = flagx.SplitList(super)
		case "managers":
			cfg.Managers = flagx.SplitList(managers)
		case "basic":
			cfg.BasicAdmins = flagx.SplitList(basic)
		}
	})
	return nil
}
