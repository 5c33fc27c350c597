package app

import (
	iauth "github.com/oversightlab/missiondesk/internal/auth"
	"github.com/oversightlab/missiondesk/internal/database"
	"github.com/oversightlab/missiondesk/pkg/mail"
)

// JWTServiceConfig adapts the auth section into the JWT service configuration.
func (c AuthConfig) JWTServiceConfig() iauth.JWTConfig {
	cfg := iauth.JWTConfig{
		Secret: c.JWT.Secret,
		Issuer: c.JWT.Issuer,
	}
	if c.JWT.TTL > 0 {
		cfg.AccessTokenTTL = c.JWT.TTL
	} else {
		cfg.AccessTokenTTL = iauth.DefaultAccessTokenTTL
	}
	return cfg
}

// SessionServiceConfig adapts the auth section into session service settings.
func (c AuthConfig) SessionServiceConfig() iauth.SessionConfig {
	cfg := iauth.SessionConfig{}
	if c.Session.RefreshTTL > 0 {
		cfg.RefreshTokenTTL = c.Session.RefreshTTL
	} else {
		cfg.RefreshTokenTTL = iauth.DefaultRefreshTokenTTL
	}
	return cfg
}

// SMTPSettings adapts the email section into the mailer configuration.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.SMTP.Enabled,
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// DatabaseSettings adapts the database section into the connection config
// for the configured driver.
func (c DatabaseConfig) DatabaseSettings() database.Config {
	cfg := database.Config{
		Driver: c.Driver,
		Path:   c.Path,
		DSN:    c.DSN,
	}
	switch c.Driver {
	case "postgres":
		cfg.Host = c.Postgres.Host
		cfg.Port = c.Postgres.Port
		cfg.Name = c.Postgres.Database
		cfg.User = c.Postgres.Username
		cfg.Password = c.Postgres.Password
	case "mysql":
		cfg.Host = c.MySQL.Host
		cfg.Port = c.MySQL.Port
		cfg.Name = c.MySQL.Database
		cfg.User = c.MySQL.Username
		cfg.Password = c.MySQL.Password
	}
	return cfg
}
