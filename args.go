package main

import (
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"salesroom-auction/internal/database"
)

func ParseArgs() Args {
	// server config
	pflag.String("server-url", "0.0.0.0:8080", "")
	pflag.String("public-base-url", "http://localhost:8080", "")

	// db config
	pflag.String("db-user", "", "")
	pflag.String("db-password", "", "")
	pflag.String("db-host", "", "")
	pflag.Int("db-port", 5432, "")
	pflag.String("db-database", "", "")
	pflag.String("db-schema", "public", "")

	// payment gateway config
	pflag.String("gateway-url", "", "")
	pflag.String("gateway-api-key", "", "")
	pflag.String("gateway-currency", "cad", "")

	// notification config
	pflag.String("notify-webhook-url", "", "")

	// auction closing
	pflag.Duration("sweep-interval", 30*time.Second, "")

	// bind pflag to viper
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvPrefix("SALESROOM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// initial arguments
	return Args{
		ServerURL:     viper.GetString("server-url"),
		PublicBaseURL: viper.GetString("public-base-url"),
		DB: database.Config{
			User:     viper.GetString("db-user"),
			Password: viper.GetString("db-password"),
			Host:     viper.GetString("db-host"),
			Port:     viper.GetInt("db-port"),
			Database: viper.GetString("db-database"),
			Schema:   viper.GetString("db-schema"),
		},
		GatewayURL:       viper.GetString("gateway-url"),
		GatewayAPIKey:    viper.GetString("gateway-api-key"),
		GatewayCurrency:  viper.GetString("gateway-currency"),
		NotifyWebhookURL: viper.GetString("notify-webhook-url"),
		SweepInterval:    viper.GetDuration("sweep-interval"),
	}
}

type Args struct {
	ServerURL     string
	PublicBaseURL string

	DB database.Config

	GatewayURL      string
	GatewayAPIKey   string
	GatewayCurrency string

	NotifyWebhookURL string

	SweepInterval time.Duration
}
