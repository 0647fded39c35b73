// Package config provides functionality for managing configuration options
// for the application using command-line flags and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"
)

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string

	// Config is the path to the Config file.
	Config string

	// RelayEndpoint is the base URL of the remote relay API.
	RelayEndpoint string

	// RelayEmail is the account email used for the relay handshake.
	RelayEmail string

	// RelayPassword is the account password used for the relay handshake.
	RelayPassword string

	// AppKey identifies this application to the relay.
	AppKey string

	// DeviceName selects which registered device to bind to; empty
	// means the first device in the account.
	DeviceName string

	// DownloadPath is the directory on the device downloads are saved to.
	DownloadPath string

	// CrawlPollInterval is how often the link crawl is polled.
	CrawlPollInterval time.Duration

	// CrawlTimeout bounds how long a link crawl may run.
	CrawlTimeout time.Duration

	// MonitorInterval is how often download progress is polled.
	MonitorInterval time.Duration

	// MonitorFailureLimit is how many consecutive progress poll
	// failures are tolerated before monitoring gives up.
	MonitorFailureLimit int
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	flag.StringVar(&options.DatabaseDSN, "d", "", "db address")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	flag.StringVar(&options.RelayEndpoint, "relay", "https://api.jdownloader.org", "relay API base URL")
	flag.StringVar(&options.AppKey, "appkey", "myjdapi", "relay application key")
	flag.StringVar(&options.DeviceName, "device", "", "device name to bind to (empty: first device)")
	flag.StringVar(&options.DownloadPath, "downloads", "C:/Downloads/AviMP4", "download directory on the device")
	flag.DurationVar(&options.CrawlPollInterval, "crawl-poll", time.Second, "crawl poll interval")
	flag.DurationVar(&options.CrawlTimeout, "crawl-timeout", 60*time.Second, "crawl ceiling")
	flag.DurationVar(&options.MonitorInterval, "monitor-poll", 2*time.Second, "progress poll interval")
	flag.IntVar(&options.MonitorFailureLimit, "monitor-failures", 3, "tolerated consecutive progress poll failures")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Port = serverAddress
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if endpoint := os.Getenv("MYJD_ENDPOINT"); endpoint != "" {
		options.RelayEndpoint = endpoint
	}
	if email := os.Getenv("MYJD_EMAIL"); email != "" {
		options.RelayEmail = email
	}
	if password := os.Getenv("MYJD_PASSWORD"); password != "" {
		options.RelayPassword = password
	}
	if appKey := os.Getenv("MYJD_APP_KEY"); appKey != "" {
		options.AppKey = appKey
	}
	if deviceName := os.Getenv("MYJD_DEVICE_NAME"); deviceName != "" {
		options.DeviceName = deviceName
	}
	if downloadPath := os.Getenv("DOWNLOAD_PATH"); downloadPath != "" {
		options.DownloadPath = downloadPath
	}

	return options
}
