package osioconfig

import (
	"flag"
	"io"
	"os"
	"path"

	"github.com/sirupsen/logrus"
)

// SetCommandlineArgs adds the configuration flags to the flag set.
// The flag defaults are the current configuration values.
// Use this before fs.Parse().
func SetCommandlineArgs(fs *flag.FlagSet, config *OsioConfig) {
	// The config and home flags are parsed separately ahead of the others
	fs.String("c", path.Join(config.ConfigFolder, ConfigFileName), "Client configuration file")
	fs.String("home", config.Home, "Application working `folder`")

	fs.StringVar(&config.APIVersion, "apiVersion", config.APIVersion, "API version, v1 or v2")
	fs.StringVar(&config.BaseURL, "baseUrl", config.BaseURL, "REST API base URL")
	fs.StringVar(&config.RealtimeBaseURL, "realtimeBaseUrl", config.RealtimeBaseURL, "Real-time API base URL")
	fs.StringVar(&config.APIKey, "apiKey", config.APIKey, "API key of the user")
	fs.StringVar(&config.UserID, "user", config.UserID, "User ID the API key belongs to")
	fs.IntVar(&config.Timeout, "timeout", config.Timeout, "REST request timeout in seconds")
	fs.IntVar(&config.IdleTimeout, "idleTimeout", config.IdleTimeout, "End a stream after seconds without data, 0 to wait indefinitely")
	fs.StringVar(&config.CaCertFile, "caCert", config.CaCertFile, "CA certificate to verify the server")
	fs.StringVar(&config.MqttAddress, "mqttAddress", config.MqttAddress, "MQTT broker `host:port`")
	fs.StringVar(&config.MqttCaCertFile, "mqttCaCert", config.MqttCaCertFile, "CA certificate to verify the MQTT broker, enables TLS")
	fs.StringVar(&config.LogLevel, "logLevel", config.LogLevel, "Loglevel: {error|warning|info|debug}")
	fs.StringVar(&config.LogFile, "logFile", config.LogFile, "Log to file")
}

// ignoredFlag accepts any value. It stands in for application flags during the pre-parse.
type ignoredFlag struct {
	isBool bool
}

func (f ignoredFlag) String() string   { return "" }
func (f ignoredFlag) Set(string) error { return nil }
func (f ignoredFlag) IsBoolFlag() bool { return f.isBool }

// preParse returns the -home and -c values ahead of loading the config file, "" when not given.
// All flags are parsed so flag values are not mistaken for positional arguments and
// scanning stops at the first positional argument.
func preParse(fs *flag.FlagSet, homeFolder string, args []string) (home string, configFile string) {
	scratch := flag.NewFlagSet(fs.Name(), flag.ContinueOnError)
	scratch.SetOutput(io.Discard)
	SetCommandlineArgs(scratch, CreateDefaultConfig(homeFolder))
	fs.VisitAll(func(f *flag.Flag) {
		if scratch.Lookup(f.Name) != nil {
			return
		}
		boolFlag, ok := f.Value.(interface{ IsBoolFlag() bool })
		scratch.Var(ignoredFlag{isBool: ok && boolFlag.IsBoolFlag()}, f.Name, f.Usage)
	})
	// errors are reported by the real parse
	_ = scratch.Parse(args)
	scratch.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "home":
			home = f.Value.String()
		case "c":
			configFile = f.Value.String()
		}
	})
	return home, configFile
}

// LoadCommandlineConfig loads the client configuration from file and commandline.
// The default config file is {home}/config/osio.yaml. It is optional unless set with -c.
// Commandline flags override the file values. Use fs.Args() for the remaining arguments.
// Logging is written to the output of the flag set, stderr unless changed with fs.SetOutput.
//  fs is the flag set with application flags, nil to use the flag.CommandLine set
//  homeFolder to use, "" for the default, overridden by -home
//  args the commandline arguments without the application name
// Returns the validated configuration or an error
func LoadCommandlineConfig(fs *flag.FlagSet, homeFolder string, args []string) (*OsioConfig, error) {
	if fs == nil {
		fs = flag.CommandLine
	}
	home, configFile := preParse(fs, homeFolder, args)
	if home != "" {
		homeFolder = home
	}
	config := CreateDefaultConfig(homeFolder)
	explicitFile := configFile != ""
	if !explicitFile {
		configFile = path.Join(config.ConfigFolder, ConfigFileName)
	} else if !path.IsAbs(configFile) {
		configFile = path.Join(config.ConfigFolder, configFile)
	}
	config.ConfigFile = configFile
	substituteMap := map[string]string{
		"home":         config.Home,
		"configFolder": config.ConfigFolder,
	}
	if _, err := os.Stat(configFile); err == nil || explicitFile {
		err := LoadConfig(configFile, config, substituteMap)
		if err != nil {
			return config, err
		}
	} else {
		logrus.Infof("LoadCommandlineConfig: No config file at '%s'. Using defaults.", configFile)
	}

	SetCommandlineArgs(fs, config)
	if err := fs.Parse(args); err != nil {
		return config, err
	}
	if config.LogFile != "" {
		_ = os.MkdirAll(path.Dir(config.LogFile), 0755)
	}
	if err := ValidateConfig(config); err != nil {
		return config, err
	}
	err := SetLoggingOutput(fs.Output(), config.LogLevel, config.LogFile)
	return config, err
}
