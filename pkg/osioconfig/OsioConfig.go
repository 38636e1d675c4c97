// Package osioconfig with the client configuration struct and methods
package osioconfig

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path"
	"text/template"
	"time"

	"github.com/juju/fslock"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/wostzone/osioclient-go/api"
)

// ConfigFileName is the configuration file name in the config folder
const ConfigFileName = "osio.yaml"

// LogFileName is the file name of the client logging in the logs folder
const LogFileName = "osio.log"

// Defaults of the OpenSensors service
const (
	DefaultBaseURL         = "https://api.opensensors.io/"
	DefaultRealtimeBaseURL = "https://realtime.opensensors.io/"
	DefaultMqttAddress     = "mqtt.opensensors.io:1883"
	DefaultTimeout         = 10 // seconds
	DefaultLogLevel        = "warning"
)

// SaveLockTimeout is how long SaveConfig waits for another writer to release the config file
const SaveLockTimeout = 5 * time.Second

// OsioConfig with the OpenSensors client configuration
type OsioConfig struct {
	// API
	APIVersion      string `yaml:"apiVersion"`           // v1 or v2. Default is v1
	BaseURL         string `yaml:"baseUrl"`              // REST API, default https://api.opensensors.io/
	RealtimeBaseURL string `yaml:"realtimeBaseUrl"`      // real-time API, default https://realtime.opensensors.io/
	APIKey          string `yaml:"apiKey"`               // api key of the user
	UserID          string `yaml:"userID,omitempty"`     // user the api key belongs to
	Timeout         int    `yaml:"timeout"`              // REST request timeout in seconds
	IdleTimeout     int    `yaml:"idleTimeout"`          // end a stream after seconds without data, 0 to wait indefinitely
	CaCertFile      string `yaml:"caCertFile,omitempty"` // CA certificate to verify the server, default uses the system roots

	// logging
	LogLevel string `yaml:"logLevel"` // debug, info, warning, error. Default is warning
	LogFile  string `yaml:"logFile"`  // log to file in addition to stdout

	// MQTT device publishing
	MqttAddress    string `yaml:"mqttAddress,omitempty"`    // broker host:port
	MqttCaCertFile string `yaml:"mqttCaCertFile,omitempty"` // CA certificate of the broker, enables TLS. Default plain tcp
	MqttClientID   string `yaml:"mqttClientID,omitempty"`   // client-id of the device, default osio-<uuid>
	MqttUsername   string `yaml:"mqttUsername,omitempty"`   // username of the device owner
	MqttPassword   string `yaml:"mqttPassword,omitempty"`   // device password

	// Folders
	Home         string `yaml:"home,omitempty"`         // application home directory
	ConfigFolder string `yaml:"configFolder,omitempty"` // location of configuration files. Default is {home}/config
	ConfigFile   string `yaml:"-"`                      // file the configuration was loaded from
}

// RequestTimeout returns the REST request timeout
func (cfg *OsioConfig) RequestTimeout() time.Duration {
	return time.Duration(cfg.Timeout) * time.Second
}

// StreamIdleTimeout returns the stream idle timeout, 0 for none
func (cfg *OsioConfig) StreamIdleTimeout() time.Duration {
	return time.Duration(cfg.IdleTimeout) * time.Second
}

// CreateDefaultConfig with default values
//  homeFolder is the home of the configuration and log folders.
// Use "" for the default $HOME/.osio. A relative path is relative to the working directory.
func CreateDefaultConfig(homeFolder string) *OsioConfig {
	if homeFolder == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			userHome = os.TempDir()
		}
		homeFolder = path.Join(userHome, ".osio")
	} else if !path.IsAbs(homeFolder) {
		cwd, _ := os.Getwd()
		homeFolder = path.Join(cwd, homeFolder)
	}
	logrus.Debugf("CreateDefaultConfig: Home is: %s", homeFolder)
	config := &OsioConfig{
		APIVersion:      api.APIVersion1,
		BaseURL:         DefaultBaseURL,
		RealtimeBaseURL: DefaultRealtimeBaseURL,
		Timeout:         DefaultTimeout,
		LogLevel:        DefaultLogLevel,
		LogFile:         path.Join(homeFolder, "logs", LogFileName),
		MqttAddress:     DefaultMqttAddress,
		Home:            homeFolder,
		ConfigFolder:    path.Join(homeFolder, "config"),
	}
	return config
}

// LoadConfig loads the configuration from file into the given config
//  configFile path to yaml configuration file
//  config interface to typed structure matching the config. Must have yaml tags
//  substituteMap map to substitute {{.key}} with value from map, nil to ignore
// Returns nil if successful
func LoadConfig(configFile string, config interface{}, substituteMap map[string]string) error {
	rawConfig, err := os.ReadFile(configFile)
	if err != nil {
		logrus.Infof("LoadConfig: Unable to load config file: %s", err)
		return err
	}
	logrus.Infof("LoadConfig: Loaded config file '%s'", configFile)
	rawText := string(rawConfig)
	if substituteMap != nil {
		rawText, err = SubstituteText(rawText, substituteMap)
		if err != nil {
			logrus.Errorf("LoadConfig: Invalid template in config file '%s': %s", configFile, err)
			return err
		}
	}

	err = yaml.Unmarshal([]byte(rawText), config)
	if err != nil {
		logrus.Errorf("LoadConfig: Error parsing config file '%s': %s", configFile, err)
		return err
	}
	return nil
}

// SubstituteText substitutes template strings in the text
//  text to substitute template strings, eg "hello {{.destination}}"
//  substituteMap with replacement keywords, eg {"destination":"world"}
// Returns text with template strings replaced
func SubstituteText(text string, substituteMap map[string]string) (string, error) {
	var msg bytes.Buffer

	tpl, err := template.New("").Parse(text)
	if err != nil {
		return text, err
	}
	err = tpl.Execute(&msg, substituteMap)
	return msg.String(), err
}

// SaveConfig writes the configuration to file.
// Concurrent writers are serialized with the lock file {configFile}.lock. The file is
// replaced with a rename so watchers never see a partial file.
func SaveConfig(configFile string, config *OsioConfig) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	lock := fslock.New(configFile + ".lock")
	err = lock.LockWithTimeout(SaveLockTimeout)
	if err != nil {
		logrus.Errorf("SaveConfig: Unable to lock '%s': %s", configFile, err)
		return err
	}
	defer lock.Unlock()

	tmpFile := configFile + ".tmp"
	// the config holds the api key
	err = os.WriteFile(tmpFile, data, 0600)
	if err == nil {
		err = os.Rename(tmpFile, configFile)
	}
	if err != nil {
		logrus.Errorf("SaveConfig: Unable to write '%s': %s", configFile, err)
		return err
	}
	logrus.Infof("SaveConfig: Saved config file '%s'", configFile)
	return nil
}

// ValidateConfig checks if values in the configuration are correct
// Returns an error if the config is invalid
func ValidateConfig(config *OsioConfig) error {
	if !api.IsSupportedVersion(config.APIVersion) {
		err := fmt.Errorf("API version '%s' is not supported. Use one of %v", config.APIVersion, api.SupportedVersions)
		logrus.Error(err)
		return err
	}
	for _, baseURL := range []string{config.BaseURL, config.RealtimeBaseURL} {
		u, err := url.Parse(baseURL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			err = fmt.Errorf("base URL '%s' is not a valid absolute URL", baseURL)
			logrus.Error(err)
			return err
		}
	}
	if config.APIKey == "" {
		err := fmt.Errorf("API key not provided")
		logrus.Error(err)
		return err
	}
	if config.Timeout < 0 || config.IdleTimeout < 0 {
		err := fmt.Errorf("timeouts can't be negative")
		logrus.Error(err)
		return err
	}
	for _, caCertFile := range []string{config.CaCertFile, config.MqttCaCertFile} {
		if caCertFile == "" {
			continue
		}
		if _, err := os.Stat(caCertFile); os.IsNotExist(err) {
			logrus.Errorf("CA certificate '%s' not found", caCertFile)
			return err
		}
	}
	if config.LogFile != "" {
		loggingFolder := path.Dir(config.LogFile)
		if _, err := os.Stat(loggingFolder); os.IsNotExist(err) {
			logrus.Errorf("Logging folder '%s' not found", loggingFolder)
			return err
		}
	}
	return nil
}
