package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/wostzone/osioclient-go/api"
	"github.com/wostzone/osioclient-go/pkg/eventstream"
	"github.com/wostzone/osioclient-go/pkg/osioconfig"
	"github.com/wostzone/osioclient-go/pkg/osiomqtt"
)

var errUsage = errors.New("usage")

func isTransportError(err error) bool {
	var transportErr *eventstream.TransportError
	return errors.As(err, &transportErr)
}

// execute a command with its arguments
func (c *cli) execute(ctx context.Context, command string, args []string) error {
	switch command {
	case "whoami":
		return c.whoami(ctx)
	case "get":
		if len(args) != 1 {
			return errUsage
		}
		return c.get(ctx, args[0])
	case "stream":
		if len(args) != 1 {
			return errUsage
		}
		return c.stream(ctx, args[0])
	case "rotate-key":
		return c.rotateKey(ctx)
	case "publish":
		if len(args) != 2 {
			return errUsage
		}
		return c.publish(args[0], args[1])
	}
	return errUsage
}

// print a value in the selected output format
func (c *cli) print(value interface{}) error {
	var data []byte
	var err error
	if c.output == "yaml" {
		data, err = yaml.Marshal(value)
	} else {
		data, err = json.MarshalIndent(value, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return err
	}
	_, err = c.out.Write(data)
	return err
}

func (c *cli) whoami(ctx context.Context) error {
	result, err := c.client.WhoAmI(ctx)
	if err != nil {
		return err
	}
	return c.print(result)
}

// splitPath separates the query from an API path
func splitPath(apiPath string) (string, url.Values, error) {
	u, err := url.Parse(apiPath)
	if err != nil {
		return "", nil, err
	}
	return u.EscapedPath(), u.Query(), nil
}

func (c *cli) get(ctx context.Context, apiPath string) error {
	path, query, err := splitPath(apiPath)
	if err != nil {
		return err
	}
	resp, err := c.gateway.Request(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	var result interface{}
	if len(resp.Body) > 0 {
		if err = json.Unmarshal(resp.Body, &result); err != nil {
			// not JSON, print as text
			result = string(resp.Body)
		}
	}
	return c.print(result)
}

// watchAPIKey reloads the api key when the config file changes.
// Returns a channel that receives a value each time the key changed.
func (c *cli) watchAPIKey() (changed <-chan struct{}, stop func()) {
	ch := make(chan struct{}, 1)
	if _, err := os.Stat(c.config.ConfigFile); err != nil {
		return ch, func() {}
	}
	mutex := sync.Mutex{}
	currentKey := c.config.APIKey
	watcher, err := osioconfig.WatchConfig(c.config.ConfigFile, func() error {
		reloaded := osioconfig.CreateDefaultConfig(c.config.Home)
		if err := osioconfig.LoadConfig(c.config.ConfigFile, reloaded, nil); err != nil {
			return err
		}
		mutex.Lock()
		defer mutex.Unlock()
		if reloaded.APIKey == "" || reloaded.APIKey == currentKey {
			return nil
		}
		currentKey = reloaded.APIKey
		c.gateway.SetAPIKey(currentKey)
		select {
		case ch <- struct{}{}:
		default:
		}
		return nil
	})
	if err != nil {
		logrus.Warningf("cli.watchAPIKey: Not watching '%s' for key changes: %s", c.config.ConfigFile, err)
		return ch, func() {}
	}
	return ch, func() { _ = watcher.Close() }
}

// stream prints the events of a real-time endpoint until the context ends or the
// server closes the stream. The stream is reopened when the api key changes.
func (c *cli) stream(ctx context.Context, apiPath string) error {
	path, query, err := splitPath(apiPath)
	if err != nil {
		return err
	}
	auth := api.AuthHeader
	if c.public {
		auth = api.AuthQuery
	}
	keyChanged, stopWatching := c.watchAPIKey()
	defer stopWatching()

	for {
		streamCtx, cancel := context.WithCancel(ctx)
		conn, err := c.gateway.OpenStream(streamCtx, path, query, auth)
		if err != nil {
			cancel()
			return err
		}
		reader := eventstream.Open(streamCtx, conn,
			eventstream.WithLogger(logrus.StandardLogger()),
			eventstream.WithIdleTimeout(c.config.StreamIdleTimeout()))
		done := make(chan struct{})
		go func() {
			select {
			case <-keyChanged:
				logrus.Warningf("cli.stream: api key changed. Reopening %s", path)
				cancel()
			case <-done:
			}
		}()
		for reader.Next() {
			if err = c.print(reader.Event().Payload); err != nil {
				break
			}
		}
		close(done)
		if err == nil {
			err = reader.Err()
		}
		_ = reader.Close()
		reopen := streamCtx.Err() != nil && ctx.Err() == nil
		cancel()
		if reopen {
			continue
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

// rotateKey generates a new api key and saves it in the config file
func (c *cli) rotateKey(ctx context.Context) error {
	if c.config.UserID == "" {
		return fmt.Errorf("rotate-key requires the userID in the configuration")
	}
	newKey, err := c.client.GenerateAPIKey(ctx, c.config.UserID)
	if err != nil {
		return err
	}
	// the key is returned as text, possibly as a JSON string
	newKey = strings.Trim(strings.TrimSpace(newKey), `"`)
	if newKey == "" {
		return fmt.Errorf("server returned an empty api key")
	}
	c.config.APIKey = newKey
	c.gateway.SetAPIKey(newKey)
	if err = osioconfig.SaveConfig(c.config.ConfigFile, c.config); err != nil {
		return err
	}
	return c.print(map[string]string{"apiKey": newKey, "configFile": c.config.ConfigFile})
}

// newPublisher creates the MQTT publisher. The broker has its own CA certificate setting
// as the REST API certificate doesn't apply to it.
func newPublisher(config *osioconfig.OsioConfig) *osiomqtt.MqttPublisher {
	return osiomqtt.NewMqttPublisher(config.MqttAddress, config.MqttCaCertFile, config.Timeout)
}

// publish a JSON message as a device
func (c *cli) publish(topic string, message string) error {
	if !json.Valid([]byte(message)) {
		return fmt.Errorf("message is not valid JSON")
	}
	publisher := newPublisher(c.config)
	err := publisher.Connect(c.config.MqttClientID, c.config.MqttUsername, c.config.MqttPassword)
	if err != nil {
		return err
	}
	defer publisher.Disconnect()
	return publisher.Publish(topic, []byte(message))
}
