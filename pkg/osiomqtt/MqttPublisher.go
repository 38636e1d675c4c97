// Package osiomqtt publishes device messages to the OpenSensors MQTT broker
package osiomqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultTimeoutSec constant with connection, reconnection and disconnection timeouts
const DefaultTimeoutSec = 3

// DefaultKeepAliveSec is the interval of keep alive pings. This is the max wait time to discover a broken connection
const DefaultKeepAliveSec = 10

// ClientIDPrefix is the prefix of generated client IDs
const ClientIDPrefix = "osio-"

// ErrNotConnected is returned when publishing without a connection to the broker
var ErrNotConnected = errors.New("no connection with broker")

// MqttPublisher publishes messages on OpenSensors topics as a device.
// Subscriptions are restored after a reconnect as the session is clean.
type MqttPublisher struct {
	brokerAddress string // host:port of the broker
	caCertFile    string // CA certificate to verify the broker, "" for plain tcp
	qos           byte
	timeout       int // seconds to keep trying to connect

	updateMutex   sync.Mutex
	pahoClient    pahomqtt.Client
	clientID      string
	subscriptions map[string]func(topic string, payload []byte)
}

// BrokerURL returns the URL the publisher connects to
// This is tls:// when a CA certificate is configured, tcp:// otherwise.
func (pub *MqttPublisher) BrokerURL() string {
	if pub.caCertFile != "" {
		return fmt.Sprintf("tls://%s/", pub.brokerAddress)
	}
	return fmt.Sprintf("tcp://%s/", pub.brokerAddress)
}

// ClientID returns the client ID of the last connect
func (pub *MqttPublisher) ClientID() string {
	pub.updateMutex.Lock()
	defer pub.updateMutex.Unlock()
	return pub.clientID
}

// IsConnected returns true when the broker connection is up
func (pub *MqttPublisher) IsConnected() bool {
	pub.updateMutex.Lock()
	defer pub.updateMutex.Unlock()
	return pub.pahoClient != nil && pub.pahoClient.IsConnected()
}

func (pub *MqttPublisher) tlsConfig() (*tls.Config, error) {
	caCertPEM, err := os.ReadFile(pub.caCertFile)
	if err != nil {
		logrus.Errorf("MqttPublisher.Connect: Unable to read CA certificate: %s", err)
		return nil, err
	}
	rootCA := x509.NewCertPool()
	if !rootCA.AppendCertsFromPEM(caCertPEM) {
		err = fmt.Errorf("no certificates in '%s'", pub.caCertFile)
		logrus.Errorf("MqttPublisher.Connect: %s", err)
		return nil, err
	}
	return &tls.Config{RootCAs: rootCA, MinVersion: tls.VersionTLS12}, nil
}

// Connect to the MQTT broker
// If a previous connection exists then it is disconnected first. If no connection is possible
// this keeps retrying until the timeout is expired. With each retry the backoff period
// is increased.
//  clientID of the device. Use "" to generate one
//  username of the device owner
//  password of the device
func (pub *MqttPublisher) Connect(clientID string, username string, password string) error {
	if clientID == "" {
		clientID = ClientIDPrefix + uuid.NewString()
	}
	brokerURL := pub.BrokerURL()
	logrus.Infof("MqttPublisher.Connect: broker=%s clientID=%s username=%s", brokerURL, clientID, username)

	pub.Disconnect()

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetUsername(username)
	if password != "" {
		opts.SetPassword(password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(time.Duration(pub.timeout) * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	// CleanSession disables persistence. Subscriptions are restored in the connect handler.
	opts.SetCleanSession(true)
	opts.SetKeepAlive(DefaultKeepAliveSec * time.Second)
	if pub.caCertFile != "" {
		tlsConfig, err := pub.tlsConfig()
		if err != nil {
			return err
		}
		opts.SetTLSConfig(tlsConfig)
	}
	opts.SetOnConnectHandler(func(client pahomqtt.Client) {
		logrus.Warningf("MqttPublisher.onConnect: Connected to %s. ClientId=%s", brokerURL, clientID)
		pub.resubscribe(client)
	})
	opts.SetConnectionLostHandler(func(client pahomqtt.Client, err error) {
		logrus.Warningf("MqttPublisher.onConnectionLost: Disconnected from %s. Error %s, ClientId=%s",
			brokerURL, err, clientID)
	})
	client := pahomqtt.NewClient(opts)

	// Auto reconnect doesn't apply to the initial attempt
	var err error
	retryDelay := time.Second / 2
	deadline := time.Now().Add(time.Duration(pub.timeout) * time.Second)
	for {
		token := client.Connect()
		token.Wait()
		err = token.Error()
		if err == nil || time.Now().Add(retryDelay).After(deadline) {
			break
		}
		logrus.Errorf("MqttPublisher.Connect: Connecting to broker on %s failed: %s. retrying in %s.",
			brokerURL, err, retryDelay)
		time.Sleep(retryDelay)
		if retryDelay < 30*time.Second {
			retryDelay *= 2
		}
	}
	if err != nil {
		return err
	}
	pub.updateMutex.Lock()
	pub.pahoClient = client
	pub.clientID = clientID
	pub.updateMutex.Unlock()
	return nil
}

// Disconnect from the broker. Subscriptions are kept for the next connect.
func (pub *MqttPublisher) Disconnect() {
	pub.updateMutex.Lock()
	client := pub.pahoClient
	clientID := pub.clientID
	pub.pahoClient = nil
	pub.updateMutex.Unlock()

	if client != nil {
		logrus.Infof("MqttPublisher.Disconnect: Client %s", clientID)
		client.Disconnect(DefaultTimeoutSec * 1000)
	}
}

// Publish a message on a topic, eg /users/joe/temperature
func (pub *MqttPublisher) Publish(topic string, payload []byte) error {
	pub.updateMutex.Lock()
	client := pub.pahoClient
	pub.updateMutex.Unlock()

	if client == nil || !client.IsConnected() {
		logrus.Warnf("MqttPublisher.Publish: Unable to publish on %s. No connection with broker.", topic)
		return ErrNotConnected
	}
	logrus.Infof("MqttPublisher.Publish: topic=%s, qos=%d, size=%d", topic, pub.qos, len(payload))
	token := client.Publish(topic, pub.qos, false, payload)
	if !token.WaitTimeout(time.Duration(pub.timeout) * time.Second) {
		return fmt.Errorf("publish on '%s' timed out", topic)
	}
	err := token.Error()
	if err != nil {
		logrus.Warnf("MqttPublisher.Publish: Error during publish on topic %s: %v", topic, err)
	}
	return err
}

// PublishJSON publishes the JSON encoding of a message
func (pub *MqttPublisher) PublishJSON(topic string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return pub.Publish(topic, payload)
}

func (pub *MqttPublisher) subscribe(client pahomqtt.Client, topic string, handler func(topic string, payload []byte)) {
	client.Subscribe(topic, pub.qos, func(c pahomqtt.Client, msg pahomqtt.Message) {
		logrus.Debugf("MqttPublisher.onMessage: topic=%s", msg.Topic())
		handler(msg.Topic(), msg.Payload())
	})
}

// resubscribe after establishing a connection as the broker drops subscriptions of a clean session
func (pub *MqttPublisher) resubscribe(client pahomqtt.Client) {
	pub.updateMutex.Lock()
	defer pub.updateMutex.Unlock()

	logrus.Infof("MqttPublisher.resubscribe to %d topics", len(pub.subscriptions))
	for topic, handler := range pub.subscriptions {
		pub.subscribe(client, topic, handler)
	}
}

// Subscribe to a topic. This supports mqtt wildcards such as + and #.
// An existing subscription to the topic is replaced. Subscriptions made before
// Connect take effect when connected.
func (pub *MqttPublisher) Subscribe(topic string, handler func(topic string, payload []byte)) {
	logrus.Infof("MqttPublisher.Subscribe: topic %s, qos %d", topic, pub.qos)
	pub.updateMutex.Lock()
	defer pub.updateMutex.Unlock()

	pub.subscriptions[topic] = handler
	if pub.pahoClient != nil && pub.pahoClient.IsConnected() {
		pub.subscribe(pub.pahoClient, topic, handler)
	}
}

// Unsubscribe from a topic
func (pub *MqttPublisher) Unsubscribe(topic string) {
	logrus.Infof("MqttPublisher.Unsubscribe: topic %s", topic)
	pub.updateMutex.Lock()
	defer pub.updateMutex.Unlock()

	if _, found := pub.subscriptions[topic]; !found {
		logrus.Warningf("MqttPublisher.Unsubscribe: Subscription on topic %s didn't exist. Ignored", topic)
		return
	}
	delete(pub.subscriptions, topic)
	if pub.pahoClient != nil && pub.pahoClient.IsConnected() {
		pub.pahoClient.Unsubscribe(topic)
	}
}

// Subscriptions returns the subscribed topics
func (pub *MqttPublisher) Subscriptions() []string {
	pub.updateMutex.Lock()
	defer pub.updateMutex.Unlock()
	topics := make([]string, 0, len(pub.subscriptions))
	for topic := range pub.subscriptions {
		topics = append(topics, topic)
	}
	return topics
}

// NewMqttPublisher creates a publisher for the broker
// To avoid hanging, keep the timeout low, if 0 is provided the default of 3 seconds is used
//  brokerAddress host:port to connect to
//  caCertFile is a PEM file with the broker CA certificate, "" to connect without TLS
//  timeoutSec to attempt connecting before it is considered failed
func NewMqttPublisher(brokerAddress string, caCertFile string, timeoutSec int) *MqttPublisher {
	if timeoutSec <= 0 {
		timeoutSec = DefaultTimeoutSec
	}
	return &MqttPublisher{
		brokerAddress: brokerAddress,
		caCertFile:    caCertFile,
		qos:           1,
		timeout:       timeoutSec,
		subscriptions: make(map[string]func(topic string, payload []byte)),
	}
}
