package osiomqtt_test

import (
	"net"
	"os"
	"path"
	"sort"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wostzone/osioclient-go/pkg/osiomqtt"
)

func TestMain(m *testing.M) {
	logrus.SetLevel(logrus.PanicLevel)
	os.Exit(m.Run())
}

// closedAddress returns an address nothing listens on
func closedAddress(t *testing.T) string {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	listener.Close()
	return addr
}

func TestBrokerURL(t *testing.T) {
	pub := osiomqtt.NewMqttPublisher("mqtt.opensensors.io:1883", "", 0)
	assert.Equal(t, "tcp://mqtt.opensensors.io:1883/", pub.BrokerURL())
	pub = osiomqtt.NewMqttPublisher("mqtt.opensensors.io:8883", "ca.pem", 0)
	assert.Equal(t, "tls://mqtt.opensensors.io:8883/", pub.BrokerURL())
}

func TestPublishNotConnected(t *testing.T) {
	pub := osiomqtt.NewMqttPublisher("localhost:1883", "", 1)
	assert.False(t, pub.IsConnected())
	err := pub.Publish("/users/joe/temperature", []byte("21"))
	assert.ErrorIs(t, err, osiomqtt.ErrNotConnected)
	err = pub.PublishJSON("/users/joe/temperature", map[string]float64{"value": 21})
	assert.ErrorIs(t, err, osiomqtt.ErrNotConnected)
	// not serializable
	err = pub.PublishJSON("/users/joe/temperature", make(chan int))
	assert.Error(t, err)
	pub.Disconnect()
}

func TestConnectFails(t *testing.T) {
	pub := osiomqtt.NewMqttPublisher(closedAddress(t), "", 1)
	start := time.Now()
	err := pub.Connect("", "joe", "secret")
	assert.Error(t, err)
	assert.Less(t, int64(time.Since(start)), int64(5*time.Second))
	assert.False(t, pub.IsConnected())
}

func TestConnectBadCaCert(t *testing.T) {
	pub := osiomqtt.NewMqttPublisher(closedAddress(t), path.Join(t.TempDir(), "missing.pem"), 1)
	err := pub.Connect("device1", "joe", "secret")
	assert.Error(t, err)

	badCert := path.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(badCert, []byte("not a certificate"), 0600))
	pub = osiomqtt.NewMqttPublisher(closedAddress(t), badCert, 1)
	err = pub.Connect("device1", "joe", "secret")
	assert.Error(t, err)
}

func TestSubscriptionsBeforeConnect(t *testing.T) {
	pub := osiomqtt.NewMqttPublisher("localhost:1883", "", 1)
	handler := func(topic string, payload []byte) {}
	pub.Subscribe("/users/joe/#", handler)
	pub.Subscribe("/orgs/acme/+", handler)
	pub.Subscribe("/users/joe/#", handler)
	topics := pub.Subscriptions()
	sort.Strings(topics)
	assert.Equal(t, []string{"/orgs/acme/+", "/users/joe/#"}, topics)

	pub.Unsubscribe("/orgs/acme/+")
	pub.Unsubscribe("/not/subscribed")
	assert.Equal(t, []string{"/users/joe/#"}, pub.Subscriptions())
}
