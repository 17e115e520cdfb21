package rabbitmq

import (
	"net"
	"net/url"
	"strconv"
)

// DefaultPort is the AMQP port used when Config.Port is zero.
const DefaultPort = 5672

// Config holds RabbitMQ connection parameters.
type Config struct {
	Host     string
	User     string
	Password string
	// VHost defaults to "/" when empty.
	VHost string
	// ConnectionName is shown in the management UI.
	ConnectionName string
	Port           int
}

// URL returns the AMQP URL for the config. Credentials and vhost are escaped.
func (c Config) URL() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(port)),
	}
	if c.VHost != "" && c.VHost != "/" {
		u.Path = "/" + c.VHost
		u.RawPath = "/" + url.PathEscape(c.VHost)
	}
	return u.String()
}

// Redacted returns URL with the password masked, for logging.
func (c Config) Redacted() string {
	u, err := url.Parse(c.URL())
	if err != nil {
		return c.Host
	}
	return u.Redacted()
}
