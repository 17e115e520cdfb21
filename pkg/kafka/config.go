package kafka

import "strings"

// Config holds Kafka connection parameters.
type Config struct {
	// TopicPrefix is prepended to the routing key to form the topic name.
	TopicPrefix string
	ClientID    string

	// SASL configuration for authentication.
	SASLMechanism string // "PLAIN" or "SCRAM-SHA-256" or "SCRAM-SHA-512"
	SASLUsername  string
	SASLPassword  string

	Brokers []string

	// TLS enables TLS for Kafka connections.
	TLS         bool
	SASLEnabled bool
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Topic returns the topic a routing key is mirrored to.
func (c Config) Topic(routingKey string) string {
	return c.TopicPrefix + routingKey
}
