package event

import (
	"strings"

	pkgkafka "github.com/Palak111111/Scrapify-server/pkg/kafka"
)

// Source is written into every event this service publishes.
const Source = "catalog"

// Topics produced and consumed by the catalog.
var (
	TopicProductCreated = pkgkafka.Topic("product", "created")
)

// TopicFor maps an outbox event type ("product.created") to its topic.
func TopicFor(eventType string) string {
	domain, action, ok := strings.Cut(eventType, ".")
	if !ok {
		return pkgkafka.TopicPrefix + "." + eventType
	}
	return pkgkafka.Topic(domain, action)
}

// aggregateType is the part of an event type before the first dot.
func aggregateType(eventType string) string {
	domain, _, _ := strings.Cut(eventType, ".")
	return domain
}
