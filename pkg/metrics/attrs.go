package metrics

import "go.opentelemetry.io/otel/attribute"

// segment and tool_id are drawn from closed sets per spec §4.4's label
// cardinality discipline; callers pass the enumerated values defined
// alongside the packet and dispatch packages rather than free-form strings.

func attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

func segmentAttr(segment string) attribute.KeyValue {
	return attribute.String("segment", segment)
}

func statusAttr(status string) attribute.KeyValue {
	return attribute.String("status", status)
}
