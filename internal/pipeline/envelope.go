package pipeline

// envelopeKeys are the members that may wrap the record list of a
// payload, in lookup order.
var envelopeKeys = []string{"data", "items", "results", "records"}

// Unwrap returns the record set of payload and the root exposed to filter
// expressions. A map holding a list under one of the envelope keys yields
// that list; anything else is its own record set. The root is always the
// parsed payload.
func Unwrap(payload interface{}) (records, root interface{}) {
	if m, ok := payload.(map[string]interface{}); ok {
		for _, key := range envelopeKeys {
			if list, ok := m[key].([]interface{}); ok {
				return list, payload
			}
		}
	}
	return payload, payload
}
