// Package entities provides the detection-entity catalogue of the Vigil
// Guard pipeline: the labels carried in decision records, the redaction
// markers the sanitizer substitutes for matched values, and checksum
// validators for the Polish identification numbers the pipeline recognizes.
package entities

import "regexp"

// Entity represents a type of sensitive data the pipeline can detect.
type Entity string

const (
	// Default is used as a fallback mask
	Default Entity = "DEFAULT"

	Email       Entity = "EMAIL"
	PhoneNumber Entity = "PHONE_NUMBER"
	URL         Entity = "URL"
	Person      Entity = "PERSON"
	IPAddress   Entity = "IP_ADDRESS"
	CreditCard  Entity = "CREDIT_CARD"
	IBAN        Entity = "IBAN"

	// Polish identifiers (validated by checksum, see polish.go)
	PESEL Entity = "PESEL"
	NIP   Entity = "NIP"
	REGON Entity = "REGON"
)

// Patterns contains detection regexes per entity. The harness uses them only
// to assert that raw values disappeared from sanitized payloads; detection
// itself happens server-side.
var Patterns = map[Entity]*regexp.Regexp{
	Email:       regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	PhoneNumber: regexp.MustCompile(`\b(?:\+48[\s-]?)?\d{3}[\s-]?\d{3}[\s-]?\d{3}\b`),
	URL:         regexp.MustCompile(`\bhttps?://[^\s<>"]+\b`),
	IPAddress:   regexp.MustCompile(`\b((25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`),
	CreditCard:  regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`),
	IBAN:        regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{4,30}\b`),
	PESEL:       regexp.MustCompile(`\b\d{11}\b`),
	NIP:         regexp.MustCompile(`\b\d{3}[-\s]?\d{3}[-\s]?\d{2}[-\s]?\d{2}\b`),
	REGON:       regexp.MustCompile(`\b\d{9}(\d{5})?\b`),
}

// Masks contains the redaction marker substituted for each entity type.
var Masks = map[Entity]string{
	Default:     "*****",
	Email:       "[MASKED_EMAIL]",
	PhoneNumber: "[MASKED_PHONE]",
	URL:         "[MASKED_URL]",
	Person:      "[MASKED_PERSON]",
	IPAddress:   "[MASKED_IP]",
	CreditCard:  "[MASKED_CC]",
	IBAN:        "[MASKED_IBAN]",
	PESEL:       "[MASKED_PESEL]",
	NIP:         "[MASKED_NIP]",
	REGON:       "[MASKED_REGON]",
}

// All contains every valid entity type for validation.
var All = map[Entity]bool{
	Email:       true,
	PhoneNumber: true,
	URL:         true,
	Person:      true,
	IPAddress:   true,
	CreditCard:  true,
	IBAN:        true,
	PESEL:       true,
	NIP:         true,
	REGON:       true,
}

// IsValid checks if an entity label is part of the catalogue.
func IsValid(entity string) bool {
	return All[Entity(entity)]
}

// Mask returns the redaction marker for an entity type.
func Mask(entity Entity) string {
	if m, ok := Masks[entity]; ok {
		return m
	}
	return Masks[Default]
}

// Labels converts a set of entities to their string labels.
func Labels(ents []Entity) []string {
	out := make([]string, 0, len(ents))
	for _, e := range ents {
		out = append(out, string(e))
	}
	return out
}
