package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePESEL(t *testing.T) {
	tests := []struct {
		name  string
		pesel string
		valid bool
	}{
		{"valid pesel", "92032100157", true},
		{"valid pesel with space", "920321 00157", true},
		{"invalid checksum", "12345678901", false},
		{"too short", "9203210015", false},
		{"too long", "920321001577", false},
		{"empty", "", false},
		{"non numeric", "abcdefghijk", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidatePESEL(tt.pesel))
		})
	}
}

func TestValidateNIP(t *testing.T) {
	tests := []struct {
		name  string
		nip   string
		valid bool
	}{
		{"valid formatted", "123-456-32-18", true},
		{"valid bare", "1234563218", true},
		{"invalid checksum", "1234567890", false},
		{"wrong length", "123", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateNIP(tt.nip))
		})
	}
}

func TestValidateREGON(t *testing.T) {
	tests := []struct {
		name  string
		regon string
		valid bool
	}{
		{"valid 9 digit", "123456785", true},
		{"invalid 9 digit", "123456789", false},
		{"valid 14 digit", "12345678512347", true},
		{"wrong length", "12345", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateREGON(tt.regon))
		})
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("PESEL"))
	assert.True(t, IsValid("URL"))
	assert.False(t, IsValid("pesel"))
	assert.False(t, IsValid("UNKNOWN_ENTITY"))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "[MASKED_PESEL]", Mask(PESEL))
	assert.Equal(t, "*****", Mask(Entity("nonexistent")))
}

func TestLabels(t *testing.T) {
	labels := Labels([]Entity{Email, URL, PESEL})
	assert.Equal(t, []string{"EMAIL", "URL", "PESEL"}, labels)
}
