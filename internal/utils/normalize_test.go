package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVehicleNumber(t *testing.T) {
	tests := []struct {
		given    string
		expected string
	}{
		{"ka-01 ab 1234", "KA01AB1234"},
		{"KA01AB1234", "KA01AB1234"},
		{" mh.12-de_4455 ", "MH12DE4455"},
		{"", ""},
		{"---", ""},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, NormalizeVehicleNumber(test.given), "input %q", test.given)
	}
}
