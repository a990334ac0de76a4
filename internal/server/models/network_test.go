package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateNetworks(t *testing.T) {
	assert.NoError(t, ValidateNetworks(DefaultNetworks()))
	assert.NoError(t, ValidateNetworks(nil))

	assert.Error(t, ValidateNetworks([]Network{{Code: ""}}))
	assert.Error(t, ValidateNetworks([]Network{{Code: "a:b"}}))
	assert.Error(t, ValidateNetworks([]Network{{Code: "usdt trc20"}}))
	assert.Error(t, ValidateNetworks([]Network{{Code: "DAI"}, {Code: "dai"}}))

	assert.Equal(t, "xdai", NormalizeNetworkCode(" xDAI "))
}
