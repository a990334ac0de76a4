package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Network is a payment network accepted for deposits.
type Network struct {
	Code string `json:"network" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

// DefaultNetworks is the set served when the configuration names none.
func DefaultNetworks() []Network {
	return []Network{
		{Code: "trc20", Name: "USDT (TRC-20)"},
		{Code: "erc20", Name: "USDT (ERC-20)"},
		{Code: "dai", Name: "DAI (Ethereum)"},
		{Code: "xdai", Name: "xDAI (Gnosis)"},
	}
}

// NormalizeNetworkCode returns the form used for lookups and storage keys.
func NormalizeNetworkCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// ValidateNetworks reports empty codes, codes containing ':' or whitespace,
// and codes that collide once normalized.
func ValidateNetworks(networks []Network) error {
	var errs []error
	seen := make(map[string]bool, len(networks))
	for _, n := range networks {
		code := NormalizeNetworkCode(n.Code)
		switch {
		case code == "":
			errs = append(errs, errors.New("network code must not be empty"))
			continue
		case strings.ContainsFunc(code, func(r rune) bool { return r == ':' || unicode.IsSpace(r) }):
			errs = append(errs, fmt.Errorf("network code %q must not contain ':' or spaces", n.Code))
		}
		if seen[code] {
			errs = append(errs, fmt.Errorf("duplicate network code %q", n.Code))
		}
		seen[code] = true
	}
	return errors.Join(errs...)
}
