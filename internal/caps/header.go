package caps

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dunglas/httpsfv"
)

// Header is the request header carrying the embed declaration.
const Header = "Quickshop-Embed"

// Parse extracts the embed declaration from a Quickshop-Embed header.
// Format: version="2.3.1", money-format="${{amount}}", notify=?1
// (RFC 8941 Dictionary).
//
// An empty header means no declaration: returns (nil, nil) and the
// defaults apply. A malformed header or wrongly typed member returns
// an error.
func Parse(header string) (*Declared, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return nil, fmt.Errorf("invalid Quickshop-Embed header: %w", err)
	}

	declared := &Declared{}

	if version, err := stringMember(dict, "version"); err != nil {
		return nil, err
	} else {
		declared.Version = version
	}

	if pattern, err := stringMember(dict, "money-format"); err != nil {
		return nil, err
	} else {
		declared.MoneyFormat = pattern
	}

	if member, ok := dict.Get("notify"); ok {
		item, ok := member.(httpsfv.Item)
		if !ok {
			return nil, errors.New("notify value must be an item")
		}
		b, ok := item.Value.(bool)
		if !ok {
			return nil, errors.New("notify value must be a boolean")
		}
		declared.Notify = &b
	}

	return declared, nil
}

// stringMember reads an optional string item from the dictionary.
// Returns "" when the key is absent, an error when the value is not a
// string item.
func stringMember(dict *httpsfv.Dictionary, key string) (string, error) {
	member, ok := dict.Get(key)
	if !ok {
		return "", nil
	}
	item, ok := member.(httpsfv.Item)
	if !ok {
		return "", fmt.Errorf("%s value must be an item", key)
	}
	s, ok := item.Value.(string)
	if !ok {
		return "", fmt.Errorf("%s value must be a string", key)
	}
	return s, nil
}
