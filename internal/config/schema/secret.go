package schema

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// secretMask is what a non-empty Secret prints as.
const secretMask = "********"

// Secret holds a credential (API token, redis password). Its printed and
// serialized forms are always masked; only Value exposes the content.
//
// *Secret also satisfies pflag.Value so it can back a command-line flag
// without the raw value leaking into help output.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return secretMask
}

// Value returns the unmasked credential.
func (s Secret) Value() string {
	return string(s)
}

// IsEmpty reports whether no credential is configured.
func (s Secret) IsEmpty() bool {
	return s == ""
}

// Set implements pflag.Value.
func (s *Secret) Set(v string) error {
	*s = Secret(v)
	return nil
}

// Type implements pflag.Value.
func (s *Secret) Type() string {
	return "secret"
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Secret) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Secret(v)
	return nil
}

func (s Secret) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

func (s *Secret) UnmarshalYAML(node *yaml.Node) error {
	*s = Secret(node.Value)
	return nil
}
