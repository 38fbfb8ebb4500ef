// Package i18n provides the labels shown on dashboard forms and used in
// task names. Defaults are compiled in; operators may override single
// entries with a YAML catalog of the same shape.
package i18n

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Action labels.
const (
	ActionCreate = "create"
	ActionEdit   = "edit"
	ActionDelete = "delete"
	ActionAdd    = "add"
)

// URL verbs.
const (
	VerbCreate = "create"
	VerbEdit   = "edit"
	VerbDelete = "delete"
)

// ResourceHost is the resource key for cluster hosts.
const ResourceHost = "host"

// Message keys.
const (
	MessageRequired       = "required"
	MessageUniqueHostname = "unique_hostname"
	MessageSubmitFailed   = "submit_failed"
	MessageLoading        = "loading"
)

// Labels is a catalog of user-facing strings.
type Labels struct {
	Actions   map[string]string `yaml:"actions"`
	Verbs     map[string]string `yaml:"verbs"`
	Resources map[string]string `yaml:"resources"`
	Messages  map[string]string `yaml:"messages"`
}

// Default returns the compiled-in catalog.
func Default() *Labels {
	l, err := parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("i18n: invalid default catalog: %v", err))
	}
	return l
}

// Load returns the default catalog with entries from the YAML file at
// path layered on top. An empty path returns the defaults.
func Load(path string) (*Labels, error) {
	l := Default()
	if path == "" {
		return l, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading i18n catalog: %w", err)
	}
	override, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing i18n catalog %s: %w", path, err)
	}
	merge(l.Actions, override.Actions)
	merge(l.Verbs, override.Verbs)
	merge(l.Resources, override.Resources)
	merge(l.Messages, override.Messages)
	return l, nil
}

func parse(data []byte) (*Labels, error) {
	var l Labels
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	if l.Actions == nil {
		l.Actions = map[string]string{}
	}
	if l.Verbs == nil {
		l.Verbs = map[string]string{}
	}
	if l.Resources == nil {
		l.Resources = map[string]string{}
	}
	if l.Messages == nil {
		l.Messages = map[string]string{}
	}
	return &l, nil
}

func merge(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}

func lookup(m map[string]string, key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return key
}

// Action returns the label for an action, e.g. "Create".
func (l *Labels) Action(key string) string { return lookup(l.Actions, key) }

// Verb returns the URL verb for an action, e.g. "create".
func (l *Labels) Verb(key string) string { return lookup(l.Verbs, key) }

// Resource returns the display noun for a resource, e.g. "host".
func (l *Labels) Resource(key string) string { return lookup(l.Resources, key) }

// Message returns a user-facing message. Unknown keys are returned as is.
func (l *Labels) Message(key string) string { return lookup(l.Messages, key) }
