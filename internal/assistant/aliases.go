package assistant

import (
	_ "embed"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var aliasesRaw []byte

type aliasTables struct {
	SlotAliases       map[string]string `yaml:"slot_aliases"`
	BuiltinContainers map[string]string `yaml:"builtin_containers"`
	CSSPropertyAlias  map[string]string `yaml:"css_property_aliases"`
	NamedColors       map[string]string `yaml:"named_colors"`
}

var (
	tablesOnce sync.Once
	tables     aliasTables
)

func loadTables() aliasTables {
	tablesOnce.Do(func() {
		if err := yaml.Unmarshal(aliasesRaw, &tables); err != nil {
			// The file is embedded at build time; a parse failure is a
			// programming error, not a runtime condition.
			panic("assistant: parse aliases.yaml: " + err.Error())
		}
		lowered := aliasTables{
			SlotAliases:       map[string]string{},
			BuiltinContainers: map[string]string{},
			CSSPropertyAlias:  map[string]string{},
			NamedColors:       map[string]string{},
		}
		for k, v := range tables.SlotAliases {
			lowered.SlotAliases[strings.ToLower(strings.TrimSpace(k))] = v
		}
		for k, v := range tables.BuiltinContainers {
			lowered.BuiltinContainers[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
		for k, v := range tables.CSSPropertyAlias {
			lowered.CSSPropertyAlias[strings.ToLower(strings.TrimSpace(k))] = v
		}
		for k, v := range tables.NamedColors {
			lowered.NamedColors[strings.ToLower(strings.TrimSpace(k))] = v
		}
		tables = lowered
	})
	return tables
}

func slotAliases() map[string]string { return loadTables().SlotAliases }

func cssPropertyAliases() map[string]string { return loadTables().CSSPropertyAlias }

func namedColors() map[string]string { return loadTables().NamedColors }

// builtinContainer reports whether id is a well-known implicit container and,
// if so, its own parent ("root" meaning top level). This table is the only
// place the implicit hierarchy lives; all position math consults it here.
func builtinContainer(id string) (parent string, ok bool) {
	parent, ok = loadTables().BuiltinContainers[id]
	return parent, ok
}
