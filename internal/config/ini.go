package config

import (
	"errors"
	"strings"

	"gopkg.in/ini.v1"
)

// iniCodec decodes dwh.cfg style INI files for viper. Each section becomes a
// nested map; keys outside any section land at the top level.
type iniCodec struct{}

func (iniCodec) Decode(b []byte, v map[string]any) error {
	file, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, b)
	if err != nil {
		return err
	}

	for _, section := range file.Sections() {
		target := v
		if section.Name() != ini.DefaultSection {
			nested, ok := v[section.Name()].(map[string]any)
			if !ok {
				nested = make(map[string]any)
				v[section.Name()] = nested
			}
			target = nested
		}
		for _, key := range section.Keys() {
			target[key.Name()] = strings.TrimSpace(key.String())
		}
	}
	return nil
}

func (iniCodec) Encode(map[string]any) ([]byte, error) {
	return nil, errors.New("writing ini config is not supported")
}
