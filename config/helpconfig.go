// Copyright (C) 2026 zappend-go contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/bcdev/zappend-go/zerr"
)

// settingDoc describes one recognized Config option, reflected off its
// struct tags, for rendering by HelpConfig.
type settingDoc struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Type     string `json:"type"`
	Doc      string `json:"doc,omitempty"`
}

// settings reflects over Config's fields, skipping any field tagged
// `json:"-"` (the programmatic-only ones), and returns one settingDoc per
// remaining field in declaration order.
func settings() []settingDoc {
	t := reflect.TypeOf(Config{})
	docs := make([]settingDoc, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		jsonTag := f.Tag.Get("json")
		if jsonTag == "-" || jsonTag == "" {
			continue
		}
		name := strings.SplitN(jsonTag, ",", 2)[0]
		docs = append(docs, settingDoc{
			Name:     name,
			Category: f.Tag.Get("category"),
			Type:     f.Type.String(),
			Doc:      f.Tag.Get("doc"),
		})
	}
	return docs
}

// HelpConfig renders the recognized configuration options in the requested
// format ("json" or "md"), for "zappend --help-config".
func HelpConfig(format string) (string, error) {
	switch format {
	case "json":
		return helpConfigJSON()
	case "md":
		return helpConfigMarkdown(), nil
	}
	return "", zerr.Newf(zerr.Configuration, "invalid --help-config format %q, want json or md", format)
}

func helpConfigJSON() (string, error) {
	data, err := json.MarshalIndent(settings(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func helpConfigMarkdown() string {
	byCategory := map[string][]settingDoc{}
	var order []string
	for _, s := range settings() {
		if _, ok := byCategory[s.Category]; !ok {
			order = append(order, s.Category)
		}
		byCategory[s.Category] = append(byCategory[s.Category], s)
	}

	var b strings.Builder
	b.WriteString("# Configuration Reference\n\n")
	b.WriteString("Given here are all configuration settings for `zappend`.\n\n")
	for _, category := range order {
		b.WriteString("## " + category + "\n\n")
		for _, s := range byCategory[category] {
			b.WriteString("### `" + s.Name + "`\n\n")
			b.WriteString("Type `" + s.Type + "`.\n")
			if s.Doc != "" {
				b.WriteString(s.Doc + "\n")
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
