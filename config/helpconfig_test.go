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
	"strings"
	"testing"
)

func TestHelpConfigJSONListsTargetDir(t *testing.T) {
	text, err := HelpConfig("json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, `"target_dir"`) {
		t.Fatalf("expected target_dir in JSON help, got %s", text)
	}
}

func TestHelpConfigMarkdownGroupsByCategory(t *testing.T) {
	text, err := HelpConfig("md")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "## Target") {
		t.Fatalf("expected a Target category heading, got %s", text)
	}
	if !strings.Contains(text, "### `target_dir`") {
		t.Fatalf("expected a target_dir subsection, got %s", text)
	}
}

func TestHelpConfigRejectsUnknownFormat(t *testing.T) {
	if _, err := HelpConfig("xml"); err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
}

func TestHelpConfigExcludesProgrammaticOnlyFields(t *testing.T) {
	text, err := HelpConfig("json")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(text, "SliceSource") || strings.Contains(text, "Logf") {
		t.Fatalf("expected programmatic-only fields to be excluded, got %s", text)
	}
}
