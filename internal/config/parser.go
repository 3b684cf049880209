package config

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/kestrelworks/prevrel/internal/platform"
)

// parseLua executes a config file in a sandboxed Lua VM and applies the
// global "project" table on top of the project passed in. The schema:
//
//	project = {
//	  name = "bitcoin",
//	  repo_url = "https://github.com/bitcoin/bitcoin",
//	  download_base = "https://bitcoincore.org",
//	  core_binaries = { "bitcoind", "bitcoin-cli", "bitcoin-tx" },
//	  gui_binary = "src/qt/bitcoin-qt",
//	  platforms = {
//	    { glob = "x86_64-*-linux*", tag = "x86_64-linux-gnu" },
//	  },
//	}
func parseLua(code string, project *Project) error {
	L := newSandboxedVM()
	defer L.Close()

	if err := L.DoString(code); err != nil {
		return fmt.Errorf("lua error: %w", err)
	}

	value := L.GetGlobal("project")
	table, ok := value.(*lua.LTable)
	if !ok {
		return fmt.Errorf("expected a global 'project' table, got %s", value.Type())
	}

	if name, ok := getString(table, "name"); ok {
		project.Name = name
	}
	if repoURL, ok := getString(table, "repo_url"); ok {
		project.RepoURL = repoURL
	}
	if base, ok := getString(table, "download_base"); ok {
		project.DownloadBase = base
	}
	if gui, ok := getString(table, "gui_binary"); ok {
		project.GUIBinary = gui
	}

	if value := table.RawGetString("core_binaries"); value != lua.LNil {
		binaries, err := extractStrings(value)
		if err != nil {
			return fmt.Errorf("core_binaries: %w", err)
		}
		project.CoreBinaries = binaries
	}

	if value := table.RawGetString("platforms"); value != lua.LNil {
		patterns, err := extractPatterns(value)
		if err != nil {
			return fmt.Errorf("platforms: %w", err)
		}
		project.Platforms = patterns
	}

	return nil
}

func getString(table *lua.LTable, key string) (string, bool) {
	value := table.RawGetString(key)
	str, ok := value.(lua.LString)
	return string(str), ok
}

// extractStrings converts a Lua array of strings.
func extractStrings(value lua.LValue) ([]string, error) {
	table, ok := value.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("expected table, got %s", value.Type())
	}

	var out []string
	var convErr error
	table.ForEach(func(_, item lua.LValue) {
		str, ok := item.(lua.LString)
		if !ok {
			convErr = fmt.Errorf("expected string entries, got %s", item.Type())
			return
		}
		out = append(out, string(str))
	})
	return out, convErr
}

// extractPatterns converts a Lua array of {glob=..., tag=...} entries,
// preserving order so first-match-wins resolution holds.
func extractPatterns(value lua.LValue) ([]platform.Pattern, error) {
	table, ok := value.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("expected table, got %s", value.Type())
	}

	var out []platform.Pattern
	var convErr error
	table.ForEach(func(_, item lua.LValue) {
		entry, ok := item.(*lua.LTable)
		if !ok {
			convErr = fmt.Errorf("expected table entries, got %s", item.Type())
			return
		}
		glob, gok := getString(entry, "glob")
		tag, tok := getString(entry, "tag")
		if !gok || !tok {
			convErr = fmt.Errorf("pattern entries need 'glob' and 'tag' strings")
			return
		}
		out = append(out, platform.Pattern{Glob: glob, Tag: tag})
	})
	return out, convErr
}
