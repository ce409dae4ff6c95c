// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration subcommands.
//
// Examples:
//   termai config show                    Print all settings
//   termai config get ui.theme            Print one value
//   termai config set default_model phi3  Set and persist a value

package cli

import (
	"fmt"
	"sort"

	"github.com/termai/termai-tui/internal/config"
)

// HandleConfigCommand dispatches config subcommands.
func HandleConfigCommand(deps *Deps, parser *ArgParser) error {
	switch parser.Positional(1) {
	case "show", "":
		return configShow(deps)
	case "get":
		return configGet(deps, parser)
	case "set":
		return configSet(deps, parser)
	case "path":
		return configPath()
	default:
		return usageErrorf("unknown config subcommand: %s (expected show, get, set, path)",
			parser.Positional(1))
	}
}

func configShow(deps *Deps) error {
	keys := config.GetAllKeys()
	sort.Strings(keys)

	for _, key := range keys {
		value, err := deps.Config.Get(key)
		if err != nil {
			continue
		}
		fmt.Printf("%s = %v\n", infoStyle.Render(key), value)
	}
	return nil
}

func configGet(deps *Deps, parser *ArgParser) error {
	key := parser.Positional(2)
	if key == "" {
		return usageErrorf("usage: termai config get KEY")
	}

	value, err := deps.Config.Get(key)
	if err != nil {
		return err
	}
	fmt.Printf("%v\n", value)
	return nil
}

func configSet(deps *Deps, parser *ArgParser) error {
	key := parser.Positional(2)
	value := parser.Positional(3)
	if key == "" || value == "" {
		return usageErrorf("usage: termai config set KEY VALUE")
	}

	if err := deps.Config.Set(key, value); err != nil {
		return err
	}
	if err := deps.Config.Validate(); err != nil {
		return err
	}
	if err := config.Save(deps.Config); err != nil {
		return err
	}

	fmt.Printf("%s %s = %s\n", commandStyle.Render("[OK]"), key, value)
	return nil
}

func configPath() error {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
