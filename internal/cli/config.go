package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/existflow/lockin/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
	Long: `Show or change settings in ~/.lockin/config.yaml.

Both remote_url and remote_key must be set for the server to be used.

Examples:
  lockin config                                   # Show settings
  lockin config set remote_url https://lockin.example.com
  lockin config set remote_key <api key>
  lockin config set remote_timeout 5s
  lockin config unset remote_url                  # Back to local only`,
	RunE: runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset [key]",
	Short: "Reset a setting to its default",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}

// configSetters maps config keys to parsers
var configSetters = map[string]func(c *config.Config, v string) error{
	"remote_url": func(c *config.Config, v string) error { c.RemoteURL = strings.TrimRight(v, "/"); return nil },
	"remote_key": func(c *config.Config, v string) error { c.RemoteKey = v; return nil },
	"remote_timeout": func(c *config.Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return fmt.Errorf("invalid duration %q (e.g. 5s, 1m, 0 for none)", v)
		}
		c.RemoteTimeout = d
		return nil
	},
	"db_path": func(c *config.Config, v string) error { c.DBPath = v; return nil },
	"wall_limit": func(c *config.Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			return fmt.Errorf("wall_limit must be 1-200")
		}
		c.WallLimit = n
		return nil
	},
	"log_level": func(c *config.Config, v string) error { c.LogLevel = strings.ToUpper(v); return nil },
	"log_file":  func(c *config.Config, v string) error { c.LogFile = v; return nil },
	"log_console": func(c *config.Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("log_console must be true or false")
		}
		c.LogConsole = b
		return nil
	},
}

func setConfigValue(c *config.Config, key, value string) error {
	set, ok := configSetters[key]
	if !ok {
		keys := make([]string, 0, len(configSetters))
		for k := range configSetters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Errorf("unknown key %q (one of: %s)", key, strings.Join(keys, ", "))
	}
	return set(c, value)
}

func unsetConfigValue(c *config.Config, key string) error {
	defaults := config.DefaultConfig()
	switch key {
	case "remote_url":
		c.RemoteURL = ""
	case "remote_key":
		c.RemoteKey = ""
	case "remote_timeout":
		c.RemoteTimeout = 0
	case "db_path":
		c.DBPath = defaults.DBPath
	case "wall_limit":
		c.WallLimit = defaults.WallLimit
	case "log_level":
		c.LogLevel = defaults.LogLevel
	case "log_file":
		c.LogFile = defaults.LogFile
	case "log_console":
		c.LogConsole = false
	default:
		return setConfigValue(c, key, "")
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	path, _ := config.Path()
	fmt.Printf("Config file: %s\n\n", path)

	key := cfg.RemoteKey
	if len(key) > 4 {
		key = key[:4] + strings.Repeat("*", 8)
	}
	timeout := "none"
	if cfg.RemoteTimeout > 0 {
		timeout = cfg.RemoteTimeout.String()
	}

	fmt.Printf("  remote_url      %s\n", orDash(cfg.RemoteURL))
	fmt.Printf("  remote_key      %s\n", orDash(key))
	fmt.Printf("  remote_timeout  %s\n", timeout)
	fmt.Printf("  db_path         %s\n", cfg.DBPath)
	fmt.Printf("  wall_limit      %d\n", cfg.WallLimit)
	fmt.Printf("  log_level       %s\n", cfg.LogLevel)
	fmt.Printf("  log_file        %s\n", cfg.LogFile)
	fmt.Printf("  log_console     %t\n", cfg.LogConsole)

	if cfg.RemoteConfigured() {
		fmt.Println("\nBackend: server, falling back to this device on failure")
	} else {
		fmt.Println("\nBackend: this device only")
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if err := setConfigValue(cfg, args[0], args[1]); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Printf("✓ %s updated\n", args[0])
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	if err := unsetConfigValue(cfg, args[0]); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Printf("✓ %s reset\n", args[0])
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
