package main

import (
	"strings"

	"github.com/go-ini/ini"
)

const (
	configSection     = "resolverefs"
	userConfigSection = "resolverefs-user"
)

// Config holds the game and project layout settings. The zero value is not
// usable; call DefaultConfig or LoadConfig.
type Config struct {
	AppID        string
	ValueName    string
	RegistryKeys []string
	ProductDir   string
	BinDir       string
	SolutionExt  string
	ProjectExt   string
	UserExt      string

	// InstallPath skips the registry lookup when set.
	InstallPath string

	DisableCopyLocal bool
	RemoveHintPath   bool
}

// DefaultConfig returns the settings for a Steam install of Space Engineers.
func DefaultConfig() Config {
	return Config{
		AppID:     "Steam App 244850",
		ValueName: "InstallLocation",
		RegistryKeys: []string{
			`Software\Microsoft\Windows\CurrentVersion\Uninstall`,
			`Software\Wow6432Node\Microsoft\Windows\CurrentVersion\Uninstall`,
		},
		ProductDir:  "SpaceEngineers",
		BinDir:      "Bin64",
		SolutionExt: ".sln",
		ProjectExt:  ".csproj",
		UserExt:     ".user",
	}
}

// LoadConfig reads the shared and per-user ini files on top of the defaults.
// Missing files are not an error.
func LoadConfig(sharedPath, userPath string) (Config, error) {
	c := DefaultConfig()

	cfg, err := ini.LooseLoad(sharedPath, userPath)
	if err != nil {
		return c, err
	}

	section := cfg.Section(configSection)
	c.AppID = section.Key("app_id").MustString(c.AppID)
	c.ValueName = section.Key("value_name").MustString(c.ValueName)
	if keys := section.Key("registry_keys").Strings(","); len(keys) > 0 {
		c.RegistryKeys = keys
	}
	c.ProductDir = section.Key("product_dir").MustString(c.ProductDir)
	c.BinDir = section.Key("bin_dir").MustString(c.BinDir)
	c.SolutionExt = section.Key("solution_ext").MustString(c.SolutionExt)
	c.ProjectExt = section.Key("project_ext").MustString(c.ProjectExt)
	c.UserExt = section.Key("user_ext").MustString(c.UserExt)
	c.DisableCopyLocal = section.Key("disable_copy_local").MustBool(false)
	c.RemoveHintPath = section.Key("remove_hint_path").MustBool(false)

	user := cfg.Section(userConfigSection)
	c.InstallPath = strings.TrimSpace(user.Key("install_path").String())

	return c, nil
}

// KeyPaths returns the registry key paths to try, in priority order.
func (c Config) KeyPaths() []string {
	paths := make([]string, 0, len(c.RegistryKeys))
	for _, k := range c.RegistryKeys {
		k = strings.TrimRight(strings.TrimSpace(k), `\`)
		if k == "" {
			continue
		}
		paths = append(paths, k+`\`+c.AppID)
	}
	return paths
}
