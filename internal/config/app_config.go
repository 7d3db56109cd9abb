// Package config loads excerpt defaults from the global and local configuration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/tyemirov/excerpt/internal/utils"
)

const configurationType = "yaml"

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds configuration defaults for every command.
type ApplicationConfiguration struct {
	Excerpt ExcerptConfiguration `mapstructure:"excerpt"`
	Tokens  TokenConfiguration   `mapstructure:"tokens"`
	GitHub  GitHubConfiguration  `mapstructure:"github"`
	Server  ServerConfiguration  `mapstructure:"server"`
}

// ExcerptConfiguration defines rendering defaults shared by lines, entity and batch.
type ExcerptConfiguration struct {
	Format      string `mapstructure:"format"`
	Budget      *int   `mapstructure:"budget"`
	Around      *int   `mapstructure:"around"`
	Offset      *int   `mapstructure:"offset"`
	LineNumbers *bool  `mapstructure:"line_numbers"`
	Language    string `mapstructure:"language"`
	Clipboard   *bool  `mapstructure:"clipboard"`
}

// TokenConfiguration controls token counting defaults.
type TokenConfiguration struct {
	Enabled *bool  `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// GitHubConfiguration selects a GitHub repository as the document source.
type GitHubConfiguration struct {
	Owner      string `mapstructure:"owner"`
	Repository string `mapstructure:"repository"`
	Reference  string `mapstructure:"reference"`
	Token      string `mapstructure:"token"`
	APIBase    string `mapstructure:"api_base"`
	// WebBase is the host used for deep links, for GitHub Enterprise.
	WebBase string `mapstructure:"web_base"`
	// Timeout bounds each API request, e.g. "45s".
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServerConfiguration defines defaults for the serve command.
type ServerConfiguration struct {
	Address string `mapstructure:"address"`
}

// LoadApplicationConfiguration loads configuration from global and local files.
// Values in the local file override the global file field by field.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	if localPath != "" {
		localConfig, loadErr := loadConfigurationFromPath(localPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(localConfig)
	}

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		if workingDirectory == "" {
			absolute, err := filepath.Abs(explicitPath)
			if err != nil {
				return "", fmt.Errorf("resolve configuration path %s: %w", explicitPath, err)
			}
			return absolute, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	if workingDirectory == "" {
		return "", nil
	}
	return filepath.Join(workingDirectory, utils.ConfigFileName), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType(configurationType)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Excerpt = result.Excerpt.merge(override.Excerpt)
	result.Tokens = result.Tokens.merge(override.Tokens)
	result.GitHub = result.GitHub.merge(override.GitHub)
	if override.Server.Address != "" {
		result.Server.Address = override.Server.Address
	}
	return result
}

func (config ExcerptConfiguration) merge(override ExcerptConfiguration) ExcerptConfiguration {
	result := config
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.Budget != nil {
		result.Budget = cloneInt(override.Budget)
	}
	if override.Around != nil {
		result.Around = cloneInt(override.Around)
	}
	if override.Offset != nil {
		result.Offset = cloneInt(override.Offset)
	}
	if override.LineNumbers != nil {
		result.LineNumbers = cloneBool(override.LineNumbers)
	}
	if override.Language != "" {
		result.Language = override.Language
	}
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	return result
}

func (config TokenConfiguration) merge(override TokenConfiguration) TokenConfiguration {
	result := config
	if override.Enabled != nil {
		result.Enabled = cloneBool(override.Enabled)
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	return result
}

func (config GitHubConfiguration) merge(override GitHubConfiguration) GitHubConfiguration {
	result := config
	if override.Owner != "" {
		result.Owner = override.Owner
	}
	if override.Repository != "" {
		result.Repository = override.Repository
	}
	if override.Reference != "" {
		result.Reference = override.Reference
	}
	if override.Token != "" {
		result.Token = override.Token
	}
	if override.APIBase != "" {
		result.APIBase = override.APIBase
	}
	if override.WebBase != "" {
		result.WebBase = override.WebBase
	}
	if override.Timeout > 0 {
		result.Timeout = override.Timeout
	}
	return result
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
