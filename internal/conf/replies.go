package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rs/zerolog/log"

	"github.com/glowreach/reply-engine/internal/biz/usecase"
)

// RepliesConfig contains reply generation configuration loaded from YAML:
// the system prompt and per-intent fallback pools.
type RepliesConfig struct {
	SystemPrompt string                         `yaml:"system_prompt"`
	Pools        map[string]map[string][]string `yaml:"pools"`
}

// LoadRepliesConfig loads the replies configuration from a YAML file. An
// empty path tries the conventional locations; a missing file yields the
// built-in defaults.
func LoadRepliesConfig(configPath string) (*RepliesConfig, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/replies.yaml",
			"./configs/replies.yaml",
			"/etc/reply-engine/replies.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "replies.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	for _, p := range paths {
		if p == "" {
			continue
		}
		if b, err := os.ReadFile(p); err == nil {
			data = b
			loadedPath = p
			break
		}
	}

	if data == nil {
		log.Info().Msg("no replies.yaml found, using defaults")
		return &RepliesConfig{}, nil
	}
	log.Info().Str("path", loadedPath).Msg("loading replies config")

	var config RepliesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse replies.yaml: %w", err)
	}
	return &config, nil
}

// ToReplyPools converts the YAML pool map into the typed reply pools.
// Returns nil when no pools are configured, which selects the defaults.
func (c *RepliesConfig) ToReplyPools() usecase.ReplyPools {
	if c == nil || len(c.Pools) == 0 {
		return nil
	}
	pools := make(usecase.ReplyPools, len(c.Pools))
	for intent, byLang := range c.Pools {
		m := make(map[usecase.Language][]string, len(byLang))
		for lang, replies := range byLang {
			m[usecase.Language(lang)] = replies
		}
		pools[usecase.Intent(intent)] = m
	}
	return pools
}
