package pipeline

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ArtifactConfig описывает один тип артефактов: откуда извлекать
// (путевые шаблоны на томе) и каким парсером нормализовать.
type ArtifactConfig struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
	Parser   string   `yaml:"parser"`
}

// Config — конфигурация артефактов пайплайна (artifacts.yaml).
// Порядок определений сохраняется: он задаёт порядок обработки.
type Config struct {
	Artifacts []ArtifactConfig `yaml:"artifacts"`
}

// LoadConfig читает YAML-конфигурацию артефактов.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for i, a := range cfg.Artifacts {
		if a.Name == "" {
			return nil, fmt.Errorf("%s: artifact #%d has no name", path, i)
		}
		if len(a.Patterns) == 0 {
			return nil, fmt.Errorf("%s: artifact %q has no patterns", path, a.Name)
		}
	}
	return &cfg, nil
}

// Filter отбирает артефакты по спискам include/exclude (через
// запятую, без учёта регистра — как у флагов коллектора).
func (c *Config) Filter(include, exclude string) []ArtifactConfig {
	inc := splitNames(include)
	exc := splitNames(exclude)

	var out []ArtifactConfig
	for _, a := range c.Artifacts {
		name := strings.ToLower(a.Name)
		if exc[name] {
			continue
		}
		if len(inc) > 0 && !inc[name] {
			continue
		}
		out = append(out, a)
	}
	return out
}

func splitNames(s string) map[string]bool {
	out := make(map[string]bool)
	for _, name := range strings.Split(s, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			out[name] = true
		}
	}
	return out
}
