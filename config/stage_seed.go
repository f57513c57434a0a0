package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"ip-tracking-api/models"

	"gopkg.in/yaml.v3"
)

// DefaultStageSeedPath is read by cmd/migrate when no -seed flag is given.
const DefaultStageSeedPath = "config/workflow_stages.yaml"

// StageSeed is the YAML description of the stage graphs and document
// requirements of each submission type.
type StageSeed struct {
	Types []TypeSeed `yaml:"types"`
}

type TypeSeed struct {
	Type         string            `yaml:"type"`
	Stages       []StageSeedItem   `yaml:"stages"`
	Requirements []RequirementSeed `yaml:"requirements"`
}

type StageSeedItem struct {
	Code        string `yaml:"code"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Order       int    `yaml:"order"`
}

// RequirementSeed binds to a stage through Stage (a stage code); empty means
// the requirement applies to the whole type.
type RequirementSeed struct {
	Kind         string   `yaml:"kind"`
	Name         string   `yaml:"name"`
	Stage        string   `yaml:"stage"`
	Required     bool     `yaml:"required"`
	Extensions   []string `yaml:"extensions"`
	DisplayOrder int      `yaml:"display_order"`
}

// ParseStageSeed decodes and validates a seed document.
func ParseStageSeed(data []byte) (*StageSeed, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("stage seed: payload is empty")
	}
	var seed StageSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("stage seed: decode: %w", err)
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// LoadStageSeed reads the seed at path (DefaultStageSeedPath when empty).
func LoadStageSeed(path string) (*StageSeed, error) {
	if path == "" {
		path = DefaultStageSeedPath
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("stage seed: read %s: %w", path, err)
	}
	seed, err := ParseStageSeed(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seed, nil
}

// Validate rejects unknown types, duplicate stage orders or codes, and
// requirements bound to a stage the type does not declare.
func (s *StageSeed) Validate() error {
	seenTypes := map[string]bool{}
	for _, t := range s.Types {
		if !models.IsSubmissionTypeValid(t.Type) {
			return fmt.Errorf("stage seed: unknown submission type %q", t.Type)
		}
		if seenTypes[t.Type] {
			return fmt.Errorf("stage seed: type %q declared twice", t.Type)
		}
		seenTypes[t.Type] = true

		orders := map[int]string{}
		codes := map[string]bool{}
		for _, st := range t.Stages {
			if strings.TrimSpace(st.Code) == "" || strings.TrimSpace(st.Name) == "" {
				return fmt.Errorf("stage seed: %s: stage code and name are required", t.Type)
			}
			if st.Order <= 0 {
				return fmt.Errorf("stage seed: %s: stage %q needs a positive order", t.Type, st.Code)
			}
			if other, ok := orders[st.Order]; ok {
				return fmt.Errorf("stage seed: %s: stages %q and %q share order %d", t.Type, other, st.Code, st.Order)
			}
			if codes[st.Code] {
				return fmt.Errorf("stage seed: %s: stage code %q repeated", t.Type, st.Code)
			}
			orders[st.Order] = st.Code
			codes[st.Code] = true
		}
		for _, req := range t.Requirements {
			if strings.TrimSpace(req.Kind) == "" {
				return fmt.Errorf("stage seed: %s: requirement kind is required", t.Type)
			}
			if req.Stage != "" && !codes[req.Stage] {
				return fmt.Errorf("stage seed: %s: requirement %q refers to unknown stage %q", t.Type, req.Kind, req.Stage)
			}
		}
	}
	return nil
}
