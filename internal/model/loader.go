package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadProblemFile reads a YAML problem definition and builds a validated
// Problem from it. Used to seed the server at boot (PROBLEM_FILE).
func LoadProblemFile(path string) (*Problem, ProblemData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ProblemData{}, err
	}
	var data ProblemData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, ProblemData{}, fmt.Errorf("parse %s: %w", path, err)
	}
	p, err := NewProblem(data)
	if err != nil {
		return nil, ProblemData{}, fmt.Errorf("invalid problem %s: %w", path, err)
	}
	return p, data, nil
}
