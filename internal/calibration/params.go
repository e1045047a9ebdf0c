package calibration

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/model"
)

// SaveParameter writes p as indented JSON.
func SaveParameter(path string, p model.Parameter) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal parameter: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write parameter file: %w", err)
	}
	return nil
}

// LoadParameter reads a parameter file written by SaveParameter.
func LoadParameter(path string) (model.Parameter, error) {
	var p model.Parameter
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read parameter file: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse parameter file: %w", err)
	}
	return p, nil
}
