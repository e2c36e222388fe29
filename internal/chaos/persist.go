package chaos

import (
	"os"
	"path/filepath"
	"strings"
)

// OutputPath templates a chaos_output filename with the model name,
// matching the %s-style template named in §4.6 Persistence.
func OutputPath(outputDir, template, modelName string) string {
	name := strings.ReplaceAll(template, "%s", modelName)
	return filepath.Join(outputDir, name)
}

// Persist writes plan as YAML to path, creating its parent directory
// if needed.
func Persist(plan Plan, path string) error {
	data, err := plan.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads a plan from a fixed path (task.args.plan or
// config.chaos_plan), used verbatim per §4.6 Persistence.
func Load(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, err
	}
	return ParsePlan(data)
}
