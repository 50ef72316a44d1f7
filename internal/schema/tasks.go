package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadTasks reads a task list from a .json, .yaml or .yml file and applies
// the harness defaults to every task.
func LoadTasks(path string) ([]Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	var tasks []Task
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &tasks); err != nil {
			return nil, fmt.Errorf("load tasks: parse yaml %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &tasks); err != nil {
			return nil, fmt.Errorf("load tasks: parse json %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("load tasks: unsupported file extension %q", ext)
	}

	for i := range tasks {
		if tasks[i].TaskID == "" {
			return nil, fmt.Errorf("load tasks: task %d has no task_id", i)
		}
		tasks[i].ApplyDefaults()
	}
	return tasks, nil
}
