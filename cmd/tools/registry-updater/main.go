// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"propguard-workers/internal/common/validation"
	"propguard-workers/pkg/registry"
)

const defaultPath = "configs/activity-registry.json"

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "add":
		err = runAdd(os.Args[2:])
	case "update":
		err = runUpdate(os.Args[2:])
	case "schema":
		err = runSchema(os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	default:
		help()
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	path := fs.String("path", defaultPath, "Path to registry file")
	id := fs.String("id", "", "Activity ID (e.g., score-listings)")
	displayName := fs.String("displayName", "", "Display name")
	description := fs.String("description", "", "Description")
	category := fs.String("category", "", "Category (search, data-access, profile, communication)")
	taskType := fs.String("taskType", "", "Zeebe task type")
	version := fs.String("version", "1.0.0", "Version")
	status := fs.String("status", "planned", "Implementation status (planned, in-progress, completed, verified)")
	_ = fs.Parse(args)

	if *id == "" || *displayName == "" || *category == "" || *taskType == "" {
		fs.Usage()
		return fmt.Errorf("id, displayName, category and taskType are required")
	}

	reg, err := loadOrCreate(*path)
	if err != nil {
		return err
	}
	if _, exists := reg.FindByTaskType(*taskType); exists {
		return fmt.Errorf("task type %s is already registered", *taskType)
	}

	reg.Upsert(registry.Activity{
		ID:                   *id,
		DisplayName:          *displayName,
		Description:          *description,
		Category:             *category,
		Version:              *version,
		TaskType:             *taskType,
		ImplementationStatus: *status,
		InputSchema:          map[string]interface{}{"type": "object"},
		OutputSchema:         map[string]interface{}{"type": "object"},
		ErrorCodes:           []string{},
		Timeout:              "30s",
		Workflows:            []string{},
		Tags:                 []string{},
	}, time.Now())

	if err := os.MkdirAll(filepath.Dir(*path), 0o755); err != nil {
		return err
	}
	if err := reg.Save(*path); err != nil {
		return err
	}
	fmt.Printf("Added activity: %s\n", *taskType)
	return nil
}

func runUpdate(args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	path := fs.String("path", defaultPath, "Path to registry file")
	taskType := fs.String("taskType", "", "Task type to update")
	field := fs.String("field", "", "Field to update (status, version, displayName, description, category, timeout, retries)")
	value := fs.String("value", "", "New value for the field")
	_ = fs.Parse(args)

	if *taskType == "" || *field == "" || *value == "" {
		fs.Usage()
		return fmt.Errorf("taskType, field and value are required")
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	a, ok := reg.FindByTaskType(*taskType)
	if !ok {
		return fmt.Errorf("task type %s not found", *taskType)
	}

	updated := *a
	switch *field {
	case "status":
		updated.ImplementationStatus = *value
	case "version":
		updated.Version = *value
	case "displayName":
		updated.DisplayName = *value
	case "description":
		updated.Description = *value
	case "category":
		updated.Category = *value
	case "timeout":
		updated.Timeout = *value
		if _, err := updated.TimeoutDuration(); err != nil {
			return err
		}
	case "retries":
		n, err := strconv.Atoi(*value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid retries value %q", *value)
		}
		updated.Retries = n
	default:
		return fmt.Errorf("unknown field: %s", *field)
	}

	reg.Upsert(updated, time.Now())
	if err := reg.Save(*path); err != nil {
		return err
	}
	fmt.Printf("Updated %s: %s = %s\n", *taskType, *field, *value)
	return nil
}

// runSchema replaces an activity's input schema with the JSON document in
// -file after checking that it compiles.
func runSchema(args []string) error {
	fs := flag.NewFlagSet("schema", flag.ExitOnError)
	path := fs.String("path", defaultPath, "Path to registry file")
	taskType := fs.String("taskType", "", "Task type to update")
	file := fs.String("file", "", "JSON schema file")
	_ = fs.Parse(args)

	if *taskType == "" || *file == "" {
		fs.Usage()
		return fmt.Errorf("taskType and file are required")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	var schema map[string]interface{}
	if err := json.Unmarshal(data, &schema); err != nil {
		return fmt.Errorf("parse %s: %w", *file, err)
	}
	if err := validation.CheckSchema(schema); err != nil {
		return err
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	a, ok := reg.FindByTaskType(*taskType)
	if !ok {
		return fmt.Errorf("task type %s not found", *taskType)
	}
	updated := *a
	updated.InputSchema = schema
	reg.Upsert(updated, time.Now())
	if err := reg.Save(*path); err != nil {
		return err
	}
	fmt.Printf("Replaced input schema of %s\n", *taskType)
	return nil
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	path := fs.String("path", defaultPath, "Path to registry file")
	_ = fs.Parse(args)

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if len(reg.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := map[string]bool{}
	for _, a := range reg.Activities {
		if a.ID == "" {
			return fmt.Errorf("activity %s missing required field: id", a.TaskType)
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate activity id: %s", a.ID)
		}
		ids[a.ID] = true

		if a.DisplayName == "" || a.Category == "" {
			return fmt.Errorf("activity %s missing displayName or category", a.ID)
		}
		if _, err := a.TimeoutDuration(); err != nil {
			return err
		}
		if len(a.InputSchema) > 0 {
			if err := validation.CheckSchema(a.InputSchema); err != nil {
				return fmt.Errorf("activity %s input schema: %w", a.ID, err)
			}
		}
		if len(a.OutputSchema) > 0 {
			if err := validation.CheckSchema(a.OutputSchema); err != nil {
				return fmt.Errorf("activity %s output schema: %w", a.ID, err)
			}
		}
	}

	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

func loadOrCreate(path string) (*registry.ActivityRegistry, error) {
	reg, err := registry.LoadRegistry(path)
	if os.IsNotExist(err) {
		return &registry.ActivityRegistry{Version: "1.0.0", Activities: []registry.Activity{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	return reg, nil
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  add       Add a new activity to the registry
  update    Update a field of an existing activity
  schema    Replace an activity's input schema from a JSON file
  validate  Validate the registry file and compile every schema
  help      Show this help message

Examples:
  registry-updater add -id score-listings -displayName "Score Listings" -category search -taskType score-listings
  registry-updater update -taskType score-listings -field status -value completed
  registry-updater schema -taskType score-listings -file schemas/score-listings.json
  registry-updater validate -path configs/activity-registry.json`)
}
