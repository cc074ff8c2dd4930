// cmd/tools/worker-generator/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"agrocredit-workers/pkg/registry"
)

// WorkerData holds data for templates
type WorkerData struct {
	Name            string
	PackageName     string
	TaskType        string
	Description     string
	InputFields     string
	OutputFields    string
	InputSchemaJSON string
	ErrorCodes      []string
	NeedsTime       bool
}

func newWorkerData(a registry.Activity) (WorkerData, error) {
	schema, err := json.MarshalIndent(a.InputSchema, "", "  ")
	if err != nil {
		return WorkerData{}, fmt.Errorf("encode input schema: %w", err)
	}
	data := WorkerData{
		Name:            a.DisplayName,
		PackageName:     packageName(a.TaskType),
		TaskType:        a.TaskType,
		Description:     a.Description,
		InputFields:     generateStructFields(schemaProperties(a.InputSchema)),
		OutputFields:    generateStructFields(schemaProperties(a.OutputSchema)),
		InputSchemaJSON: string(schema),
		ErrorCodes:      a.ErrorCodes,
	}
	data.NeedsTime = strings.Contains(data.InputFields+data.OutputFields, "time.Time")
	return data, nil
}

// packageName turns a task type such as "run-partner-match" into "runpartnermatch".
func packageName(taskType string) string {
	return strings.ToLower(strings.ReplaceAll(taskType, "-", ""))
}

func schemaProperties(schema map[string]interface{}) map[string]interface{} {
	if props, ok := schema["properties"].(map[string]interface{}); ok {
		return props
	}
	return map[string]interface{}{}
}

func goTypeFromJSONType(jsonType, jsonFormat interface{}) string {
	switch jsonType {
	case "string":
		if jsonFormat == "date-time" {
			return "time.Time"
		}
		return "string"
	case "integer":
		return "int"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "object":
		return "map[string]interface{}"
	case "array":
		return "[]interface{}"
	default:
		return "interface{}"
	}
}

// generateStructFields renders one struct field per schema property, sorted by name.
func generateStructFields(properties map[string]interface{}) string {
	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]string, 0, len(names))
	for _, name := range names {
		details, _ := properties[name].(map[string]interface{})
		fields = append(fields, fmt.Sprintf("\t%s %s `json:\"%s\"`",
			upperFirst(name), goTypeFromJSONType(details["type"], details["format"]), name))
	}
	return strings.Join(fields, "\n")
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToUpper(s[:1]) + s[1:]
	return strings.ReplaceAll(s, "Id", "ID")
}

func rawString(s string) string {
	return "`" + s + "`"
}

const configTemplate = `package {{ .PackageName }}

import (
	"fmt"
	"time"

	"agrocredit-workers/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	MaxRetries    int
}

func DefaultConfig() *Config {
	return &Config{Enabled: true, MaxJobsActive: 5, Timeout: 30 * time.Second, MaxRetries: 3}
}

func FromAppConfig(cfg *config.Config) *Config {
	if cfg == nil {
		return DefaultConfig()
	}
	wc := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		Enabled:       wc.Enabled,
		MaxJobsActive: wc.MaxJobsActive,
		Timeout:       config.GetDuration(wc.Timeout),
		MaxRetries:    wc.MaxRetries,
	}
}

func (c *Config) Validate() error {
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max jobs active must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}
`

const modelsTemplate = `package {{ .PackageName }}
{{ if .NeedsTime }}
import "time"
{{ end }}
type Input struct {
{{ .InputFields }}
}

type Output struct {
{{ .OutputFields }}
}
`

const handlerTemplate = `package {{ .PackageName }}

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agrocredit-workers/internal/common/errors"
	"agrocredit-workers/internal/common/logger"
	"agrocredit-workers/internal/common/metrics"
	"agrocredit-workers/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "{{ .TaskType }}"

const inputSchemaJSON = {{ rawString .InputSchemaJSON }}

var inputSchema = mustSchema(inputSchemaJSON)

func mustSchema(raw string) *validation.Schema {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		panic(err)
	}
	return validation.MustCompileSchema(m)
}

// Handler serves {{ .Name }} jobs. {{ .Description }}
// Error codes: {{ range $i, $c := .ErrorCodes }}{{ if $i }}, {{ end }}{{ $c }}{{ end }}
type Handler struct {
	config       *Config
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(cfg *Config, log logger.Logger) (*Handler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{config: cfg, logger: log, errorHandler: errors.NewErrorHandler(log)}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err == nil {
		var output *Output
		if output, err = h.Execute(ctx, input); err == nil {
			err = h.completeJob(ctx, client, job, output)
			if err == nil {
				metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
				metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
				return
			}
		}
	}

	stdErr := errors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return nil, fmt.Errorf("%s: not implemented", TaskType)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}
	if result := inputSchema.ValidateInput(variables); !result.Valid {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("validation errors: %v", result.GetErrorMessages()))
	}

	var input Input
	if err := job.GetVariablesAs(&input); err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}
	return &input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("create complete job command: %w", err)
	}
	_, err = request.Send(ctx)
	return err
}
`

const testTemplate = `package {{ .PackageName }}

import (
	"encoding/json"
	"testing"

	"agrocredit-workers/internal/common/errors"
	"agrocredit-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createMockJob(variables map[string]interface{}) entities.Job {
	raw, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Type: TaskType, Retries: 3, Variables: string(raw)}}
}

func TestHandler_ParseInput_RejectsEmptyVariables(t *testing.T) {
	h, err := NewHandler(nil, logger.NewTestLogger(t))
	require.NoError(t, err)

	_, err = h.parseInput(createMockJob(map[string]interface{}{}))
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
}
`

func main() {
	taskType := flag.String("task", "", "Task type from the registry (e.g. run-partner-match)")
	outputDir := flag.String("output", "./internal/workers/", "Output directory for the generated worker")
	registryPath := flag.String("registry", "configs/activity-registry.json", "Path to the activity registry JSON file")
	force := flag.Bool("force", false, "Overwrite existing files")
	flag.Parse()

	if *taskType == "" {
		fmt.Println("Usage: worker-generator --task <task-type> [--output <dir>] [--registry <path>] [--force]")
		os.Exit(1)
	}

	reg, err := registry.LoadRegistry(*registryPath)
	if err != nil {
		fmt.Printf("Error loading registry from %s: %v\n", *registryPath, err)
		os.Exit(1)
	}
	activity, ok := reg.Find(*taskType)
	if !ok {
		fmt.Printf("Task type '%s' not found in registry %s\n", *taskType, *registryPath)
		os.Exit(1)
	}

	data, err := newWorkerData(activity)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	workerDir := filepath.Join(*outputDir, strings.ToLower(activity.Category), activity.TaskType)
	if err := os.MkdirAll(workerDir, 0o755); err != nil {
		fmt.Printf("Error creating directory: %v\n", err)
		os.Exit(1)
	}

	funcs := template.FuncMap{"rawString": rawString}
	files := []struct{ name, tmpl string }{
		{"config.go", configTemplate},
		{"models.go", modelsTemplate},
		{"handler.go", handlerTemplate},
		{"handler_test.go", testTemplate},
	}
	for _, f := range files {
		path := filepath.Join(workerDir, f.name)
		if err := render(path, f.tmpl, funcs, data, *force); err != nil {
			fmt.Printf("Error generating %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Generated %s\n", path)
	}

	fmt.Printf("\nWorker scaffold generated at %s\n", workerDir)
	fmt.Println("Next: implement Execute, register the worker in cmd/worker-manager/main.go and add it to configs/config.yaml")
}

func render(path, tmplStr string, funcs template.FuncMap, data WorkerData, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("file exists (use --force to overwrite)")
	}

	tmpl, err := template.New(filepath.Base(path)).Funcs(funcs).Parse(tmplStr)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return tmpl.Execute(file, data)
}
