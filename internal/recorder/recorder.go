// Package recorder captures the chain-of-thought trail of one mission
// run — the Brain task decisions, Nerves action sequences, and the
// analyzed errors at each layer — in the schema-first shape used to
// train the Brain/Nerves/Analysis roles later.
//
// Grounded on
// _examples/original_source/infrastructure/storage/cot_data_recorder.py
// (CoTDataRecorder/BatchCoTDataRecorder: start/record/save_and_reset
// lifecycle, training-data split by role) and
// _examples/original_source/config/data_schema.py (CoTDataPoint field
// shape). The concurrency pattern for running several tasks' recorders
// side by side follows the teacher's errgroup usage in
// internal/campaign/intelligence_gatherer.go.
package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BrainStep is one successful Brain-layer decision: given an
// environment snapshot, which task chain was chosen (and why, if the
// chain changed from the previous step).
type BrainStep struct {
	Env          string   `json:"Env"`
	ChainOfTask  []string `json:"ChainOfTask"`
	ChangeReason string   `json:"ChangeReason,omitempty"`
}

// NervesStep is one successful Nerves-layer decision: given a task and
// an environment snapshot, which action chain carried it out.
type NervesStep struct {
	Task          string   `json:"Task"`
	Env           string   `json:"Env"`
	ChainOfAction []string `json:"ChainOfAction"`
}

// BrainError is a Brain-layer failure, annotated with the Analysis
// role's explanation of what went wrong.
type BrainError struct {
	Env          string   `json:"Env"`
	ChainOfTask  []string `json:"ChainOfTask"`
	ErrorMessage string   `json:"ErrorMessage"`
}

// NervesError is a Nerves-layer failure, annotated the same way.
type NervesError struct {
	Task          string   `json:"Task"`
	Env           string   `json:"Env"`
	ChainOfAction []string `json:"ChainOfAction"`
	ErrorMessage  string   `json:"ErrorMessage"`
}

// DataPoint is one mission's full CoT trail, kept free of any
// execution-status or version metadata so it stays directly usable as
// training data.
type DataPoint struct {
	MissionID string `json:"mission_id"`
	Mission   string `json:"mission"`
	Domain    string `json:"domain"`

	Brain       []BrainStep   `json:"Brain"`
	Nerves      []NervesStep  `json:"Nerves"`
	BrainError  []BrainError  `json:"BrainError"`
	NervesError []NervesError `json:"NervesError"`
}

// Statistics summarizes a DataPoint's step and error counts.
type Statistics struct {
	Mission      string
	MissionID    string
	BrainSteps   int
	NervesSteps  int
	BrainErrors  int
	NervesErrors int
	TotalSteps   int
	TotalErrors  int
}

// TrainingSplit is a DataPoint's correct-step/error data, separated by
// which role consumes it: Brain and Nerves each train only on their
// own correct steps, while Analysis trains on every annotated error.
type TrainingSplit struct {
	Brain    BrainTrainingData    `json:"brain_data"`
	Nerves   NervesTrainingData   `json:"nerves_data"`
	Analysis AnalysisTrainingData `json:"analysis_data"`
}

type BrainTrainingData struct {
	Mission string      `json:"mission"`
	Domain  string      `json:"domain"`
	Steps   []BrainStep `json:"steps"`
}

type NervesTrainingData struct {
	Mission string       `json:"mission"`
	Domain  string       `json:"domain"`
	Steps   []NervesStep `json:"steps"`
}

type AnalysisTrainingData struct {
	BrainErrors  []BrainError  `json:"brain_errors"`
	NervesErrors []NervesError `json:"nerves_errors"`
}

// Recorder accumulates one mission's DataPoint and writes it to disk.
// Not safe for concurrent use by itself; BatchRecorder gives each
// mission its own Recorder instance.
type Recorder struct {
	outputDir string
	current   *DataPoint
}

// New constructs a Recorder writing JSON data points under outputDir.
func New(outputDir string) (*Recorder, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("recorder: create output dir: %w", err)
	}
	return &Recorder{outputDir: outputDir}, nil
}

// StartNewRecording begins a fresh DataPoint for mission in domain,
// returning its generated mission ID.
func (r *Recorder) StartNewRecording(mission, domain string) string {
	r.current = &DataPoint{
		MissionID:   uuid.NewString(),
		Mission:     mission,
		Domain:      domain,
		Brain:       []BrainStep{},
		Nerves:      []NervesStep{},
		BrainError:  []BrainError{},
		NervesError: []NervesError{},
	}
	return r.current.MissionID
}

// RecordBrainSuccess appends a successful Brain-layer step. changeReason
// is empty unless the chosen task chain differs from the prior step.
func (r *Recorder) RecordBrainSuccess(env string, chainOfTask []string, changeReason string) error {
	if r.current == nil {
		return fmt.Errorf("recorder: StartNewRecording must be called first")
	}
	r.current.Brain = append(r.current.Brain, BrainStep{
		Env:          env,
		ChainOfTask:  chainOfTask,
		ChangeReason: changeReason,
	})
	return nil
}

// RecordNervesSuccess appends a successful Nerves-layer step.
func (r *Recorder) RecordNervesSuccess(task, env string, chainOfAction []string) error {
	if r.current == nil {
		return fmt.Errorf("recorder: StartNewRecording must be called first")
	}
	r.current.Nerves = append(r.current.Nerves, NervesStep{
		Task:          task,
		Env:           env,
		ChainOfAction: chainOfAction,
	})
	return nil
}

// RecordBrainError appends a Brain-layer failure, errorMessage already
// analyzed by the Analysis role.
func (r *Recorder) RecordBrainError(env string, chainOfTask []string, errorMessage string) error {
	if r.current == nil {
		return fmt.Errorf("recorder: StartNewRecording must be called first")
	}
	r.current.BrainError = append(r.current.BrainError, BrainError{
		Env:          env,
		ChainOfTask:  chainOfTask,
		ErrorMessage: errorMessage,
	})
	return nil
}

// RecordNervesError appends a Nerves-layer failure.
func (r *Recorder) RecordNervesError(task, env string, chainOfAction []string, errorMessage string) error {
	if r.current == nil {
		return fmt.Errorf("recorder: StartNewRecording must be called first")
	}
	r.current.NervesError = append(r.current.NervesError, NervesError{
		Task:          task,
		Env:           env,
		ChainOfAction: chainOfAction,
		ErrorMessage:  errorMessage,
	})
	return nil
}

// CurrentData returns the in-progress DataPoint, or nil if no
// recording has started.
func (r *Recorder) CurrentData() *DataPoint { return r.current }

// Statistics reports the in-progress DataPoint's step/error counts.
func (r *Recorder) Statistics() Statistics {
	if r.current == nil {
		return Statistics{}
	}
	d := r.current
	return Statistics{
		Mission:      d.Mission,
		MissionID:    d.MissionID,
		BrainSteps:   len(d.Brain),
		NervesSteps:  len(d.Nerves),
		BrainErrors:  len(d.BrainError),
		NervesErrors: len(d.NervesError),
		TotalSteps:   len(d.Brain) + len(d.Nerves),
		TotalErrors:  len(d.BrainError) + len(d.NervesError),
	}
}

// SaveCurrentData writes the in-progress DataPoint to filename under
// the output dir (auto-generated from the mission ID if empty) and
// returns the path written.
func (r *Recorder) SaveCurrentData(filename string) (string, error) {
	if r.current == nil {
		return "", fmt.Errorf("recorder: nothing to save")
	}
	if filename == "" {
		short := r.current.MissionID
		if len(short) > 8 {
			short = short[:8]
		}
		filename = fmt.Sprintf("cot_%s.json", short)
	}
	path := filepath.Join(r.outputDir, filename)
	data, err := json.MarshalIndent(r.current, "", "  ")
	if err != nil {
		return "", fmt.Errorf("recorder: marshal data point: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("recorder: write data point: %w", err)
	}
	return path, nil
}

// SaveAndReset saves the in-progress DataPoint and clears it so the
// Recorder is ready for a new mission.
func (r *Recorder) SaveAndReset(filename string) (string, error) {
	path, err := r.SaveCurrentData(filename)
	if err != nil {
		return "", err
	}
	r.current = nil
	return path, nil
}

// ExportTrainingData splits the in-progress DataPoint into per-role
// training files under outputDir (a "training_data" subdirectory of
// the recorder's output dir if empty) and returns their paths.
func (r *Recorder) ExportTrainingData(outputDir string) (brainPath, nervesPath, analysisPath string, err error) {
	if r.current == nil {
		return "", "", "", fmt.Errorf("recorder: nothing to export")
	}
	if outputDir == "" {
		outputDir = filepath.Join(r.outputDir, "training_data")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", "", "", fmt.Errorf("recorder: create training data dir: %w", err)
	}

	split := trainingSplit(r.current)
	short := r.current.MissionID
	if len(short) > 8 {
		short = short[:8]
	}

	brainPath = filepath.Join(outputDir, fmt.Sprintf("brain_%s.json", short))
	nervesPath = filepath.Join(outputDir, fmt.Sprintf("nerves_%s.json", short))
	analysisPath = filepath.Join(outputDir, fmt.Sprintf("analysis_%s.json", short))

	if err := writeJSON(brainPath, split.Brain); err != nil {
		return "", "", "", err
	}
	if err := writeJSON(nervesPath, split.Nerves); err != nil {
		return "", "", "", err
	}
	if err := writeJSON(analysisPath, split.Analysis); err != nil {
		return "", "", "", err
	}
	return brainPath, nervesPath, analysisPath, nil
}

// ExportFile loads a single previously-saved DataPoint JSON file from
// disk and exports its training split, matching CoTDataPoint's own
// load_from_file building block (used here so "cotsmith export" can
// walk an arbitrary directory of past recordings without depending on
// a BatchRecorder's in-process completed-task bookkeeping).
func ExportFile(path, outputDir string) (brainPath, nervesPath, analysisPath string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", "", fmt.Errorf("recorder: read %s: %w", path, err)
	}
	var point DataPoint
	if err := json.Unmarshal(data, &point); err != nil {
		return "", "", "", fmt.Errorf("recorder: parse %s: %w", path, err)
	}
	r := &Recorder{outputDir: outputDir, current: &point}
	return r.ExportTrainingData(outputDir)
}

func trainingSplit(d *DataPoint) TrainingSplit {
	return TrainingSplit{
		Brain: BrainTrainingData{
			Mission: d.Mission,
			Domain:  d.Domain,
			Steps:   d.Brain,
		},
		Nerves: NervesTrainingData{
			Mission: d.Mission,
			Domain:  d.Domain,
			Steps:   d.Nerves,
		},
		Analysis: AnalysisTrainingData{
			BrainErrors:  d.BrainError,
			NervesErrors: d.NervesError,
		},
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("recorder: marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("recorder: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// completedTask is one BatchRecorder task's final bookkeeping entry.
type completedTask struct {
	TaskID     string
	Mission    string
	FilePath   string
	Statistics Statistics
}

// BatchRecorder fans a batch run's missions out across independent
// Recorder instances, one subdirectory per task, so concurrent tasks
// never interleave writes.
type BatchRecorder struct {
	outputDir string

	mu        sync.Mutex
	active    map[string]*Recorder
	completed []completedTask
}

// NewBatch constructs a BatchRecorder writing each task's data under
// its own subdirectory of outputDir.
func NewBatch(outputDir string) (*BatchRecorder, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("recorder: create batch output dir: %w", err)
	}
	return &BatchRecorder{outputDir: outputDir, active: make(map[string]*Recorder)}, nil
}

// StartTask begins recording for taskID and returns its dedicated
// Recorder for the caller to record steps against.
func (b *BatchRecorder) StartTask(taskID, mission, domain string) (*Recorder, error) {
	rec, err := New(filepath.Join(b.outputDir, taskID))
	if err != nil {
		return nil, err
	}
	rec.StartNewRecording(mission, domain)

	b.mu.Lock()
	b.active[taskID] = rec
	b.mu.Unlock()
	return rec, nil
}

// CompleteTask saves and retires taskID's recorder, moving it from
// active into the completed-tasks ledger.
func (b *BatchRecorder) CompleteTask(taskID, filename string) (string, error) {
	b.mu.Lock()
	rec, ok := b.active[taskID]
	b.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("recorder: task %q is not active", taskID)
	}

	stats := rec.Statistics()
	path, err := rec.SaveAndReset(filename)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	delete(b.active, taskID)
	b.completed = append(b.completed, completedTask{
		TaskID:     taskID,
		Mission:    stats.Mission,
		FilePath:   path,
		Statistics: stats,
	})
	b.mu.Unlock()

	return path, nil
}

// TaskRecorder returns taskID's active recorder, if any.
func (b *BatchRecorder) TaskRecorder(taskID string) (*Recorder, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.active[taskID]
	return rec, ok
}

// BatchSummary reports aggregate counts across a batch run.
type BatchSummary struct {
	TotalTasks     int
	CompletedTasks int
	ActiveTasks    int
	TotalSteps     int
	TotalErrors    int
	SuccessRate    float64
}

// Summary computes the batch's aggregate statistics.
func (b *BatchRecorder) Summary() BatchSummary {
	b.mu.Lock()
	defer b.mu.Unlock()

	summary := BatchSummary{
		CompletedTasks: len(b.completed),
		ActiveTasks:    len(b.active),
	}
	summary.TotalTasks = summary.CompletedTasks + summary.ActiveTasks

	for _, task := range b.completed {
		summary.TotalSteps += task.Statistics.TotalSteps
		summary.TotalErrors += task.Statistics.TotalErrors
	}
	total := summary.TotalSteps + summary.TotalErrors
	if total > 0 {
		summary.SuccessRate = float64(summary.TotalSteps) / float64(total) * 100
	} else {
		summary.SuccessRate = 100
	}
	return summary
}

// ExportAllTrainingData exports every completed task's training split
// concurrently, bounded by the caller's context, mirroring the
// teacher's errgroup fan-out for independent per-item work.
func (b *BatchRecorder) ExportAllTrainingData(ctx context.Context, outputDir string) (brainFiles, nervesFiles, analysisFiles []string, err error) {
	if outputDir == "" {
		outputDir = filepath.Join(b.outputDir, "all_training_data")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("recorder: create export dir: %w", err)
	}

	b.mu.Lock()
	tasks := make([]completedTask, len(b.completed))
	copy(tasks, b.completed)
	b.mu.Unlock()

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		task := task
		eg.Go(func() error {
			if egCtx.Err() != nil {
				return egCtx.Err()
			}
			data, readErr := os.ReadFile(task.FilePath)
			if readErr != nil {
				return fmt.Errorf("recorder: read %s: %w", task.FilePath, readErr)
			}
			var point DataPoint
			if unmarshalErr := json.Unmarshal(data, &point); unmarshalErr != nil {
				return fmt.Errorf("recorder: parse %s: %w", task.FilePath, unmarshalErr)
			}

			tmp := &Recorder{outputDir: outputDir, current: &point}
			brainPath, nervesPath, analysisPath, exportErr := tmp.ExportTrainingData(outputDir)
			if exportErr != nil {
				return exportErr
			}

			mu.Lock()
			brainFiles = append(brainFiles, brainPath)
			nervesFiles = append(nervesFiles, nervesPath)
			analysisFiles = append(analysisFiles, analysisPath)
			mu.Unlock()
			return nil
		})
	}
	if waitErr := eg.Wait(); waitErr != nil {
		return nil, nil, nil, waitErr
	}
	return brainFiles, nervesFiles, analysisFiles, nil
}
