package main

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cotsmith/internal/recorder"
)

var exportOutputDir string

// exportCmd walks a directory of previously-saved recordings (one
// mission's worth of DataPoint JSON per file, whether saved by `run`
// or by a `batch` task) and splits each into per-role training files,
// matching cot_data_recorder.py's CoTDataPoint.load_from_file plus
// export_training_data building blocks.
var exportCmd = &cobra.Command{
	Use:   "export <recordings-dir>",
	Short: "Export recorded missions into per-role training data files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recordingsDir := args[0]

		outDir := exportOutputDir
		if outDir == "" {
			outDir = filepath.Join(recordingsDir, "training")
		}

		var recordingFiles []string
		err := filepath.WalkDir(recordingsDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".json") {
				return nil
			}
			recordingFiles = append(recordingFiles, path)
			return nil
		})
		if err != nil {
			return fmt.Errorf("scan recordings directory: %w", err)
		}

		var brainCount, nervesCount, analysisCount int
		for _, path := range recordingFiles {
			brainPath, nervesPath, analysisPath, err := recorder.ExportFile(path, outDir)
			if err != nil {
				cmd.Printf("skipping %s: %v\n", path, err)
				continue
			}
			brainCount++
			nervesCount++
			analysisCount++
			cmd.Printf("exported %s -> %s, %s, %s\n", path, brainPath, nervesPath, analysisPath)
		}

		cmd.Printf("exported %d recording(s) to %s\n", brainCount, outDir)
		if nervesCount == 0 && analysisCount == 0 && brainCount == 0 {
			return fmt.Errorf("no recording files found under %s", recordingsDir)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOutputDir, "output-dir", "", "Training-data output directory (default: <recordings-dir>/training)")
}
