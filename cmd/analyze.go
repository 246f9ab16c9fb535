package main

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/piloturl/test-analysis/internal/model"
)

var (
	analyzeTestID     string
	analyzeStudentID  string
	analyzeMaxCourses int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one analysis from the command line",
	Long:  "Runs the full five-stage pipeline for a single (test, student) pair and prints the assembled result as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		req := model.PipelineRequest{
			TestID:        analyzeTestID,
			StudentID:     analyzeStudentID,
			MaxCourses:    analyzeMaxCourses,
			CorrelationID: "corr_" + uuid.NewString(),
		}

		result, err := env.Orchestrator.Run(cmd.Context(), req)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeTestID, "test", "", "test id to analyze (required)")
	analyzeCmd.Flags().StringVar(&analyzeStudentID, "student", "", "student id to analyze (required)")
	analyzeCmd.Flags().IntVar(&analyzeMaxCourses, "max-courses", model.DefaultCoursesPerRequest, "maximum course recommendations")
	_ = analyzeCmd.MarkFlagRequired("test")
	_ = analyzeCmd.MarkFlagRequired("student")
	rootCmd.AddCommand(analyzeCmd)
}
