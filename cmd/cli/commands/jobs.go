package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskmesh/marketplace/internal/marketplace"
	"github.com/taskmesh/marketplace/internal/types"
)

// jobOutput represents the filtered output for a job
type jobOutput struct {
	JobID    string `json:"job_id"`
	Consumer string `json:"consumer"`
	Script   string `json:"script"`
	Slots    uint8  `json:"slots"`
}

// jobListOutput represents the filtered output for a list of jobs
type jobListOutput struct {
	Jobs []jobOutput `json:"jobs"`
}

func init() {
	jobsCmd.AddCommand(registerJobCmd)
	jobsCmd.AddCommand(listJobsCmd)
	jobsCmd.AddCommand(getJobCmd)
	jobsCmd.AddCommand(jobStatusCmd)
	jobsCmd.AddCommand(deregisterJobCmd)
	jobsCmd.AddCommand(acknowledgeCmd)
	jobsCmd.AddCommand(reportCmd)

	// Add flags
	registerJobCmd.Flags().StringP("file", "f", "", "JSON file with the job registration")
	_ = registerJobCmd.MarkFlagRequired("file")

	listJobsCmd.Flags().StringP("consumer", "c", "", "Filter jobs by consumer")

	getJobCmd.Flags().StringP("id", "i", "", "Job ID to fetch")
	_ = getJobCmd.MarkFlagRequired("id")

	jobStatusCmd.Flags().StringP("id", "i", "", "Job ID to fetch the status for")
	_ = jobStatusCmd.MarkFlagRequired("id")

	deregisterJobCmd.Flags().StringP("id", "i", "", "Job ID to deregister")
	_ = deregisterJobCmd.MarkFlagRequired("id")

	acknowledgeCmd.Flags().StringP("id", "i", "", "Job ID to acknowledge")
	_ = acknowledgeCmd.MarkFlagRequired("id")

	reportCmd.Flags().StringP("id", "i", "", "Job ID to report for")
	_ = reportCmd.MarkFlagRequired("id")
	reportCmd.Flags().Bool("last", false, "Mark this as the final report of the assignment")
	reportCmd.Flags().Bool("failed", false, "Report a failed execution")
	reportCmd.Flags().String("operation-hash", "", "Hash of the successful execution's output")
	reportCmd.Flags().String("message", "", "Failure message")
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage jobs",
}

var registerJobCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		as, err := getActingAccount()
		if err != nil {
			return err
		}

		file, _ := cmd.Flags().GetString("file")
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("error reading job file: %w", err)
		}

		var job marketplace.JobRegistration
		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("error parsing job file: %w", err)
		}

		jobID, err := apiClient.RegisterJob(context.Background(), as, job)
		if err != nil {
			return fmt.Errorf("error registering job: %w", err)
		}

		fmt.Println("Registered job:", jobID)
		return nil
	},
}

var listJobsCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		consumer, _ := cmd.Flags().GetString("consumer")

		// Call the API client
		jobs, err := apiClient.GetJobs(context.Background(), consumer)
		if err != nil {
			return fmt.Errorf("error fetching jobs: %w", err)
		}

		// Filter the response to only include relevant fields
		output := jobListOutput{
			Jobs: make([]jobOutput, len(jobs)),
		}
		for i, job := range jobs {
			output.Jobs[i] = jobOutput{
				JobID:    job.JobID,
				Consumer: job.Consumer,
				Script:   job.Script,
				Slots:    job.Slots,
			}
		}

		// Pretty print the response
		prettyJSON, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			return fmt.Errorf("error formatting response: %w", err)
		}
		fmt.Println(string(prettyJSON))
		return nil
	},
}

var getJobCmd = &cobra.Command{
	Use:   "get",
	Short: "Get a specific job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, _ := cmd.Flags().GetString("id")

		job, err := apiClient.GetJob(context.Background(), jobID)
		if err != nil {
			return fmt.Errorf("error fetching job: %w", err)
		}

		prettyJSON, err := json.MarshalIndent(job, "", "  ")
		if err != nil {
			return fmt.Errorf("error formatting response: %w", err)
		}
		fmt.Println(string(prettyJSON))
		return nil
	},
}

var jobStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Get a job's lifecycle status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, _ := cmd.Flags().GetString("id")

		status, err := apiClient.GetJobStatus(context.Background(), jobID)
		if err != nil {
			return fmt.Errorf("error fetching job status: %w", err)
		}

		prettyJSON, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("error formatting response: %w", err)
		}
		fmt.Println(string(prettyJSON))
		return nil
	},
}

var deregisterJobCmd = &cobra.Command{
	Use:   "deregister",
	Short: "Remove a job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		as, err := getActingAccount()
		if err != nil {
			return err
		}
		jobID, _ := cmd.Flags().GetString("id")

		if err := apiClient.DeregisterJob(context.Background(), as, jobID); err != nil {
			return fmt.Errorf("error deregistering job: %w", err)
		}

		fmt.Println("Deregistered job:", jobID)
		return nil
	},
}

var acknowledgeCmd = &cobra.Command{
	Use:   "acknowledge",
	Short: "Acknowledge the acting provider's assignment",
	RunE: func(cmd *cobra.Command, _ []string) error {
		as, err := getActingAccount()
		if err != nil {
			return err
		}
		jobID, _ := cmd.Flags().GetString("id")

		if err := apiClient.AcknowledgeMatch(context.Background(), as, jobID); err != nil {
			return fmt.Errorf("error acknowledging match: %w", err)
		}

		fmt.Println("Acknowledged job:", jobID)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report one execution of the acting provider's assignment",
	RunE: func(cmd *cobra.Command, _ []string) error {
		as, err := getActingAccount()
		if err != nil {
			return err
		}
		jobID, _ := cmd.Flags().GetString("id")
		last, _ := cmd.Flags().GetBool("last")
		failed, _ := cmd.Flags().GetBool("failed")
		operationHash, _ := cmd.Flags().GetString("operation-hash")
		message, _ := cmd.Flags().GetString("message")

		req := types.ReportRequest{
			Last: last,
			Result: marketplace.ExecutionResult{
				Success:       !failed,
				OperationHash: operationHash,
				Message:       message,
			},
		}
		if err := apiClient.Report(context.Background(), as, jobID, req); err != nil {
			return fmt.Errorf("error reporting execution: %w", err)
		}

		fmt.Println("Reported execution for job:", jobID)
		return nil
	},
}

// GetJobsCmd returns the jobs command
func GetJobsCmd() *cobra.Command {
	return jobsCmd
}
