package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewJobCmd создаёт группу команд для управления jobs.
func NewJobCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage deferred jobs",
	}

	cmd.AddCommand(
		newJobScheduleCmd(clientFn, outputFn),
		newJobListCmd(clientFn, outputFn),
		newJobShowCmd(clientFn, outputFn),
	)

	return cmd
}

var jobHeaders = []string{"ID", "NAME", "KIND", "STATUS", "DUE_AT", "ATTEMPT", "RUNS"}

func jobRow(j *JobResponse, now time.Time) []string {
	return []string{j.ID, j.Name, j.Kind, j.Status, formatDue(j.DueAt, now), strconv.Itoa(j.Attempt), strconv.Itoa(j.Runs)}
}

// jobFields — карточка job для job show.
func jobFields(j *JobResponse) []Field {
	schedule := ""
	switch {
	case j.CronExpr != "":
		schedule = "cron " + j.CronExpr
		if j.Timezone != "" {
			schedule += " (" + j.Timezone + ")"
		}
	case j.IntervalSec > 0:
		schedule = "every " + (time.Duration(j.IntervalSec) * time.Second).String()
	}

	retry := ""
	if j.Retry != nil && j.Retry.MaxAttempts > 1 {
		retry = fmt.Sprintf("%d attempts, %s backoff", j.Retry.MaxAttempts, j.Retry.Backoff)
	}

	duration := ""
	if j.DurationMs > 0 {
		duration = (time.Duration(j.DurationMs) * time.Millisecond).String()
	}

	return []Field{
		{"ID", j.ID},
		{"Name", j.Name},
		{"Kind", j.Kind},
		{"Status", j.Status},
		{"Due at", j.DueAt},
		{"Schedule", schedule},
		{"Retry", retry},
		{"Seq", strconv.FormatUint(j.Seq, 10)},
		{"Attempt", strconv.Itoa(j.Attempt)},
		{"Runs", strconv.Itoa(j.Runs)},
		{"Started at", j.StartedAt},
		{"Finished at", j.FinishedAt},
		{"Duration", duration},
		{"Error", j.Error},
		{"Created at", j.CreatedAt},
	}
}

// scheduleFlags — флаги команды job schedule.
type scheduleFlags struct {
	name       string
	kind       string
	at         string
	in         time.Duration
	cron       string
	every      time.Duration
	timezone   string
	config     []string
	configJSON string
	retries    int
	backoff    string
}

// request собирает CreateJobRequest из флагов.
func (f *scheduleFlags) request() (CreateJobRequest, error) {
	req := CreateJobRequest{
		Name:     f.name,
		Kind:     f.kind,
		CronExpr: f.cron,
		Timezone: f.timezone,
	}

	if f.at != "" && f.in > 0 {
		return req, fmt.Errorf("--at and --in are mutually exclusive")
	}
	if f.at != "" {
		at, err := time.Parse(time.RFC3339, f.at)
		if err != nil {
			return req, fmt.Errorf("invalid --at %q, expected RFC3339: %w", f.at, err)
		}
		req.DueAt = &at
	}
	if f.in > 0 {
		req.DelaySec = f.in.Seconds()
	}

	if f.every > 0 {
		if f.every%time.Second != 0 {
			return req, fmt.Errorf("--every must be a whole number of seconds")
		}
		req.IntervalSec = int(f.every / time.Second)
	}

	if f.configJSON != "" {
		if err := json.Unmarshal([]byte(f.configJSON), &req.Config); err != nil {
			return req, fmt.Errorf("invalid --config-json: %w", err)
		}
	}
	if len(f.config) > 0 {
		if req.Config == nil {
			req.Config = make(map[string]any)
		}
		for _, kv := range f.config {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				return req, fmt.Errorf("invalid config format %q, expected KEY=VALUE", kv)
			}
			req.Config[key] = value
		}
	}

	if f.retries > 0 {
		req.Retry = &RetryPolicy{MaxAttempts: f.retries, Backoff: f.backoff}
	}

	return req, nil
}

func newJobScheduleCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var flags scheduleFlags

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule a job",
		Example: `  futurejob job schedule --kind http --in 10m --config url=https://example.com/hook
  futurejob job schedule --kind log --cron "0 9 * * 1-5" --tz Europe/Moscow --config message=standup`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req, err := flags.request()
			if err != nil {
				return err
			}

			job, err := client.CreateJob(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Job scheduled: %s", job.ID))
			out.Print(jobHeaders, [][]string{jobRow(job, time.Now())}, job)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.name, "name", "", "Job name")
	cmd.Flags().StringVar(&flags.kind, "kind", "", "Job kind (http, publish, log)")
	cmd.Flags().StringVar(&flags.at, "at", "", "Due time in RFC3339")
	cmd.Flags().DurationVar(&flags.in, "in", 0, "Delay from now (e.g. 90s, 10m)")
	cmd.Flags().StringVar(&flags.cron, "cron", "", "Cron expression for recurring jobs")
	cmd.Flags().DurationVar(&flags.every, "every", 0, "Interval for recurring jobs (e.g. 30s)")
	cmd.Flags().StringVar(&flags.timezone, "tz", "", "Timezone for --cron (default UTC)")
	cmd.Flags().StringSliceVar(&flags.config, "config", nil, "Executor config as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&flags.configJSON, "config-json", "", "Executor config as a JSON object")
	cmd.Flags().IntVar(&flags.retries, "retries", 0, "Maximum attempts on failure")
	cmd.Flags().StringVar(&flags.backoff, "backoff", "", "Retry backoff (fixed, exponential)")
	cmd.MarkFlagRequired("kind")

	return cmd
}

func newJobListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListJobsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			jobs, err := client.ListJobs(opts)
			if err != nil {
				return err
			}

			now := time.Now()
			rows := make([][]string, len(jobs))
			for i := range jobs {
				rows[i] = jobRow(&jobs[i], now)
			}

			out.Print(jobHeaders, rows, jobs)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (SCHEDULED, RUNNING, SUCCEEDED, FAILED, DISCARDED)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "Filter by kind")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Number of results to skip")

	return cmd
}

func newJobShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show JOB_ID",
		Short: "Show job details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			job, err := client.GetJob(args[0])
			if err != nil {
				return err
			}

			out.Details(jobFields(job), job)
			return nil
		},
	}
}
