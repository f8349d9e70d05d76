package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/bistpro/internal/scheduler"
	"github.com/wonny/bistpro/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

등록되는 작업:
- scan_warmup: 평일 장 마감 후 (SCAN_SCHEDULE, 기본 18:30 Istanbul) 캐시 갱신 스캔
- lock_watch: 매일 00:05 포트폴리오 잠금 상태 점검

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler list
  go run ./cmd/quant scheduler run scan_warmup`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작 (Ctrl+C로 종료)",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	out := cmd.OutOrStdout()
	PrintSuccess(out, "Scheduler started")
	printJobs(cmd, sched)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	<-ctx.Done()
	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()
	defer sched.Stop()
	printJobs(cmd, sched)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	res, err := sched.RunNow(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !res.Success {
		PrintError(out, fmt.Sprintf("%s failed after %d attempts: %s", res.JobName, res.Attempts, res.Error))
		return fmt.Errorf("job %s failed", res.JobName)
	}
	PrintSuccess(out, fmt.Sprintf("%s completed in %s", res.JobName, res.Duration.Round(time.Millisecond)))
	return nil
}

func printJobs(cmd *cobra.Command, sched *scheduler.Scheduler) {
	out := cmd.OutOrStdout()
	PrintTitle(out, "Registered jobs")
	for _, name := range sched.Jobs() {
		next := "-"
		if t, ok := sched.NextRun(name); ok {
			next = t.Format("2006-01-02 15:04 MST")
		}
		PrintKeyValue(out, name, "next "+next, 12)
	}
}

// newScheduler registers the warmup and lock watch jobs on Istanbul time
func newScheduler(a *app) (*scheduler.Scheduler, error) {
	opts := []scheduler.Option{
		scheduler.WithLocation(istanbul()),
		scheduler.WithRetry(3, 5*time.Minute),
		scheduler.WithJobTimeout(15 * time.Minute),
	}
	if a.metrics != nil {
		opts = append(opts, scheduler.WithObserver(a.metrics))
	}
	sched := scheduler.New(a.log.WithComponent("scheduler"), opts...)

	warmup := jobs.NewScanWarmupJob(a.universe, a.scanner, a.cfg.Scan.Schedule, a.cfg.Scan.CacheTTL, a.log)
	if a.db != nil {
		warmup.WithPersistence(a.universeRepo, a.rankingRepo)
	}
	if err := sched.AddJob(warmup); err != nil {
		return nil, err
	}

	var gauge jobs.LockGauge
	if a.metrics != nil {
		gauge = a.metrics
	}
	if err := sched.AddJob(jobs.NewLockWatchJob(a.manager, gauge, "", a.log)); err != nil {
		return nil, err
	}

	return sched, nil
}
