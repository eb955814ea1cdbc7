package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-co-op/gocron-ui/server"
	"github.com/go-co-op/gocron/v2"
	"github.com/senomorf/oracle-freetier-instance-creation/internal/config"
	"github.com/senomorf/oracle-freetier-instance-creation/internal/provision"
	"github.com/senomorf/oracle-freetier-instance-creation/internal/workflow"
	"github.com/spf13/cobra"
)

var (
	attemptSchedule string
	bindAddress     string
)

var daemonCommand = &cobra.Command{
	Use:     "daemon",
	GroupID: "provision",
	Short:   "Run creation attempts on a schedule with a dashboard",
	Long: `Starts a background scheduler that makes one creation attempt per tick and
serves the scheduler dashboard over HTTP. Capacity exhaustion leaves the job
scheduled for the next tick; success, an existing instance, or a fatal error
shuts the daemon down with the matching exit code.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		banner := fmt.Sprintf("OCI Free Tier - Daemon Mode \n\nVersion: %s\nBuild Date: %s", Version, Date)
		fmt.Println(headerStyle.Render(banner))

		dlog := workflow.SetupLogger(logLevel, workflow.SetupLogFile).With("component", "daemon")

		s, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		s.Start()
		dlog.Info("Scheduler started", "schedule", attemptSchedule)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Terminal outcomes end the daemon; capacity exhaustion keeps the
		// job on its schedule. Buffered so the task never blocks on send.
		done := make(chan terminalOutcome, 1)

		// 1. Declare the variable first so it can be used INSIDE the task closure
		var attemptJob gocron.Job

		// 2. Define the Job
		attemptJob, attemptJobError := s.NewJob(
			gocron.CronJob(
				attemptSchedule,
				false,
			),
			gocron.NewTask(func() {
				// A. Run the Workflow
				res, runErr := workflow.Run(ctx, workflow.Options{
					EnvFile:      envFile,
					LogLevel:     logLevel,
					ModeOverride: config.ModeOnce,
					MarkerPath:   markerPath,
				})
				if res.Terminal() {
					select {
					case done <- terminalOutcome{res: res, err: runErr}:
					default:
					}
					return
				}

				// B. Calculate and Log the Next Run (Post-Execution)
				if attemptJob != nil {
					if nextRun, err := attemptJob.NextRun(); err == nil {
						dlog.Info("Creation attempt completed",
							"outcome", res.Kind.String(),
							"next_run", nextRun.Format(time.RFC3339),
							"job_id", attemptJob.ID())
					}
				}
			}),
			gocron.WithName("Instance Creation Attempt"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if attemptJobError != nil {
			return attemptJobError
		}

		// 3. Log the Initial Next Run (Pre-Execution)
		if nextRun, err := attemptJob.NextRun(); err == nil {
			dlog.Info("Job Scheduled",
				"job_name", attemptJob.Name(),
				"job_id", attemptJob.ID(),
				"schedule", attemptSchedule,
				"next_run", nextRun.Format(time.RFC3339))
		}

		srv := server.NewServer(s, uiPort(bindAddress), server.WithTitle("OCI Free Tier - Dashboard"))
		dlog.Info("Scheduler UI started", "address", bindAddress)
		httpServer := &http.Server{Addr: bindAddress, Handler: srv.Router}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				dlog.Error("Failed to start UI server", "error", err)
			}
		}()

		// 4. Block Main Thread until a terminal outcome or signal
		select {
		case out := <-done:
			dlog.Info("Terminal outcome reached, shutting down scheduler",
				"outcome", out.res.Kind.String())
			shutdown(httpServer, s, dlog)
			return resultError(out.res, out.err)
		case <-ctx.Done():
			dlog.Warn("Shutting down scheduler due to system signal...")
			shutdown(httpServer, s, dlog)
			return &ExitError{Code: provision.OutOfCapacity("interrupted").ExitCode(), Message: "interrupted before a terminal outcome"}
		}
	},
}

type terminalOutcome struct {
	res provision.Result
	err error
}

// uiPort extracts the port the dashboard advertises from the bind address,
// falling back to 8080 when the address carries none.
func uiPort(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 8080
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return 8080
	}
	return port
}

func shutdown(httpServer *http.Server, s gocron.Scheduler, dlog *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		dlog.Error("Failed to stop UI server", "error", err)
	}
	if err := s.Shutdown(); err != nil {
		dlog.Error("Failed to stop scheduler", "error", err)
	}
}

func init() {
	rootCommand.AddCommand(daemonCommand)
	daemonCommand.Flags().StringVar(&attemptSchedule, "attempt-schedule", "*/10 * * * *", "Cron schedule for creation attempts")
	daemonCommand.Flags().StringVar(&bindAddress, "bind-address", "0.0.0.0:8080", "Address to bind the UI server")
}
