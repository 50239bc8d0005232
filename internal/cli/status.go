// status.go implements the "planet status" command showing server health.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/planet-dev/planet/internal/remote"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server health and documents",
	Long: `Query the configured server's health endpoint and document listing
concurrently and print a summary.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var statusTimeoutFlag time.Duration

func init() {
	statusCmd.Flags().DurationVar(&statusTimeoutFlag, "timeout", 10*time.Second, "Give up on the server after this long")
}

// serverStatus is what one server check learned.
type serverStatus struct {
	health    *remote.Health
	healthErr error
	docs      []remote.DocumentInfo
	docsErr   error
	took      time.Duration
}

func checkServer(ctx context.Context, client *remote.Client) serverStatus {
	var st serverStatus
	start := time.Now()

	// Each check records its own error; neither cancels the other.
	var g errgroup.Group
	g.Go(func() error {
		st.health, st.healthErr = client.Health(ctx)
		return nil
	})
	g.Go(func() error {
		client.RefreshDocuments()
		st.docs, st.docsErr = client.Documents(ctx)
		return nil
	})
	_ = g.Wait()

	st.took = time.Since(start)
	return st
}

func runStatus(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeoutFlag)
	defer cancel()
	st := checkServer(ctx, client)

	fmt.Println("Planet Status")
	fmt.Printf("Server: %s\n", client.BaseURL())
	fmt.Println()

	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()

	switch {
	case st.healthErr != nil:
		fmt.Printf("  health     %s  %v\n", bad("unreachable"), st.healthErr)
	default:
		fmt.Printf("  health     %s  %s\n", ok(fmt.Sprintf("%-11s", st.health.Status)), st.health.Message)
	}

	switch {
	case st.docsErr != nil:
		fmt.Printf("  documents  %s        %v\n", bad("error"), st.docsErr)
	default:
		fmt.Printf("  documents  %d\n", len(st.docs))
	}

	fmt.Println()
	fmt.Printf("Checked in %s\n", st.took.Round(time.Millisecond))

	if st.healthErr != nil {
		return fmt.Errorf("server unhealthy")
	}
	return nil
}
