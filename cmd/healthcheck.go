package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

const defaultHealthcheckURL = "http://127.0.0.1:3000/v1/status/ping"

type HealthcheckCommand struct{}

func NewHealthcheckCommand() *HealthcheckCommand {
	return &HealthcheckCommand{}
}

func (s *HealthcheckCommand) Command() *cobra.Command {
	c := &cobra.Command{
		Use:           "healthcheck",
		Short:         "Probe the status/ping route and exit non-zero when unhealthy",
		SilenceErrors: true,
		RunE:          s.Run,
	}
	c.Flags().String("url", defaultHealthcheckURL, "ping route URL")
	c.Flags().Duration("timeout", 3*time.Second, "request timeout")
	return c
}

func (s *HealthcheckCommand) Run(cmd *cobra.Command, args []string) error {
	url, err := cmd.Flags().GetString("url")
	if err != nil {
		return err
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}
	if timeout <= 0 {
		return fmt.Errorf("timeout must be > 0")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unhealthy status %d: %s", resp.StatusCode, body.Message)
	}

	message := body.Message
	if message == "" {
		message = "ok"
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), message)
	return err
}

