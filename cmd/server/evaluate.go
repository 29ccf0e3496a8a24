package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pesio-ai/be-claims-evaluator/internal/claim"
	"github.com/pesio-ai/be-claims-evaluator/internal/service"
)

var (
	evalPolicyID     string
	evalPolicyNumber string
	evalSync         bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <claim_id> [submission.json]",
	Short: "Evaluate one claim and print the result",
	Long: `Evaluate runs a single claim through the pipeline and prints the result
as JSON. Without a submission file the claim is loaded from the claim store.

Example:
  claims-evaluator evaluate CLM-1001
  claims-evaluator evaluate CLM-1001 fnol.json --policy-number LIFE-001`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringVar(&evalPolicyID, "policy-id", "", "policy id recorded on the request, like the HTTP policy_id field")
	evaluateCmd.Flags().StringVar(&evalPolicyNumber, "policy-number", "", "policy number verified against the policy store (overrides the submission file)")
	evaluateCmd.Flags().BoolVar(&evalSync, "sync", false, "push stage state to the admin backend and NATS")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	var path string
	if len(args) == 2 {
		path = args[1]
	}
	submission, err := readSubmission(path, evalPolicyNumber)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, log, evalSync)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.claims.Submit(ctx, service.SubmitClaimRequest{
		ClaimID:    args[0],
		PolicyID:   evalPolicyID,
		Submission: submission,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// readSubmission loads the submission file and applies the policy number
// override. Without a file the claim store copy is used, which cannot be
// overridden.
func readSubmission(path, policyNumber string) (*claim.Submission, error) {
	if path == "" {
		if policyNumber != "" {
			return nil, fmt.Errorf("--policy-number requires a submission file")
		}
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read submission: %w", err)
	}
	submission := &claim.Submission{}
	if err := json.Unmarshal(data, submission); err != nil {
		return nil, fmt.Errorf("decode submission: %w", err)
	}
	if policyNumber != "" {
		submission.PolicyNumber = policyNumber
	}
	return submission, nil
}
