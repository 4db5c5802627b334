package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/medeiros-dev/notification-gateway/internal/domain"
	"github.com/medeiros-dev/notification-gateway/internal/domain/apperr"
	"github.com/medeiros-dev/notification-gateway/internal/interfaces/callable"
)

func sendCodeCmd(d *deps) *cobra.Command {
	var req domain.VerificationRequest

	cmd := &cobra.Command{
		Use:   "send-code",
		Short: "Send a verification code by SMS",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := d.sendCode().Execute(cmd.Context(), req)
			if err != nil {
				return callError(err)
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&req.Phone, "phone", "", "Destination phone number")
	cmd.Flags().StringVar(&req.Code, "code", "", "Code to send")

	return cmd
}

func chargeCmd(d *deps) *cobra.Command {
	var (
		req    domain.PaymentRequest
		amount string
	)

	cmd := &cobra.Command{
		Use:   "charge",
		Short: "Charge a payment source",
		Long: `Charge a tokenized payment source. The amount is in major units (dollars).
Without --key a fresh idempotency key is generated and printed with the result,
reuse it to retry the same charge safely.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Amount = domain.Amount(amount)
			if req.IdempotencyKey == "" {
				req.IdempotencyKey = uuid.NewString()
			}
			result, err := d.payment().Execute(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("%w (idempotencyKey=%s)", callError(err), req.IdempotencyKey)
			}
			return printJSON(cmd.OutOrStdout(), struct {
				domain.PaymentResult
				IdempotencyKey string `json:"idempotencyKey"`
			}{result, req.IdempotencyKey})
		},
	}

	cmd.Flags().StringVar(&req.SourceID, "source", "", "Tokenized payment source")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount in major units, e.g. 12.50")
	cmd.Flags().StringVar(&req.IdempotencyKey, "key", "", "Idempotency key (generated when empty)")
	cmd.Flags().StringVar(&req.TeamID, "team", "", "Team the charge is for")
	cmd.Flags().StringVar(&req.EventID, "event", "", "Event the charge is for")

	return cmd
}

func fanoutCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "fanout [notificationID]",
		Short: "Run the push fan-out for an existing notification record",
		Long: `Load a notification record from the configured store and run the push
fan-out for it, exactly as a record-created activation would. Records already
marked sent are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			useCase, records, cleanup, err := d.fanout(cmd.Context())
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer cleanup()

			record, err := records.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("loading notification %s: %w", args[0], err)
			}
			return printJSON(cmd.OutOrStdout(), useCase.Execute(cmd.Context(), record))
		},
	}
}

func callError(err error) error {
	return fmt.Errorf("%s: %s", callable.Status(apperr.KindOf(err)), apperr.MessageOf(err))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
