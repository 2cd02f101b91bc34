package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"watch-registration/internal/appraisal"
	"watch-registration/internal/codec"
	"watch-registration/internal/common/errors"
	watchregistration "watch-registration/internal/workers/tokenization/watch-registration"
)

type registerOptions struct {
	payloadPath string
	dryRun      bool
}

func newRegisterCmd(root *rootOptions) *cobra.Command {
	opts := &registerOptions{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Run one registration from a JSON payload",
		Example: `  watch-registration register --payload watch.json
  cat watch.json | watch-registration register --payload - --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := readPayload(cmd.InOrStdin(), opts.payloadPath)
			if err != nil {
				return err
			}
			if opts.dryRun {
				return dryRun(cmd.OutOrStdout(), raw)
			}
			return register(cmd.Context(), cmd.OutOrStdout(), root, raw)
		},
	}

	cmd.Flags().StringVarP(&opts.payloadPath, "payload", "p", "", "payload file, or - for stdin")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "validate and encode without attesting or submitting")
	_ = cmd.MarkFlagRequired("payload")

	return cmd
}

func readPayload(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return raw, nil
}

// dryRun performs the local stages only and prints the encoded record.
func dryRun(out io.Writer, raw []byte) error {
	req, err := watchregistration.ParseRequest(raw)
	if err != nil {
		return &watchregistration.ProcessingError{Cause: err}
	}

	verdict := appraisal.NewReferenceTable().Validate(context.Background(), req.Serial)
	if !verdict.Authenticated {
		return &watchregistration.ProcessingError{Cause: errors.NewAppraisalRejectedError(req.Serial)}
	}

	encoded, err := codec.EncodeRegistration(req)
	if err != nil {
		return &watchregistration.ProcessingError{Cause: errors.NewEncodingError(err)}
	}

	fmt.Fprintf(out, "serial:    %s\n", req.Serial)
	fmt.Fprintf(out, "appraisal: %.0f USD\n", verdict.EstimatedValueUSD)
	if verdict.HasAuthority() {
		fmt.Fprintf(out, "authority: %s\n", verdict.CertifyingAuthority)
	}
	fmt.Fprintf(out, "record:    %s\n", hexutil.Encode(encoded))
	return nil
}

func register(ctx context.Context, out io.Writer, root *rootOptions, raw []byte) error {
	rt, err := loadRuntime(root.configPath)
	if err != nil {
		return err
	}
	a, err := bootstrap(ctx, rt)
	if err != nil {
		return err
	}
	defer a.Close()

	service := watchregistration.NewService(a.deps, a.workerCfg)
	adapter := watchregistration.NewAdapter(service, "cli", a.log)

	ctx = watchregistration.WithInvocationID(ctx, "cli-"+uuid.NewString())
	summary, err := adapter.Handle(ctx, raw)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, summary)
	return nil
}
