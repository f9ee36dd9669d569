package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
	"github.com/vk/formulagrid/internal/expr"
)

// Functions handled by the formula parsers rather than the evaluator.
var syntaxFunctions = []string{"GET_OUTPUT_FROM", "POW"}

func newFunctionsCommand(outW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the functions available in formulas",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			names := append(expr.Functions(), syntaxFunctions...)
			slices.Sort(names)
			for _, name := range names {
				if _, err := fmt.Fprintln(outW, name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
