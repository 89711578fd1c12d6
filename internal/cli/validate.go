package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/querypipe/internal/compiler"
)

// ValidationResult summarises a compiled model.
type ValidationResult struct {
	Valid bool            `json:"valid"`
	Types []string        `json:"types"`
	Sets  []SetValidation `json:"sets"`
}

// SetValidation describes one data set of a valid model.
type SetValidation struct {
	Name    string `json:"name"`
	Element string `json:"element"`
	Rows    int    `json:"rows"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <model-dir>",
		Short: "Validate an entity model",
		Long: `Compile the CUE entity model in a directory and report its types and data sets.

Every fixture row is checked against its set's element type.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, modelDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	m, err := loadModel(modelDir)
	if err != nil {
		return reportLoadError(formatter, err)
	}
	formatter.VerboseLog("Compiled %d type(s) and %d set(s) from %s", len(m.TypeNames), len(m.SetNames), modelDir)

	result := summarise(m)
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "Model valid")
	for _, s := range result.Sets {
		fmt.Fprintf(formatter.Writer, "  %s: %s (%d rows)\n", s.Name, s.Element, s.Rows)
	}
	return nil
}

func summarise(m *compiler.Model) ValidationResult {
	result := ValidationResult{
		Valid: true,
		Types: m.TypeNames,
		Sets:  make([]SetValidation, 0, len(m.SetNames)),
	}
	for _, name := range m.SetNames {
		result.Sets = append(result.Sets, SetValidation{
			Name:    name,
			Element: m.Sets[name].String(),
			Rows:    len(m.Fixtures[name]),
		})
	}
	return result
}
