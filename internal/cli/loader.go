package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/querypipe/internal/compiler"
	"github.com/roach88/querypipe/internal/engine"
	"github.com/roach88/querypipe/internal/harness"
	"github.com/roach88/querypipe/internal/store"
)

// LoadError represents an error loading a model or its supporting files.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Line returns the source line of the error, or 0 when unknown.
func (e *LoadError) Line() int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric    = "E001" // Generic/unknown error
	ErrCodeNotFound   = "E005" // Path not found
	ErrCodeLoadFailed = "E004" // CUE load or build failed
	ErrCodeConfig     = "E008" // Harness config rejected
	ErrCodeDatabase   = "E009" // Database open or fixture load failed

	// Model compilation errors
	ErrCodeInvalidType = "E104" // Invalid field type (e.g., float)
	ErrCodeInvalidSet  = "E120" // Invalid data set declaration
	ErrCodeInvalidRow  = "E121" // Fixture row rejected
	ErrCodeUnknownSet  = "E122" // --set names no data set
)

// MapFieldToErrorCode maps a compiler error field path such as
// "type.Customer.Age" or "set.Orders.rows[2]" to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeLoadFailed
	case strings.HasPrefix(field, "type."):
		return ErrCodeInvalidType
	case strings.HasPrefix(field, "set.") && strings.Contains(field, ".rows["):
		return ErrCodeInvalidRow
	case field == "set" || strings.HasPrefix(field, "set."):
		return ErrCodeInvalidSet
	default:
		return ErrCodeGeneric
	}
}

// loadModel compiles the model in dir, converting compiler errors to
// LoadErrors with position info.
func loadModel(dir string) (*compiler.Model, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("model directory not found: %s", dir)}
	}
	m, err := compiler.LoadModel(dir)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return m, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// loadConfig reads the harness config at path. An empty path yields the
// zero config.
func loadConfig(path string) (*harness.Config, error) {
	if path == "" {
		return &harness.Config{}, nil
	}
	cfg, err := harness.LoadConfig(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error()}
	}
	return cfg, nil
}

// seedStore replaces every data set in st with the model's fixture rows.
func seedStore(ctx context.Context, st *store.Store, m *compiler.Model) error {
	for _, set := range m.SetNames {
		if err := st.ClearFixture(ctx, set); err != nil {
			return err
		}
		if err := st.LoadFixture(ctx, set, m.Fixtures[set]); err != nil {
			return err
		}
	}
	return nil
}

// memorySource serves the model's fixtures from memory.
func memorySource(m *compiler.Model) engine.DataSource {
	src := engine.NewMemorySource()
	for _, set := range m.SetNames {
		src.Add(set, m.Fixtures[set]...)
	}
	return src
}

// newLogger returns a text logger on w at Info, or Debug when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
