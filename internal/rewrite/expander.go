package rewrite

import (
	"log/slog"

	"github.com/roach88/querypipe/internal/ir"
)

// Expander replaces a subquery marker with the rewritten form of its nested
// query model.
//
// Each nested model gets its own QueryRewriter: injection scope does not
// cross the subquery boundary. Values an outer query hands to a nested one
// travel as deferred parameters, which the fresh rewriter lifts through the
// shared context parameter.
type Expander struct {
	ctx      *ir.Parameter
	prefixes []string
	logger   *slog.Logger
}

// Expand rewrites the nested model of s and returns the result to splice in
// place of s. Errors from the nested rewrite are returned as is.
func (e *Expander) Expand(s *ir.Subquery) (ir.Node, error) {
	model := s.Model()
	nested := NewQueryRewriter(
		WithContextParameter(e.ctx),
		WithDeferredPrefixes(e.prefixes...),
		WithLogger(e.logger),
	)
	body, err := nested.Rewrite(model.Body)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("expanded subquery",
		"model", model.Name,
		"changed", body != model.Body,
	)
	return body, nil
}
