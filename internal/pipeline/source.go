package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/vyrodovalexey/avaxform/internal/config"
	"github.com/vyrodovalexey/avaxform/internal/observability"
	"github.com/vyrodovalexey/avaxform/internal/remote"
	"github.com/vyrodovalexey/avaxform/internal/retry"
)

// errNoSourceGetter is returned when a rule needs a remote source but the
// orchestrator has no client for it.
var errNoSourceGetter = errors.New("remote sources are not enabled")

// NewSourceGetterFromConfig builds the client used for remote sample
// payloads.
func NewSourceGetterFromConfig(cfg config.SourceConfig, logger observability.Logger) *remote.Client {
	return remote.New("source",
		remote.WithTimeout(cfg.Timeout.OrDefault(config.DefaultFetchTimeout)),
		remote.WithMaxBodySize(cfg.MaxBodySize),
		remote.WithRetry(retry.FromConfig(cfg.Retry)),
		remote.WithLogger(logger),
	)
}

// resolveSource picks the payload of a run: the explicit source, then the
// rule's sample input, then a remote URL, then an empty document.
func (o *Orchestrator) resolveSource(
	ctx context.Context,
	source interface{},
	rule *config.TransformationRule,
	inv *invocation,
	sourceFormat string,
) (interface{}, error) {
	if !isAbsent(source) {
		return source, nil
	}
	if rule.SampleInput != "" {
		return string(rule.SampleInput), nil
	}

	url := strings.TrimSpace(inv.sourceURL)
	if url == "" {
		url = strings.TrimSpace(rule.TestSourceURL)
	}
	if url != "" {
		if o.sources == nil {
			return nil, &SourceFetchError{URL: url, Err: errNoSourceGetter}
		}
		body, err := o.sources.Get(ctx, url)
		if err != nil {
			return nil, &SourceFetchError{URL: url, Err: err}
		}
		return string(body), nil
	}

	if sourceFormat == config.FormatJSON {
		return "{}", nil
	}
	return "", nil
}

func isAbsent(source interface{}) bool {
	switch v := source.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []byte:
		return len(v) == 0
	default:
		return false
	}
}
