package config

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// document is the shape checked by schema.cue. Durations are flattened to
// milliseconds because CUE has no duration type.
//
// A positive sub-millisecond duration rounds up to 1ms so that it is not
// mistaken for zero.
type document struct {
	Service  serviceDoc `json:"service"`
	Database struct {
		Path string `json:"path"`
	} `json:"database"`
	Auth struct {
		StaticToken string `json:"static_token"`
	} `json:"auth"`
	Peer  peerDoc `json:"peer"`
	Fault struct {
		Threshold int64 `json:"threshold"`
	} `json:"fault"`
	Log struct {
		Level  string `json:"level"`
		Format string `json:"format"`
	} `json:"log"`
}

type serviceDoc struct {
	Name   string `json:"name"`
	Listen string `json:"listen"`
}

type peerDoc struct {
	BaseURL          string `json:"base_url"`
	ConnectTimeoutMS int64  `json:"connect_timeout_ms"`
	ReadTimeoutMS    int64  `json:"read_timeout_ms"`
	MaxAttempts      int    `json:"max_attempts"`
	BackoffMS        int64  `json:"backoff_ms"`
}

func (c Config) document() document {
	var d document
	d.Service = serviceDoc{Name: c.Service.Name, Listen: c.Service.Listen}
	d.Database.Path = c.Database.Path
	d.Auth.StaticToken = c.Auth.StaticToken
	d.Peer = peerDoc{
		BaseURL:          c.Peer.BaseURL,
		ConnectTimeoutMS: ceilMillis(c.Peer.ConnectTimeout),
		ReadTimeoutMS:    ceilMillis(c.Peer.ReadTimeout),
		MaxAttempts:      c.Peer.MaxAttempts,
		BackoffMS:        ceilMillis(c.Peer.Backoff),
	}
	d.Fault.Threshold = c.Fault.Threshold
	d.Log.Level = c.Log.Level
	d.Log.Format = c.Log.Format
	return d
}

func ceilMillis(d time.Duration) int64 {
	ms := d.Milliseconds()
	if d > 0 && d%time.Millisecond != 0 {
		ms++
	}
	return ms
}

// ValidationError lists every constraint a configuration violates.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration:\n  " + strings.Join(e.Problems, "\n  ")
}

// Validate checks c against the embedded CUE schema and the cross-field
// rules that CUE cannot express conveniently.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	var problems []string
	value := def.Unify(ctx.Encode(c.document()))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		for _, e := range cueerrors.Errors(err) {
			problems = append(problems, cueProblem(e))
		}
	}

	if c.Peer.ConnectTimeout > c.Peer.ReadTimeout {
		problems = append(problems, "peer.connect_timeout must not exceed peer.read_timeout")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// cueProblem renders one CUE error as "path: message".
func cueProblem(e cueerrors.Error) string {
	format, args := e.Msg()
	msg := fmt.Sprintf(format, args...)
	path := strings.TrimPrefix(strings.Join(e.Path(), "."), "#Config.")
	if path == "" {
		return msg
	}
	return path + ": " + msg
}

// IsValidationError reports whether err is a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
