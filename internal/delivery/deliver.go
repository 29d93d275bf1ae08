package delivery

import (
	"context"
	"errors"
)

// Sender is the chat transport. Calls made in order must be delivered in
// that order.
type Sender interface {
	SendText(ctx context.Context, text string) error
	SendFile(ctx context.Context, filename string, content []byte) error
}

type UnitResult struct {
	Index int
	Err   error
}

type Report struct {
	Results []UnitResult
}

// Failed returns the failed units.
func (r Report) Failed() []UnitResult {
	var out []UnitResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Err joins every per-unit failure into one error, nil when all units went
// through.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, &UnitError{Index: res.Index, Err: res.Err})
		}
	}
	return errors.Join(errs...)
}

// Deliver sends plan through s. Inline units are sent one after another; a
// failed unit does not stop the ones after it.
func Deliver(ctx context.Context, plan Plan, s Sender) (Report, error) {
	var rep Report
	switch plan.Kind {
	case KindInline:
		for i, unit := range plan.Units {
			rep.Results = append(rep.Results, UnitResult{Index: i, Err: s.SendText(ctx, unit)})
		}
	case KindAttachment:
		err := s.SendFile(ctx, plan.Filename, []byte(plan.Content))
		rep.Results = append(rep.Results, UnitResult{Index: 0, Err: err})
	default:
		return rep, ErrEmptyInput
	}
	return rep, rep.Err()
}
