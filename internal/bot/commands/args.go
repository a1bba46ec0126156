package commands

import (
	"fmt"

	"github.com/brrbot/brrbot/internal/bot/autobrr"
	"github.com/brrbot/brrbot/internal/bot/dispatch"
)

// limitArg returns the named limit, or def when the caller gave none. Values outside
// 1..max are rejected.
func limitArg(opts dispatch.Options, name string, def, max int) (int, error) {
	v, ok := opts.Int(name)
	if !ok {
		return def, nil
	}
	if v < 1 || v > int64(max) {
		return 0, autobrr.ErrInvalidArgument.New(fmt.Sprintf("Limit must be between 1 and %d", max))
	}
	return int(v), nil
}

func requiredID(opts dispatch.Options, name string) (int64, error) {
	v, ok := opts.Int(name)
	if !ok {
		return 0, autobrr.ErrInvalidArgument.New(fmt.Sprintf("Option %s is required", name))
	}
	return v, nil
}
