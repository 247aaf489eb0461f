package tool

import (
	"context"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

type clockParams struct {
	Timezone string `json:"timezone,omitempty" jsonschema:"description=IANA time zone name such as Europe/Berlin; defaults to UTC"`
}

func clockSchema() *jsonschema.Schema {
	return reflectSchema(&clockParams{})
}

func runClock(_ context.Context, params map[string]any) (string, error) {
	loc := time.UTC
	if tz := stringParam(params, "timezone"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return "", errors.Wrapf(err, "unknown time zone %q", tz)
		}
		loc = l
	}
	return time.Now().In(loc).Format("Mon, 02 Jan 2006 15:04:05 MST"), nil
}
