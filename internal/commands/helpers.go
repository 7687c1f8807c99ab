package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hwalton/keap-console/pkg/keap"
)

// parseKV turns key=value arguments into params. Values stay strings;
// key:=value takes a JSON literal for numbers, booleans, null or arrays.
func parseKV(args []string) (keap.Params, error) {
	p := keap.Params{}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		k, raw := strings.CutSuffix(k, ":")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: expected key=value or key:=json, got %q", ErrUsage, arg)
		}
		if !raw {
			p[k] = v
			continue
		}
		val, err := jsonLiteral(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUsage, k, err)
		}
		p[k] = val
	}
	return p, nil
}

func jsonLiteral(v string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(v))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("invalid JSON value %q", v)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid JSON value %q", v)
	}
	return out, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", ErrUsage, s)
	}
	return id, nil
}

func (a *App) print(raw json.RawMessage, err error) error {
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		fmt.Fprintln(a.out, "ok")
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = a.out.Write(buf.Bytes())
	return err
}
