package main

import (
	"encoding/json"
	"io"

	urfave "github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func encode(w io.Writer, format string, v any) error {
	if format == formatYAML {
		e := yaml.NewEncoder(w)
		e.SetIndent(2)
		if err := e.Encode(v); err != nil {
			return err
		}
		return e.Close()
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}

func printResult(c *urfave.Context, v any) error {
	return encode(c.App.Writer, getConfig(c).Format, v)
}
