package main

import (
	"fmt"

	urfave "github.com/urfave/cli/v2"

	"github.com/liamcoop/cardiorisk/rules"
)

var (
	expressionFlag = &urfave.StringFlag{
		Name:     "expression",
		Usage:    "CEL expression over patient and assessment",
		Required: true,
	}

	rulesCmd = &urfave.Command{
		Name:  "rules",
		Usage: "Inspect recommendation rules",
		Subcommands: []*urfave.Command{
			{
				Name:  "list",
				Usage: "Print the default recommendation rules",
				Action: func(c *urfave.Context) error {
					return printResult(c, rules.DefaultRules())
				},
			},
			{
				Name:  "check",
				Usage: "Compile an expression without storing it",
				Flags: []urfave.Flag{expressionFlag},
				Action: func(c *urfave.Context) error {
					engine, err := rules.NewEngine(rules.NewInMemoryRuleStore())
					if err != nil {
						return err
					}
					if err := engine.Check(c.String(expressionFlag.Name)); err != nil {
						return fmt.Errorf("%w: %v", rules.ErrInvalidRule, err)
					}
					return printResult(c, map[string]any{
						"expression": c.String(expressionFlag.Name),
						"valid":      true,
					})
				},
			},
		},
	}
)
