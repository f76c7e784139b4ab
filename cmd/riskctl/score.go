package main

import (
	"fmt"
	"os"

	urfave "github.com/urfave/cli/v2"

	"github.com/liamcoop/cardiorisk/intake"
	"github.com/liamcoop/cardiorisk/risk"
	"github.com/liamcoop/cardiorisk/rules"
)

var (
	tierFlag = &urfave.StringFlag{
		Name:  "tier",
		Usage: "Scoring table [client, server]",
		Value: risk.ClientTier.Name,
	}

	fileFlag = &urfave.StringFlag{
		Name:    "file",
		Aliases: []string{"f"},
		Usage:   "JSON file with patient features; use - for stdin (optional)",
	}

	recommendFlag = &urfave.BoolFlag{
		Name:  "recommend",
		Usage: "Include recommendations (optional, default: false)",
	}

	scoreCmd = &urfave.Command{
		Name:  "score",
		Usage: "Score patient features with a local table",
		Flags: append([]urfave.Flag{tierFlag, fileFlag, recommendFlag}, featureFlags()...),
		Action: func(c *urfave.Context) error {
			table, err := risk.Lookup(c.String(tierFlag.Name))
			if err != nil {
				return err
			}

			f, err := readFeatures(c)
			if err != nil {
				return err
			}

			assessment := risk.Score(table, f)
			if !c.Bool(recommendFlag.Name) {
				return printResult(c, assessment)
			}

			recs, err := defaultRecommendations(f, assessment)
			if err != nil {
				return err
			}
			return printResult(c, struct {
				Assessment      risk.Assessment        `json:"assessment" yaml:"assessment"`
				Recommendations []rules.Recommendation `json:"recommendations" yaml:"recommendations"`
			}{assessment, recs})
		},
	}
)

// featureFlags declares one string flag per feature so unparsable input
// reaches the scorer unchanged.
func featureFlags() []urfave.Flag {
	flags := make([]urfave.Flag, 0, len(risk.Fields))
	for _, field := range risk.Fields {
		flags = append(flags, &urfave.StringFlag{
			Name:     string(field),
			Usage:    fmt.Sprintf("Value for %s", field),
			Category: "features",
		})
	}
	return flags
}

// readFeatures loads --file first, then applies any feature flags on top.
func readFeatures(c *urfave.Context) (risk.PatientFeatures, error) {
	var f risk.PatientFeatures

	switch path := c.String(fileFlag.Name); path {
	case "":
	case "-":
		decoded, err := intake.DecodeJSON(c.App.Reader)
		if err != nil {
			return f, fmt.Errorf("reading features from stdin: %w", err)
		}
		f = decoded
	default:
		file, err := os.Open(path)
		if err != nil {
			return f, fmt.Errorf("opening features file: %w", err)
		}
		defer file.Close()

		decoded, err := intake.DecodeJSON(file)
		if err != nil {
			return f, fmt.Errorf("reading features file %s: %w", path, err)
		}
		f = decoded
	}

	for _, field := range risk.Fields {
		if c.IsSet(string(field)) {
			f.Set(field, risk.Text(c.String(string(field))))
		}
	}
	return f, nil
}

func defaultRecommendations(f risk.PatientFeatures, a risk.Assessment) ([]rules.Recommendation, error) {
	store := rules.NewInMemoryRuleStore()
	if _, err := rules.Seed(store, rules.DefaultRules()); err != nil {
		return nil, err
	}
	engine, err := rules.NewEngine(store)
	if err != nil {
		return nil, err
	}
	return engine.Recommend(f, a)
}
