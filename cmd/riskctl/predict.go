package main

import (
	"fmt"

	urfave "github.com/urfave/cli/v2"

	"github.com/liamcoop/cardiorisk/config"
	"github.com/liamcoop/cardiorisk/intake"
	"github.com/liamcoop/cardiorisk/predictor"
	"github.com/liamcoop/cardiorisk/risk"
)

type predictResult struct {
	Assessment risk.Assessment  `json:"assessment" yaml:"assessment"`
	Source     predictor.Source `json:"source" yaml:"source"`
	Candidate  string           `json:"candidate,omitempty" yaml:"candidate,omitempty"`
}

var predictCmd = &urfave.Command{
	Name:  "predict",
	Usage: "Run the external predictor, falling back to the demo heuristic",
	Flags: append([]urfave.Flag{fileFlag}, featureFlags()...),
	Action: func(c *urfave.Context) error {
		cfg, err := config.Load(getConfig(c).ConfigPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		f, err := readFeatures(c)
		if err != nil {
			return err
		}
		if err := intake.Validate(f); err != nil {
			return err
		}

		p := cfg.Predictor
		bridge := predictor.NewBridge(
			predictor.Artifacts{Model: p.ModelPath, Scaler: p.ScalerPath, FeatureNames: p.FeatureNamesPath},
			predictor.Commands(p.Interpreters, p.Script, p.WorkDir, p.Timeout),
		)

		res := bridge.Resolve(c.Context, f)
		return printResult(c, predictResult{
			Assessment: res.Assessment,
			Source:     res.Source,
			Candidate:  res.Candidate,
		})
	},
}
