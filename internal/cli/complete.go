package cli

import (
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Completion describes the command line for shell completion. Install with
// COMP_INSTALL=1 bsc.
func Completion() *complete.Command {
	brokers := predict.Set{"schwab", "tda", "cathay"}
	statements := predict.Or(predict.Files("*.pdf"), predict.Files("*.csv"))
	boolean := predict.Set{"true", "false"}

	return &complete.Command{
		Sub: map[string]*complete.Command{
			"parse": {
				Flags: map[string]complete.Predictor{
					"broker": brokers,
					"format": predict.Set{"csv", "jsonl"},
					"output": predict.Files("*"),
					"header": boolean,
				},
				Args: statements,
			},
			"ingest": {
				Flags: map[string]complete.Predictor{
					"dir":     predict.Dirs("*"),
					"workers": predict.Set{"1", "2", "4", "8"},
					"broker":  brokers,
					"format":  predict.Set{"csv", "jsonl", "postgres"},
					"output":  predict.Files("*"),
					"report":  predict.Files("*.json"),
					"pretty":  boolean,
				},
				Args: statements,
			},
			"serve": {
				Flags: map[string]complete.Predictor{"port": predict.Set{"8080"}},
			},
			"version": {},
			"help":    {},
		},
	}
}
