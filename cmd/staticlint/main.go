// The application provides the project's static analysis tool. It combines standard
// analyzers from the Go toolchain, third-party analyzers and the project analyzers
// into a single `multichecker.Main` invocation.
//
// The staticcheck analyzers to run are listed in config.json, which is read from the
// directory of the executable.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/staticcheck"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"

	"github.com/patric-chuzhbe/contactkeeper/cmd/staticlint/authheader"
	"github.com/patric-chuzhbe/contactkeeper/cmd/staticlint/noosexit"
)

// Config is the name of the JSON file that lists enabled staticcheck analyzers.
const Config = `config.json`

// ConfigData describes the configuration file. Staticcheck holds analyzer names such
// as "SA1000" or "SA4010".
type ConfigData struct {
	Staticcheck []string
}

func loadConfig() (ConfigData, error) {
	var cfg ConfigData

	appfile, err := os.Executable()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(filepath.Join(filepath.Dir(appfile), Config))
	if err != nil {
		return cfg, err
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("bad %s: %w", Config, err)
	}

	return cfg, nil
}

// analyzers returns the always-on analyzers followed by the staticcheck analyzers
// enabled in cfg.
func analyzers(cfg ConfigData) []*analysis.Analyzer {
	checks := []*analysis.Analyzer{
		copylock.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		printf.Analyzer,
		structtag.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,

		noosexit.Analyzer,
		authheader.Analyzer,
	}

	enabled := make(map[string]bool, len(cfg.Staticcheck))
	for _, name := range cfg.Staticcheck {
		enabled[name] = true
	}

	for _, v := range staticcheck.Analyzers {
		if enabled[v.Analyzer.Name] {
			checks = append(checks, v.Analyzer)
		}
	}

	return checks
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	multichecker.Main(analyzers(cfg)...)
}
