// Package authheader reports string literals spelling the identity token header
// outside package auth. Code should refer to auth.TokenHeader instead, so the REST
// middleware, the gRPC interceptor and the clients cannot drift apart.
package authheader

import (
	"go/ast"
	"go/token"
	"strconv"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

const headerName = "x-auth-token"

// Packages allowed to spell the header: its owner and this analyzer.
var allowedPackages = map[string]bool{
	"auth":       true,
	"authheader": true,
}

var Analyzer = &analysis.Analyzer{
	Name:     "authheader",
	Doc:      "reports the literal \"x-auth-token\" outside package auth; use auth.TokenHeader",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	if allowedPackages[pass.Pkg.Name()] {
		return nil, nil
	}

	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	insp.Preorder([]ast.Node{(*ast.BasicLit)(nil)}, func(n ast.Node) {
		lit := n.(*ast.BasicLit)
		if lit.Kind != token.STRING {
			return
		}

		value, err := strconv.Unquote(lit.Value)
		if err != nil {
			return
		}

		if strings.EqualFold(value, headerName) {
			pass.Reportf(lit.Pos(), "use auth.TokenHeader instead of the literal %q", value)
		}
	})

	return nil, nil
}
