package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/connscan/internal/parser"
	"github.com/ludo-technologies/connscan/internal/testutil"
)

func TestPositionalParamCount(t *testing.T) {
	ast := testutil.CreateTestAST(t, `
class Service:
    def handle(self, a, b=2, *args, c, _hidden, **kwargs):
        pass

def plain(x, y, z):
    pass
`)

	handle := testutil.FindFunctionInAST(ast, "handle")
	require.NotNil(t, handle)
	// self, *args, keyword-only c, **kwargs and _hidden are excluded
	assert.Equal(t, 2, PositionalParamCount(handle))

	plain := testutil.FindFunctionInAST(ast, "plain")
	require.NotNil(t, plain)
	assert.Equal(t, 3, PositionalParamCount(plain))
}

func TestFingerprintIgnoresNamesAndDocstrings(t *testing.T) {
	ast := testutil.CreateTestAST(t, `
def first(items):
    """Sum the prices."""
    total = 0
    for item in items:
        total += item.price
    return total

def second(rows):
    acc = 0
    for row in rows:
        acc += row.cost
    return acc
`)

	first := Fingerprint(testutil.FindFunctionInAST(ast, "first"))
	second := Fingerprint(testutil.FindFunctionInAST(ast, "second"))

	assert.Equal(t, 3, first.Statements)
	assert.Equal(t, first.Tokens, second.Tokens)
	assert.NotContains(t, first.Tokens, "STR")
	assert.InDelta(t, 1.0, TokenSimilarity(first.Tokens, second.Tokens), 1e-9)
}

func TestFingerprintCFunctions(t *testing.T) {
	ast := testutil.CreateTestCAST(t, `
int sum(const int *xs, int n) {
    int total = 0;
    for (int i = 0; i < n; i++) {
        total += xs[i];
    }
    return total;
}

int product(const int *ys, int m) {
    int acc = 1;
    for (int j = 0; j < m; j++) {
        acc *= ys[j];
    }
    return acc;
}
`)

	require.Equal(t, 2, testutil.CountNodesOfType(ast, parser.NodeFunction))
	sum := Fingerprint(testutil.FindFunctionInAST(ast, "sum"))
	product := Fingerprint(testutil.FindFunctionInAST(ast, "product"))

	// Only the compound operator differs
	sim := TokenSimilarity(sum.Tokens, product.Tokens)
	assert.Less(t, sim, 1.0)
	assert.Greater(t, sim, 0.9)
}
