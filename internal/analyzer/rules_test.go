package analyzer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/connscan/domain"
)

func TestMagicLiteralDetector(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		count    int
		severity domain.Severity
	}{
		{"plain number", "x = compute() + 42\n", 1, domain.SeverityMedium},
		{"allowlisted values", "x = 0\ny = 1\nz = -1\n", 0, ""},
		{"constant binding", "MAX_SIZE = 1024\n", 0, ""},
		{"default parameter", "def f(timeout=30):\n    pass\n", 0, ""},
		{"docstring", "def f():\n    \"\"\"Explains the function in detail.\"\"\"\n    pass\n", 0, ""},
		{"short string", "mode = \"rb\"\n", 0, ""},
		{"identifier-like string", "kind = \"user_account\"\n", 0, ""},
		{"sentence string", "msg = \"something went wrong\"\n", 1, domain.SeverityMedium},
		{"comparison", "if retries > 3:\n    pass\n", 1, domain.SeverityHigh},
		{"loop condition", "while count < 100:\n    count += 1\n", 1, domain.SeverityHigh},
		{"security sensitive", "password_length = 12\n", 1, domain.SeverityCritical},
		{"security comparison", "if token == \"abc-123-def\":\n    pass\n", 1, domain.SeverityCritical},
		{"booleans and none", "a = True\nb = None\n", 0, ""},
		{"hex allowlisted", "mask = 0x1\n", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := analyzePython(t, DefaultOptions(), tt.source)
			magic := byRule(result.Violations, RuleMagicLiteral)
			require.Len(t, magic, tt.count)
			if tt.count > 0 {
				assert.Equal(t, tt.severity, magic[0].Severity)
				assert.Equal(t, domain.CoMeaning, magic[0].ConnascenceType)
			}
		})
	}
}

func TestMagicLiteralCustomAllowlist(t *testing.T) {
	opts := DefaultOptions()
	opts.MagicLiteral.Allowlist = []string{"0", "1", "-1", "100", "2.5"}

	result := analyzePython(t, opts, "a = 100\nb = 2.50\nc = 7\n")
	magic := byRule(result.Violations, RuleMagicLiteral)
	require.Len(t, magic, 1)
	assert.Contains(t, magic[0].Description, "7")
}

func TestMagicLiteralC(t *testing.T) {
	source := `#define LIMIT 64
#include "config.h"

static const int WIDTH = 80;

int area(int h) {
    int scale = 3;
    return h * WIDTH * scale;
}
`
	result := analyzeC(t, DefaultOptions(), source)
	magic := byRule(result.Violations, RuleMagicLiteral)
	require.Len(t, magic, 1)
	assert.Equal(t, 7, magic[0].LineNumber)
}

func TestParseNumber(t *testing.T) {
	tests := map[string]float64{
		"42":    42,
		"-1":    -1,
		"0x10":  16,
		"0o17":  15,
		"1_000": 1000,
		"2.5":   2.5,
		"10UL":  10,
		"1.5f":  1.5,
		"0xff":  255,
		"1e3":   1000,
	}
	for raw, want := range tests {
		got, ok := parseNumber(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
	_, ok := parseNumber("abc")
	assert.False(t, ok)
}

func TestPositionDetector(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		decl  int
		calls int
	}{
		{"under threshold", "def f(a, b, c, d):\n    pass\n", 0, 0},
		{"over threshold", "def f(a, b, c, d, e):\n    pass\n", 1, 0},
		{"receiver excluded", "class A:\n    def m(self, a, b, c, d):\n        pass\n", 0, 0},
		{"keyword only excluded", "def f(a, b, *, c, d, e, g):\n    pass\n", 0, 0},
		{"varargs excluded", "def f(a, b, c, *args, **kwargs):\n    pass\n", 0, 0},
		{"underscore excluded", "def f(a, b, c, d, _e):\n    pass\n", 0, 0},
		{"defaults counted", "def f(a, b, c, d=1, e=2):\n    pass\n", 1, 0},
		{"positional call", "send(1, 2, 3, 4, 5)\n", 0, 1},
		{"keyword call", "send(1, 2, 3, retries=4, timeout=5)\n", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.MagicLiteral.Enabled = false
			result := analyzePython(t, opts, tt.src)
			assert.Len(t, byRule(result.Violations, RulePosition), tt.decl)
			assert.Len(t, byRule(result.Violations, RulePositionCall), tt.calls)
		})
	}
}

func TestPositionDetectorNASAThreshold(t *testing.T) {
	opts := DefaultOptions()
	opts.Position.MaxParams = 3

	result := analyzeC(t, opts, "int f(int a, int b, int c, int d) { return a; }\n")
	position := byRule(result.Violations, RulePosition)
	require.Len(t, position, 1)
	assert.Contains(t, position[0].Description, "4 positional parameters (threshold 3)")
}

func TestTimingDetector(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		count int
	}{
		{"module sleep", "import time\ntime.sleep(5)\n", 1},
		{"bare sleep", "from time import sleep\nsleep(1)\n", 1},
		{"async sleep", "async def poll():\n    await asyncio.sleep(0.5)\n", 1},
		{"method named sleep", "worker.sleep()\n", 1},
		{"similar name", "worker.sleepy()\ntime.time()\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := analyzePython(t, DefaultOptions(), tt.src)
			timing := byRule(result.Violations, RuleTiming)
			require.Len(t, timing, tt.count)
			if tt.count > 0 {
				assert.Equal(t, domain.SeverityMedium, timing[0].Severity)
				assert.Equal(t, domain.CoTiming, timing[0].ConnascenceType)
				assert.Contains(t, timing[0].Description, "sleep")
			}
		})
	}
}

func TestTimingDetectorC(t *testing.T) {
	source := `void wait_for_device(void) {
    usleep(100);
    sleep(1);
}
`
	result := analyzeC(t, DefaultOptions(), source)
	timing := byRule(result.Violations, RuleTiming)
	require.Len(t, timing, 2)
	assert.Equal(t, 2, timing[0].LineNumber)
	assert.Equal(t, 3, timing[1].LineNumber)
}

func TestGlobalStateDetector(t *testing.T) {
	six := `counter = 0

def reset():
    global counter, total, cache
    counter = total = 0

def configure():
    global counter, mode, level, verbose
    mode = level = verbose = None
`
	result := analyzePython(t, DefaultOptions(), six)
	globals := byRule(result.Violations, RuleGlobalState)
	require.Len(t, globals, 1)
	assert.Equal(t, domain.SeverityHigh, globals[0].Severity)
	assert.Equal(t, domain.CoIdentity, globals[0].ConnascenceType)
	assert.Equal(t, 4, globals[0].LineNumber)
	assert.Contains(t, globals[0].Description, "6 globals (threshold 5): cache, counter, level, mode, total, verbose")

	five := "def f():\n    global a, b, c\n\ndef g():\n    global a, d, e\n"
	result = analyzePython(t, DefaultOptions(), five)
	assert.Empty(t, byRule(result.Violations, RuleGlobalState))

	opts := DefaultOptions()
	opts.GlobalState.MaxGlobals = 1
	result = analyzePython(t, opts, "def f():\n    global a, b\n")
	assert.Len(t, byRule(result.Violations, RuleGlobalState), 1)

	opts.GlobalState.Enabled = false
	result = analyzePython(t, opts, "def f():\n    global a, b\n")
	assert.Empty(t, byRule(result.Violations, RuleGlobalState))
}

func classWithMethods(n int) string {
	var b strings.Builder
	b.WriteString("class Service:\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "    def method_%d(self):\n        pass\n", i)
	}
	return b.String()
}

func TestGodObjectDetector(t *testing.T) {
	opts := DefaultOptions()

	result := analyzePython(t, opts, classWithMethods(15))
	assert.Empty(t, byRule(result.Violations, RuleGodObject))

	result = analyzePython(t, opts, classWithMethods(35))
	god := byRule(result.Violations, RuleGodObject)
	require.Len(t, god, 1)
	assert.Equal(t, domain.SeverityHigh, god[0].Severity)
	assert.Equal(t, domain.CoIdentity, god[0].ConnascenceType)
	assert.Contains(t, god[0].Description, "35 methods (133% over threshold of 15)")
	assert.Equal(t, 1, god[0].LineNumber)

	result = analyzePython(t, opts, classWithMethods(20))
	god = byRule(result.Violations, RuleGodObject)
	require.Len(t, god, 1)
	assert.Equal(t, domain.SeverityMedium, god[0].Severity)
}

func TestGodObjectLineThreshold(t *testing.T) {
	opts := DefaultOptions()
	opts.GodObject.MaxLines = 10

	result := analyzePython(t, opts, classWithMethods(8))
	god := byRule(result.Violations, RuleGodObject)
	require.Len(t, god, 1)
	assert.Contains(t, god[0].Description, "lines (")
}

func nasaOptions() *Options {
	opts := DefaultOptions()
	opts.Safety.Enabled = true
	opts.MagicLiteral.Enabled = false
	return opts
}

func TestSafetyDetectorC(t *testing.T) {
	source := `#include <stdlib.h>

int fact(int n) {
    if (n <= 1) return 1;
    return n * fact(n - 1);
}

void spin(void) {
    for (;;) {
        tick();
    }
}

void drain(void) {
    while (1) {
        if (done()) break;
    }
}

void process(void) {
    int **grid = 0;
    char *name;
    char *buf = malloc(16);
    goto out;
out:
    free(buf);
}

int init_pool(void) {
    void *p = malloc(64);
    return p != 0;
}
`
	result := analyzeC(t, nasaOptions(), source)

	rec := byRule(result.Violations, RuleRecursion)
	require.Len(t, rec, 1)
	assert.Equal(t, 5, rec[0].LineNumber)
	assert.Equal(t, domain.SeverityCritical, rec[0].Severity)

	loops := byRule(result.Violations, RuleUnboundedLoop)
	require.Len(t, loops, 1)
	assert.Equal(t, 9, loops[0].LineNumber)

	assert.Len(t, byRule(result.Violations, RuleGoto), 1)

	alloc := byRule(result.Violations, RuleDynamicAllocation)
	require.Len(t, alloc, 2)
	for _, v := range alloc {
		assert.Equal(t, domain.CoTiming, v.ConnascenceType)
		assert.Equal(t, domain.SeverityHigh, v.Severity)
	}

	indirection := byRule(result.Violations, RulePointerIndirection)
	require.Len(t, indirection, 1)
	assert.Equal(t, 21, indirection[0].LineNumber)

	uninit := byRule(result.Violations, RuleUninitializedPointer)
	require.Len(t, uninit, 1)
	assert.Contains(t, uninit[0].Description, "'name'")
}

func TestSafetyDetectorPython(t *testing.T) {
	source := `def walk(node):
    for child in node.children:
        walk(child)

def ping():
    pong()

def pong():
    ping()

def serve():
    while True:
        handle()

class Tree:
    def depth(self, node):
        return 1 + self.depth(node.left)
`
	result := analyzePython(t, nasaOptions(), source)

	rec := byRule(result.Violations, RuleRecursion)
	require.Len(t, rec, 4)
	var descriptions []string
	for _, v := range rec {
		descriptions = append(descriptions, v.Description)
	}
	joined := strings.Join(descriptions, "\n")
	assert.Contains(t, joined, "'walk' calls itself")
	assert.Contains(t, joined, "'depth' calls itself")
	assert.Contains(t, joined, "ping -> pong -> ping")
	assert.Contains(t, joined, "pong -> ping -> pong")

	assert.Len(t, byRule(result.Violations, RuleUnboundedLoop), 1)
}

func TestSafetyFunctionLength(t *testing.T) {
	var b strings.Builder
	b.WriteString("def long_function():\n")
	for i := 0; i < 70; i++ {
		fmt.Fprintf(&b, "    x%d = 0\n", i)
	}
	result := analyzePython(t, nasaOptions(), b.String())

	length := byRule(result.Violations, RuleFunctionLength)
	require.Len(t, length, 1)
	assert.Equal(t, domain.SeverityMedium, length[0].Severity)
	assert.Contains(t, length[0].Description, "(limit 60)")
}

func TestSafetyDisabledByDefault(t *testing.T) {
	result := analyzeC(t, DefaultOptions(), "void f(void) { goto end; end: return; }\n")
	assert.Empty(t, byRule(result.Violations, RuleGoto))
}
